// Package store persists emergencies, centers, inventory and disaster zones in
// SQLite. Dispatch transactions run with an immediate write lock so two
// concurrent dispatches can never both consume the same stock.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/dispatch"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/logger"
)

// Config holds storage settings.
type Config struct {
	Path string `json:"path"`
	// BusyTimeoutMS bounds how long a transaction waits on the write lock.
	BusyTimeoutMS int `json:"busy_timeout_ms"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "aidflow.db"
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = 5000
	}
}

// Validate checks configured values.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("storage: path is required")
	}
	return nil
}

// SQLiteStore implements dispatch.Store and dispatch.ZoneSource on SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// New opens (and if needed creates) the database at cfg.Path and applies the
// schema. Transactions take the write lock up front (_txlock=immediate), which
// combined with SQLite's single-writer model gives serializable dispatches.
func New(cfg Config) (*SQLiteStore, error) {
	cfg.SetDefaults()
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db, log: logger.New("store")}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS centers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS inventory_records (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			current_stock INTEGER NOT NULL,
			min_threshold INTEGER NOT NULL,
			max_capacity INTEGER NOT NULL DEFAULT 0,
			unit TEXT NOT NULL DEFAULT '',
			center_id TEXT NOT NULL,
			status TEXT NOT NULL,
			FOREIGN KEY (center_id) REFERENCES centers(id)
		);

		CREATE TABLE IF NOT EXISTS emergencies (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			required_resources TEXT NOT NULL,
			dispatch_details TEXT,
			timeline TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS disaster_zones (
			id TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			radius_km REAL NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_inventory_center ON inventory_records(center_id);
		CREATE INDEX IF NOT EXISTS idx_emergencies_status ON emergencies(status);
		CREATE INDEX IF NOT EXISTS idx_zones_status ON disaster_zones(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a single transaction. fn returning an error rolls
// everything back; the error is returned unchanged.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx dispatch.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Errorf("rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqlTx implements dispatch.Tx over one open transaction.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Emergency(ctx context.Context, id string) (*model.Emergency, error) {
	return scanEmergency(t.tx.QueryRowContext(ctx, `
		SELECT id, kind, severity, status, latitude, longitude,
		       required_resources, dispatch_details, timeline, created_at, updated_at
		FROM emergencies WHERE id = ?`, id), id)
}

func (t *sqlTx) UpdateEmergency(ctx context.Context, em *model.Emergency) error {
	resources, err := json.Marshal(em.RequiredResources)
	if err != nil {
		return fmt.Errorf("marshal required resources: %w", err)
	}
	timeline, err := json.Marshal(em.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	var details any
	if em.Dispatch != nil {
		b, err := json.Marshal(em.Dispatch)
		if err != nil {
			return fmt.Errorf("marshal dispatch details: %w", err)
		}
		details = string(b)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE emergencies
		SET kind = ?, severity = ?, status = ?, latitude = ?, longitude = ?,
		    required_resources = ?, dispatch_details = ?, timeline = ?, updated_at = ?
		WHERE id = ?`,
		em.Kind, em.Severity, em.Status, em.Location.Lat, em.Location.Lon,
		string(resources), details, string(timeline), em.UpdatedAt, em.ID)
	if err != nil {
		return fmt.Errorf("update emergency: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", dispatch.ErrEmergencyNotFound, em.ID)
	}
	return nil
}

func (t *sqlTx) CenterInventories(ctx context.Context) ([]allocation.CenterInventory, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT c.id, c.name, c.latitude, c.longitude,
		       r.id, r.name, r.category, r.current_stock, r.min_threshold,
		       r.max_capacity, r.unit, r.status
		FROM centers c
		LEFT JOIN inventory_records r ON r.center_id = c.id
		ORDER BY c.id, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query inventories: %w", err)
	}
	defer rows.Close()

	var (
		out []allocation.CenterInventory
		cur *allocation.CenterInventory
	)
	for rows.Next() {
		var (
			c   model.Center
			rid sql.NullString
			rec model.InventoryRecord
		)
		var name, category, unit, status sql.NullString
		var stock, minThresh, maxCap sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Location.Lat, &c.Location.Lon,
			&rid, &name, &category, &stock, &minThresh, &maxCap, &unit, &status); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		if cur == nil || cur.Center.ID != c.ID {
			out = append(out, allocation.CenterInventory{Center: c})
			cur = &out[len(out)-1]
		}
		if !rid.Valid {
			continue // center without stock still participates, with nothing to give
		}
		rec = model.InventoryRecord{
			ID:           rid.String,
			Name:         name.String,
			Category:     model.Category(category.String),
			CurrentStock: int(stock.Int64),
			MinThreshold: int(minThresh.Int64),
			MaxCapacity:  int(maxCap.Int64),
			Unit:         unit.String,
			CenterID:     c.ID,
			Status:       model.StockStatus(status.String),
		}
		cur.Items = append(cur.Items, rec)
	}
	return out, rows.Err()
}

func (t *sqlTx) DeductStock(ctx context.Context, inventoryID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("deduct quantity must be positive, got %d", qty)
	}
	var stock, minThresh int
	err := t.tx.QueryRowContext(ctx,
		`SELECT current_stock, min_threshold FROM inventory_records WHERE id = ?`,
		inventoryID).Scan(&stock, &minThresh)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unknown inventory record %s", inventoryID)
	}
	if err != nil {
		return fmt.Errorf("read inventory record: %w", err)
	}
	if stock < qty {
		return fmt.Errorf("insufficient stock for %s: have %d, need %d", inventoryID, stock, qty)
	}
	newStock := stock - qty
	_, err = t.tx.ExecContext(ctx,
		`UPDATE inventory_records SET current_stock = ?, status = ? WHERE id = ?`,
		newStock, model.StatusFor(newStock, minThresh), inventoryID)
	if err != nil {
		return fmt.Errorf("update inventory record: %w", err)
	}
	return nil
}

// CreateEmergency inserts a new emergency. A missing ID is generated; the
// initial timeline entry records reception.
func (s *SQLiteStore) CreateEmergency(ctx context.Context, em *model.Emergency) error {
	if em.ID == "" {
		em.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if em.CreatedAt.IsZero() {
		em.CreatedAt = now
	}
	em.UpdatedAt = em.CreatedAt
	if em.Status == "" {
		em.Status = model.StatusReceived
	}
	if len(em.Timeline) == 0 {
		em.AppendTimeline(em.Status, em.CreatedAt, "emergency received")
	}
	resources, err := json.Marshal(em.RequiredResources)
	if err != nil {
		return fmt.Errorf("marshal required resources: %w", err)
	}
	timeline, err := json.Marshal(em.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emergencies
		(id, kind, severity, status, latitude, longitude, required_resources, timeline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		em.ID, em.Kind, em.Severity, em.Status, em.Location.Lat, em.Location.Lon,
		string(resources), string(timeline), em.CreatedAt, em.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert emergency: %w", err)
	}
	return nil
}

// GetEmergency loads one emergency outside any dispatch transaction.
func (s *SQLiteStore) GetEmergency(ctx context.Context, id string) (*model.Emergency, error) {
	return scanEmergency(s.db.QueryRowContext(ctx, `
		SELECT id, kind, severity, status, latitude, longitude,
		       required_resources, dispatch_details, timeline, created_at, updated_at
		FROM emergencies WHERE id = ?`, id), id)
}

func scanEmergency(row *sql.Row, id string) (*model.Emergency, error) {
	var (
		em        model.Emergency
		resources string
		details   sql.NullString
		timeline  string
	)
	err := row.Scan(&em.ID, &em.Kind, &em.Severity, &em.Status,
		&em.Location.Lat, &em.Location.Lon, &resources, &details, &timeline,
		&em.CreatedAt, &em.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrEmergencyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan emergency: %w", err)
	}
	if err := json.Unmarshal([]byte(resources), &em.RequiredResources); err != nil {
		return nil, fmt.Errorf("decode required resources: %w", err)
	}
	if err := json.Unmarshal([]byte(timeline), &em.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if details.Valid {
		em.Dispatch = &model.DispatchDetails{}
		if err := json.Unmarshal([]byte(details.String), em.Dispatch); err != nil {
			return nil, fmt.Errorf("decode dispatch details: %w", err)
		}
	}
	return &em, nil
}

// UpsertCenter inserts or replaces a distribution center.
func (s *SQLiteStore) UpsertCenter(ctx context.Context, c model.Center) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO centers (id, name, latitude, longitude) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			latitude = excluded.latitude, longitude = excluded.longitude`,
		c.ID, c.Name, c.Location.Lat, c.Location.Lon)
	if err != nil {
		return fmt.Errorf("upsert center: %w", err)
	}
	return nil
}

// UpsertInventory inserts or replaces an inventory record, deriving its status.
func (s *SQLiteStore) UpsertInventory(ctx context.Context, rec model.InventoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.RecomputeStatus()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_records
		(id, name, category, current_stock, min_threshold, max_capacity, unit, center_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, category = excluded.category,
			current_stock = excluded.current_stock, min_threshold = excluded.min_threshold,
			max_capacity = excluded.max_capacity, unit = excluded.unit,
			center_id = excluded.center_id, status = excluded.status`,
		rec.ID, rec.Name, rec.Category, rec.CurrentStock, rec.MinThreshold,
		rec.MaxCapacity, rec.Unit, rec.CenterID, rec.Status)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// ListCenters returns all centers with their stock, outside any transaction.
func (s *SQLiteStore) ListCenters(ctx context.Context) ([]allocation.CenterInventory, error) {
	var out []allocation.CenterInventory
	err := s.WithTx(ctx, func(tx dispatch.Tx) error {
		invs, err := tx.CenterInventories(ctx)
		if err != nil {
			return err
		}
		out = invs
		return nil
	})
	return out, err
}

// UpsertZone inserts or refreshes a disaster zone.
func (s *SQLiteStore) UpsertZone(ctx context.Context, z model.DisasterZone) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disaster_zones (id, latitude, longitude, radius_km, severity, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET latitude = excluded.latitude,
			longitude = excluded.longitude, radius_km = excluded.radius_km,
			severity = excluded.severity, status = excluded.status,
			updated_at = excluded.updated_at`,
		z.ID, z.Center.Lat, z.Center.Lon, z.RadiusKm, z.Severity, z.Status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert zone: %w", err)
	}
	return nil
}

// ActiveZones returns zones still relevant to route planning. Implements
// dispatch.ZoneSource.
func (s *SQLiteStore) ActiveZones(ctx context.Context) ([]model.DisasterZone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, latitude, longitude, radius_km, severity, status
		FROM disaster_zones WHERE status IN ('active', 'monitoring')`)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []model.DisasterZone
	for rows.Next() {
		var z model.DisasterZone
		if err := rows.Scan(&z.ID, &z.Center.Lat, &z.Center.Lon, &z.RadiusKm, &z.Severity, &z.Status); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

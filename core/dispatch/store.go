package dispatch

import (
	"context"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/model"
)

// Tx exposes the persistence operations available inside one dispatch
// transaction. All reads observe a consistent snapshot; all writes commit or
// roll back together.
type Tx interface {
	// Emergency loads the aggregate by id, or ErrEmergencyNotFound.
	Emergency(ctx context.Context, id string) (*model.Emergency, error)
	// UpdateEmergency persists status, dispatch details and timeline.
	UpdateEmergency(ctx context.Context, em *model.Emergency) error
	// CenterInventories returns every center with its current stock.
	CenterInventories(ctx context.Context) ([]allocation.CenterInventory, error)
	// DeductStock decrements a record's stock and recomputes its status.
	// Fails if the deduction would drive stock negative.
	DeductStock(ctx context.Context, inventoryID string, qty int) error
}

// Store runs functions under a single serializable transaction. fn returning
// an error rolls everything back; the error is returned unchanged.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// ZoneSource supplies the active disaster zones consulted by the hazard
// overlay. Read-only; failures are non-fatal.
type ZoneSource interface {
	ActiveZones(ctx context.Context) ([]model.DisasterZone, error)
}

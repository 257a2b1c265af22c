package feeds

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/logger"
)

// Manager runs one poller goroutine per enabled feed and upserts derived zones
// into the sink.
type Manager struct {
	cfg         Config
	sink        ZoneSink
	invalidator Invalidator
	client      *http.Client
	log         logger.Logger
	wg          sync.WaitGroup
}

// NewManager creates a Manager. invalidator may be nil.
func NewManager(cfg Config, sink ZoneSink, invalidator Invalidator) *Manager {
	cfg.SetDefaults()
	return &Manager{
		cfg:         cfg,
		sink:        sink,
		invalidator: invalidator,
		client:      &http.Client{Timeout: 15 * time.Second},
		log:         logger.New("feeds"),
	}
}

// Start launches the pollers. They stop when ctx is canceled.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.USGSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, "usgs", m.cfg.USGSURL, time.Duration(m.cfg.USGSPollSeconds)*time.Second)
	}
	if m.cfg.FIRMSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, "firms", m.cfg.FIRMSURL, time.Duration(m.cfg.FIRMSPollSeconds)*time.Second)
	}
}

// Stop blocks until all pollers have exited.
func (m *Manager) Stop() {
	m.wg.Wait()
	m.log.Infof("feed manager stopped")
}

func (m *Manager) runPoller(ctx context.Context, source, url string, interval time.Duration) {
	defer m.wg.Done()
	m.log.Infof("starting %s poller, interval %s", source, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.poll(ctx, source, url)
	for {
		select {
		case <-ctx.Done():
			m.log.Infof("%s poller shutting down", source)
			return
		case <-ticker.C:
			m.poll(ctx, source, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, source, url string) {
	var (
		zones []model.DisasterZone
		err   error
	)
	switch source {
	case "usgs":
		zones, err = m.pollUSGS(ctx, url)
	case "firms":
		zones, err = m.pollFIRMS(ctx, url)
	}
	if err != nil {
		m.log.Errorf("%s poll failed: %v", source, err)
		return
	}

	var stored int
	for _, z := range zones {
		if err := m.sink.UpsertZone(ctx, z); err != nil {
			m.log.Errorf("upsert zone %s: %v", z.ID, err)
			continue
		}
		stored++
	}
	if stored > 0 && m.invalidator != nil {
		m.invalidator.Invalidate()
	}
	m.log.Debugf("%s poll complete, %d zone(s) in region", source, stored)
}

// Package scheduler runs periodic maintenance over invitations and
// devices.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Phantom-bronze/UserModule/internal/apiserver/audit"
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
	"github.com/Phantom-bronze/UserModule/internal/common/cnst"
	"github.com/Phantom-bronze/UserModule/internal/common/config"
	"github.com/Phantom-bronze/UserModule/pkg/metrics"
)

// Sweeper expires stale invitations and marks silent devices offline on
// a fixed interval. State in the database stays eventually consistent
// even if no request ever touches the stale rows.
type Sweeper struct {
	db       database.Database
	audit    *audit.Recorder
	metrics  *metrics.Metrics
	interval time.Duration
	offline  time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeper creates a new sweeper.
func NewSweeper(db database.Database, recorder *audit.Recorder, m *metrics.Metrics, cfg *config.DeviceConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		db:       db,
		audit:    recorder,
		metrics:  m,
		interval: cfg.SweepInterval,
		offline:  cfg.OfflineTimeout,
		logger:   logger.Named("sweeper"),
	}
}

// Start launches the background loop. Safe to call once.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass. Exported so tests and operators can
// trigger it directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	expired, err := s.db.ExpireStaleInvitations(ctx, now)
	if err != nil {
		s.logger.Error("failed to expire invitations", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("expired stale invitations", zap.Int64("count", expired))
		s.metrics.InvitationsExpired(expired)
		s.audit.RecordSystem(ctx, cnst.ActionInvitationExpired, cnst.ResourceInvitation, nil,
			map[string]any{"count": expired})
	}

	ids, err := s.db.MarkDevicesOffline(ctx, now.Add(-s.offline))
	if err != nil {
		s.logger.Error("failed to mark devices offline", zap.Error(err))
		return
	}
	for _, id := range ids {
		s.audit.RecordSystem(ctx, cnst.ActionDeviceOffline, cnst.ResourceDevice, &id, nil)
	}
	if len(ids) > 0 {
		s.metrics.DevicesMarkedOffline(len(ids))
		s.logger.Info("marked silent devices offline", zap.Int("count", len(ids)))
	}
}

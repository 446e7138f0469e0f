package meetup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
)

const defaultMonitorPage = 200

// Monitor advances timer-driven transitions. Every guard is derived from
// stored timestamps, so a pass can be skipped, repeated or run from several
// processes at once.
type Monitor struct {
	svc      *Service
	workers  int
	pageSize int
	logger   zerolog.Logger
}

// NewMonitor creates a new expiry monitor
func NewMonitor(svc *Service, workers int, logger zerolog.Logger) *Monitor {
	if workers <= 0 {
		workers = 4
	}
	return &Monitor{
		svc:      svc,
		workers:  workers,
		pageSize: defaultMonitorPage,
		logger:   logger.With().Str("service", "meetup-monitor").Logger(),
	}
}

// ProcessDue evaluates every open transaction, at most limit of them when
// limit is positive, and returns how many transitions were applied.
func (m *Monitor) ProcessDue(ctx context.Context, limit int) (int, error) {
	start := time.Now()
	defer func() { monitorRunDuration.Observe(time.Since(start).Seconds()) }()

	var (
		applied int
		errs    []error
		afterID int64
		seen    int
	)
	for {
		page := m.pageSize
		if limit > 0 && limit-seen < page {
			page = limit - seen
		}
		if page <= 0 {
			break
		}
		txs, err := m.svc.store.ListOpen(ctx, afterID, page)
		if err != nil {
			return applied, err
		}
		n, err := m.evaluate(ctx, txs)
		applied += n
		if err != nil {
			errs = append(errs, err)
		}
		seen += len(txs)
		if len(txs) < page {
			break
		}
		afterID = txs[len(txs)-1].ID
	}

	if applied > 0 {
		m.logger.Info().Int("applied", applied).Int("evaluated", seen).Msg("monitor pass applied transitions")
	}
	return applied, errors.Join(errs...)
}

// EvaluateForParticipant evaluates the open transactions actorID is party to.
func (m *Monitor) EvaluateForParticipant(ctx context.Context, actorID string) (int, error) {
	txs, err := m.svc.store.FindOpenForParticipant(ctx, actorID)
	if err != nil {
		return 0, err
	}
	return m.evaluate(ctx, txs)
}

func (m *Monitor) evaluate(ctx context.Context, txs []*meetup.Transaction) (int, error) {
	now := m.svc.clock.Now()
	var (
		applied atomic.Int64
		mu      sync.Mutex
		errs    []error
		g       errgroup.Group
	)
	g.SetLimit(m.workers)

	for _, tx := range txs {
		if !m.svc.machine.Due(tx, now) {
			continue
		}
		id := tx.TransactionID
		g.Go(func() error {
			out, err := m.advance(ctx, id)
			if out != nil {
				applied.Add(1)
				monitorAppliedTotal.WithLabelValues(string(out.Event)).Inc()
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(applied.Load()), errors.Join(errs...)
}

func (m *Monitor) advance(ctx context.Context, id uuid.UUID) (*meetup.Outcome, error) {
	out, err := m.svc.advance(ctx, id)
	if err == nil {
		return out, nil
	}
	// The write stands; the service already logged the delivery failure.
	if errors.Is(err, meetup.ErrNotificationFailed) {
		return out, nil
	}
	m.logger.Error().Err(err).Str("transactionId", id.String()).Msg("failed to advance transaction")
	return out, err
}

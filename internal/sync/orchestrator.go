package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"ms-ticket-sync/internal/artist"
	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"
	"ms-ticket-sync/internal/provider"

	"github.com/google/uuid"
)

// Provider is the signed ticketing API surface the orchestrator consumes.
type Provider interface {
	FetchEvents(ctx context.Context, startDate time.Time) ([]provider.RawEvent, error)
	FetchEvent(ctx context.Context, eventID int64) (*provider.RawEvent, error)
	FetchOrders(ctx context.Context, eventID int64, since time.Time) ([]provider.RawOrder, error)
}

// Store is the persistence surface the orchestrator consumes.
type Store interface {
	UpsertEvent(ctx context.Context, ev *models.Event) error
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	StampStatusSync(ctx context.Context, eventID int64, status string, ts time.Time) error
	StampOrderSync(ctx context.Context, eventID int64, ts time.Time) error
	InsertOrderLines(ctx context.Context, lines []models.OrderLine, batchSize int) (int, error)
	DeleteOrderLines(ctx context.Context, eventID int64) (int64, error)
}

// ArtistResolver deduplicates extracted artist names against known ones.
type ArtistResolver interface {
	Resolve(ctx context.Context, name string) (string, float64, error)
}

// Aggregator recomputes an event's sales summary after persist.
type Aggregator interface {
	Recompute(ctx context.Context, eventID int64) (*models.SalesSummary, error)
}

// Notifier announces completed event syncs. Failures are logged, never
// propagated: notification is fire-and-forget.
type Notifier interface {
	PublishSyncCompleted(runID string, eventID int64, summary *models.SalesSummary) error
}

// SummaryInvalidator drops any cached summary after a recompute.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

// Options tune the orchestrator's fan-out and batching.
type Options struct {
	Concurrency  int
	BatchSize    int
	LookbackDays int
}

// Orchestrator drives the sync engine: picks the events needing work, runs
// fetch -> transform -> persist -> aggregate -> stamp per event under a
// bounded worker pool, and isolates per-event failures.
type Orchestrator struct {
	provider  Provider
	store     Store
	extractor *artist.Extractor
	artists   ArtistResolver
	agg       Aggregator
	notifier  Notifier
	cache     SummaryInvalidator
	logger    *logger.Logger
	opts      Options
}

func NewOrchestrator(
	p Provider,
	store Store,
	extractor *artist.Extractor,
	artists ArtistResolver,
	agg Aggregator,
	notifier Notifier,
	cache SummaryInvalidator,
	log *logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	return &Orchestrator{
		provider:  p,
		store:     store,
		extractor: extractor,
		artists:   artists,
		agg:       agg,
		notifier:  notifier,
		cache:     cache,
		logger:    log,
		opts:      opts,
	}
}

// SyncAll refreshes the event list from the provider, then runs the order
// pipeline for every event the evaluator selects. With force set, every
// known event is resynced from scratch.
func (o *Orchestrator) SyncAll(ctx context.Context, force bool) error {
	runID := uuid.New().String()[:8]
	o.logger.LogSync(runID, fmt.Sprintf("Full sync starting (force=%v)", force))

	if err := o.refreshEvents(ctx, runID); err != nil {
		// A failed event-list refresh still leaves known events syncable.
		o.logger.Error("SYNC", fmt.Sprintf("[%s] Event list refresh failed: %v", runID, err))
	}

	events, err := o.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	targets := events[:0:0]
	for _, ev := range events {
		if force || NeedsUpdate(ev.Date, ev.OrdersSynced) {
			targets = append(targets, ev)
		}
	}

	o.logger.LogSync(runID, fmt.Sprintf("%d of %d events need an order sync", len(targets), len(events)))
	o.run(ctx, runID, targets, force)
	return nil
}

// SyncEvents runs the pipeline for explicit event identifiers. Unknown ids
// are fetched from the provider first so a targeted sync works before any
// full refresh has run.
func (o *Orchestrator) SyncEvents(ctx context.Context, eventIDs []int64, force bool) error {
	runID := uuid.New().String()[:8]
	o.logger.LogSync(runID, fmt.Sprintf("Targeted sync of %d event(s) (force=%v)", len(eventIDs), force))

	var targets []models.Event
	for _, id := range eventIDs {
		ev, err := o.store.GetEvent(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			ev, err = o.importEvent(ctx, id)
		}
		if err != nil {
			o.logger.Error("SYNC", fmt.Sprintf("[%s] Event %d unavailable, skipping: %v", runID, id, err))
			continue
		}
		targets = append(targets, *ev)
	}

	o.run(ctx, runID, targets, force)
	return nil
}

// run fans the per-event pipeline out over a bounded worker pool. A failure
// in one event is logged and isolated; sibling events are unaffected.
func (o *Orchestrator) run(ctx context.Context, runID string, targets []models.Event, force bool) {
	if len(targets) == 0 {
		return
	}

	sem := make(chan struct{}, o.opts.Concurrency)
	var wg gosync.WaitGroup
	var mu gosync.Mutex
	failed := 0

	for _, ev := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(ev models.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := o.syncOne(ctx, runID, ev, force); err != nil {
				o.logger.Error("SYNC", fmt.Sprintf("[%s] Event %d pipeline failed: %v", runID, ev.ID, err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(ev)
	}
	wg.Wait()

	o.logger.LogSync(runID, fmt.Sprintf("Run complete: %d event(s), %d failed", len(targets), failed))
}

// syncOne is the strictly ordered per-event pipeline. The sync timestamp is
// stamped only after persist and aggregate both succeed, so a crash
// mid-cycle leaves the event marked as still needing sync.
func (o *Orchestrator) syncOne(ctx context.Context, runID string, ev models.Event, force bool) error {
	started := time.Now()

	since := time.Time{}
	if force {
		if _, err := o.store.DeleteOrderLines(ctx, ev.ID); err != nil {
			return err
		}
	} else if !ev.OrdersSynced.IsZero() {
		since = ev.OrdersSynced
	}

	orders, err := o.provider.FetchOrders(ctx, ev.ID, since)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}

	var lines []models.OrderLine
	for _, order := range orders {
		lines = append(lines, TransformOrder(ev.ID, order)...)
	}

	inserted, err := o.store.InsertOrderLines(ctx, lines, o.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("persist %d lines: %w", len(lines), err)
	}

	summary, err := o.agg.Recompute(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	// The stamp is the cycle start, not completion time: orders purchased
	// while this cycle ran fall inside the next incremental window. The
	// overlap re-fetches a few orders, which the idempotent insert absorbs.
	if err := o.store.StampOrderSync(ctx, ev.ID, started); err != nil {
		return err
	}

	if o.cache != nil {
		if err := o.cache.Invalidate(ctx, ev.ID); err != nil {
			o.logger.Warn("SYNC", fmt.Sprintf("[%s] Summary cache invalidation failed for event %d: %v", runID, ev.ID, err))
		}
	}
	if o.notifier != nil {
		if err := o.notifier.PublishSyncCompleted(runID, ev.ID, summary); err != nil {
			o.logger.Error("SYNC", fmt.Sprintf("[%s] Sync notification failed for event %d: %v", runID, ev.ID, err))
		}
	}

	o.logger.LogSync(runID, fmt.Sprintf("Event %d synced: %d order(s), %d new line(s) in %s",
		ev.ID, len(orders), inserted, time.Since(started).Round(time.Millisecond)))
	return nil
}

// refreshEvents pulls the recent event list from the provider, resolves each
// title to a canonical artist, and upserts the records with fresh statuses.
func (o *Orchestrator) refreshEvents(ctx context.Context, runID string) error {
	lookback := time.Now().AddDate(0, 0, -o.opts.LookbackDays)
	rawEvents, err := o.provider.FetchEvents(ctx, lookback)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	now := time.Now()
	for _, raw := range rawEvents {
		ev, err := o.buildEvent(ctx, raw, now)
		if err != nil {
			o.logger.Warn("SYNC", fmt.Sprintf("[%s] Skipping event %d: %v", runID, raw.ID, err))
			continue
		}
		if err := o.store.UpsertEvent(ctx, ev); err != nil {
			o.logger.Error("SYNC", fmt.Sprintf("[%s] Upsert failed for event %d: %v", runID, raw.ID, err))
			continue
		}
		if err := o.store.StampStatusSync(ctx, ev.ID, ev.Status, now); err != nil {
			o.logger.Error("SYNC", fmt.Sprintf("[%s] Status stamp failed for event %d: %v", runID, raw.ID, err))
		}
	}

	o.logger.LogSync(runID, fmt.Sprintf("Event list refreshed: %d record(s)", len(rawEvents)))
	return nil
}

// importEvent fetches a single unknown event and persists it so targeted
// syncs can proceed.
func (o *Orchestrator) importEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	raw, err := o.provider.FetchEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("fetch event %d: %w", eventID, err)
	}
	ev, err := o.buildEvent(ctx, *raw, time.Now())
	if err != nil {
		return nil, err
	}
	if err := o.store.UpsertEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (o *Orchestrator) buildEvent(ctx context.Context, raw provider.RawEvent, now time.Time) (*models.Event, error) {
	date, err := raw.ParseDate()
	if err != nil {
		return nil, fmt.Errorf("unparseable event date %q: %w", raw.Date, err)
	}

	canonical := ""
	if extracted := o.extractor.Extract(raw.Name); extracted != "" {
		resolved, similarity, err := o.artists.Resolve(ctx, extracted)
		if err != nil {
			return nil, err
		}
		canonical = resolved
		if similarity > 0 && similarity < 1.0 && resolved != extracted {
			o.logger.Debug("ARTIST", fmt.Sprintf("Deduplicated %q -> %q (similarity %.2f)", extracted, resolved, similarity))
		}
	}

	return &models.Event{
		ID:     raw.ID,
		Name:   raw.Name,
		Date:   date,
		Artist: canonical,
		Status: StatusFor(date, now),
	}, nil
}

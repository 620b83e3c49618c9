package store

import (
	"context"
	"fmt"
	"time"

	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"

	"github.com/uptrace/bun"
)

// DB is the persistence layer. Every write is either idempotent-keyed or a
// wholesale overwrite; the only destructive operation is DeleteOrderLines,
// used by forced resyncs.
type DB struct {
	Bun    *bun.DB
	Logger *logger.Logger
}

func New(bunDB *bun.DB, log *logger.Logger) *DB {
	return &DB{Bun: bunDB, Logger: log}
}

// ---------------- EVENTS ----------------

// UpsertEvent inserts an event or refreshes its mutable fields. Sync
// timestamps are stamped separately so an upsert never clears them.
func (d *DB) UpsertEvent(ctx context.Context, ev *models.Event) error {
	_, err := d.Bun.NewInsert().
		Model(ev).
		On("CONFLICT (event_id) DO UPDATE").
		Set("event_name = EXCLUDED.event_name").
		Set("event_date = EXCLUDED.event_date").
		Set("event_artist = EXCLUDED.event_artist").
		Set("event_status = EXCLUDED.event_status").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert event %d: %w", ev.ID, err)
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var ev models.Event
	err := d.Bun.NewSelect().
		Model(&ev).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Order("event_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListUpcomingEvents returns events dated today or later, ascending.
func (d *DB) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	cutoff := now.Truncate(24 * time.Hour)
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("event_date >= ?", cutoff).
		Order("event_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DistinctArtists lists the canonical artist names currently persisted.
// Feeds the fuzzy matcher's cache.
func (d *DB) DistinctArtists(ctx context.Context) ([]string, error) {
	var names []string
	err := d.Bun.NewSelect().
		ColumnExpr("DISTINCT event_artist").
		Table("events").
		Where("event_artist IS NOT NULL").
		Where("event_artist != ''").
		Scan(ctx, &names)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// StampStatusSync records a completed status refresh.
func (d *DB) StampStatusSync(ctx context.Context, eventID int64, status string, ts time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("event_status = ?", status).
		Set("event_updated = ?", ts).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stamp status sync for event %d: %w", eventID, err)
	}
	return nil
}

// StampOrderSync records a completed order sync cycle. Only called after
// persist and aggregate both succeed, so a crash mid-cycle leaves the event
// marked as still needing sync.
func (d *DB) StampOrderSync(ctx context.Context, eventID int64, ts time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("event_order_updated = ?", ts).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("stamp order sync for event %d: %w", eventID, err)
	}
	return nil
}

// ---------------- ORDER LINES ----------------

// InsertOrderLines writes order lines in fixed-size batches. The conflict
// target (order_name, order_sale_id) makes re-syncs no-ops for already-seen
// pairs. A failing batch is reported and skipped; batches already committed
// stay committed - the batch, not the run, is the unit of atomicity.
func (d *DB) InsertOrderLines(ctx context.Context, lines []models.OrderLine, batchSize int) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	inserted := 0
	failedBatches := 0
	var lastErr error

	for start := 0; start < len(lines); start += batchSize {
		end := start + batchSize
		if end > len(lines) {
			end = len(lines)
		}
		batch := lines[start:end]

		res, err := d.Bun.NewInsert().
			Model(&batch).
			On("CONFLICT (order_name, order_sale_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			failedBatches++
			lastErr = err
			if d.Logger != nil {
				d.Logger.Error("DATABASE", fmt.Sprintf("Order line batch %d-%d failed: %v", start, end, err))
			}
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		} else {
			inserted += len(batch)
		}
	}

	if failedBatches > 0 {
		return inserted, fmt.Errorf("%d order line batch(es) failed, last error: %w", failedBatches, lastErr)
	}
	return inserted, nil
}

// DeleteOrderLines removes every persisted line for an event. This is the
// forced-resync path and the only destructive operation in the subsystem;
// it is logged before executing.
func (d *DB) DeleteOrderLines(ctx context.Context, eventID int64) (int64, error) {
	if d.Logger != nil {
		d.Logger.Warn("DATABASE", fmt.Sprintf("Force resync: deleting all order lines for event %d", eventID))
	}
	res, err := d.Bun.NewDelete().
		Model((*models.OrderLine)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete order lines for event %d: %w", eventID, err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// OrderLinesPage reads one page of an event's persisted lines. The
// aggregator pages through these to avoid row-count limits.
func (d *DB) OrderLinesPage(ctx context.Context, eventID int64, offset, limit int) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := d.Bun.NewSelect().
		Model(&lines).
		Where("event_id = ?", eventID).
		Order("order_name ASC", "order_sale_id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (d *DB) CountOrderLines(ctx context.Context, eventID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.OrderLine)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}

// ---------------- SALES SUMMARIES ----------------

// UpsertSalesSummary overwrites the summary row wholesale. Never patched
// field-by-field: the aggregator recomputes from order lines every time.
func (d *DB) UpsertSalesSummary(ctx context.Context, s *models.SalesSummary) error {
	_, err := d.Bun.NewInsert().
		Model(s).
		On("CONFLICT (event_id) DO UPDATE").
		Set("sales_total_ga = EXCLUDED.sales_total_ga").
		Set("sales_total_vip = EXCLUDED.sales_total_vip").
		Set("sales_total_coatcheck = EXCLUDED.sales_total_coatcheck").
		Set("sales_total_comp_ga = EXCLUDED.sales_total_comp_ga").
		Set("sales_total_comp_vip = EXCLUDED.sales_total_comp_vip").
		Set("sales_total_free_ga = EXCLUDED.sales_total_free_ga").
		Set("sales_total_free_vip = EXCLUDED.sales_total_free_vip").
		Set("sales_gross = EXCLUDED.sales_gross").
		Set("sales_net = EXCLUDED.sales_net").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert sales summary for event %d: %w", s.EventID, err)
	}
	return nil
}

func (d *DB) GetSalesSummary(ctx context.Context, eventID int64) (*models.SalesSummary, error) {
	var summary models.SalesSummary
	err := d.Bun.NewSelect().
		Model(&summary).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

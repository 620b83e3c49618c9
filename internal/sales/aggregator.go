package sales

import (
	"context"
	"fmt"

	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"
)

// OrderReader pages through an event's persisted order lines.
type OrderReader interface {
	OrderLinesPage(ctx context.Context, eventID int64, offset, limit int) ([]models.OrderLine, error)
}

// SummaryWriter persists a recomputed summary wholesale.
type SummaryWriter interface {
	UpsertSalesSummary(ctx context.Context, s *models.SalesSummary) error
}

// Aggregator recomputes per-event sales totals from scratch by re-reading
// every persisted order line. It never does incremental arithmetic against a
// prior summary, so re-runs cannot double-count.
type Aggregator struct {
	reader   OrderReader
	writer   SummaryWriter
	pageSize int
	logger   *logger.Logger
}

func NewAggregator(reader OrderReader, writer SummaryWriter, log *logger.Logger) *Aggregator {
	return &Aggregator{
		reader:   reader,
		writer:   writer,
		pageSize: 1000,
		logger:   log,
	}
}

// Recompute rebuilds and persists the summary for one event. The returned
// summary may be all-zero, which callers surface as "no sales data".
func (a *Aggregator) Recompute(ctx context.Context, eventID int64) (*models.SalesSummary, error) {
	summary := &models.SalesSummary{EventID: eventID}

	offset := 0
	for {
		lines, err := a.reader.OrderLinesPage(ctx, eventID, offset, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("read order lines for event %d: %w", eventID, err)
		}
		for _, line := range lines {
			Classify(line, summary)
		}
		if len(lines) < a.pageSize {
			break
		}
		offset += a.pageSize
	}

	if err := a.writer.UpsertSalesSummary(ctx, summary); err != nil {
		return nil, err
	}

	if a.logger != nil && !summary.HasSales() {
		a.logger.Debug("SALES", fmt.Sprintf("Event %d has no sales data", eventID))
	}
	return summary, nil
}

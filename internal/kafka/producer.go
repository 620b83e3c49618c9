package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"

	"github.com/segmentio/kafka-go"
)

// SyncCompletedEvent is the notification payload published after an event's
// order sync cycle finishes. Consumed by the conversational layer.
type SyncCompletedEvent struct {
	RunID       string  `json:"run_id"`
	EventID     int64   `json:"event_id"`
	CompletedAt string  `json:"completed_at"`
	HasSales    bool    `json:"has_sales"`
	Gross       float64 `json:"gross"`
	Net         float64 `json:"net"`
}

// Producer publishes sync notifications. In mock mode messages are logged
// instead of written, for deployments without a broker.
type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
	Mock   bool
}

func NewProducer(brokers []string, topic string, mock bool, log *logger.Logger) *Producer {
	var writer *kafka.Writer
	if !mock {
		writer = kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return &Producer{Writer: writer, Logger: log, Mock: mock}
}

// PublishSyncCompleted announces one finished event sync, keyed by event id.
func (p *Producer) PublishSyncCompleted(runID string, eventID int64, summary *models.SalesSummary) error {
	payload := SyncCompletedEvent{
		RunID:       runID,
		EventID:     eventID,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if summary != nil {
		payload.HasSales = summary.HasSales()
		payload.Gross = summary.Gross
		payload.Net = summary.Net
	}

	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if p.Mock || p.Writer == nil {
		p.Logger.LogKafka("MOCK", "sync.completed", string(msgBytes))
		return nil
	}

	err = p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(strconv.FormatInt(eventID, 10)),
			Value: msgBytes,
		},
	)
	if err != nil {
		return fmt.Errorf("publish sync completed for event %d: %w", eventID, err)
	}

	p.Logger.LogKafka("PUBLISH", "sync.completed", fmt.Sprintf("event %d run %s", eventID, runID))
	return nil
}

func (p *Producer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}

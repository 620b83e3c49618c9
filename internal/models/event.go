package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event statuses. An event stays LIVE until one day after its date, then PAST.
const (
	StatusLive = "LIVE"
	StatusPast = "PAST"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID           int64     `bun:"event_id,pk"`
	Name         string    `bun:"event_name,notnull"`
	Date         time.Time `bun:"event_date,notnull"`
	Artist       string    `bun:"event_artist,nullzero"`
	Status       string    `bun:"event_status"`
	StatusSynced time.Time `bun:"event_updated,nullzero"`
	OrdersSynced time.Time `bun:"event_order_updated,nullzero"`
}

// EventListing is the shape handed to the conversational layer.
type EventListing struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

func (e *Event) Listing() EventListing {
	return EventListing{
		ID:   e.ID,
		Name: e.Name,
		Date: e.Date.Format("2006-01-02"),
	}
}

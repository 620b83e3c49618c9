package provider

import (
	"encoding/json"
	"time"
)

// RawEvent is one event record as returned by the provider's events
// endpoints. Date is venue-local calendar-date granularity.
type RawEvent struct {
	ID     int64  `json:"event_id"`
	Name   string `json:"event_name"`
	Date   string `json:"event_date"`
	Status string `json:"event_status"`
}

// ParseDate returns the event's calendar date. The provider emits plain
// dates but has been seen sending full timestamps on some endpoints.
func (e RawEvent) ParseDate() (time.Time, error) {
	if t, err := time.Parse("2006-01-02", e.Date); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, e.Date)
}

// RawOrder is one order record from the orders endpoint. Each order carries
// one or more sale items; the item, not the order, is the unit of inventory.
type RawOrder struct {
	Name         string        `json:"order_name"`
	PurchaseDate string        `json:"purchase_date"`
	RefType      string        `json:"ref_type"`
	RefSource    string        `json:"ref_source"`
	Items        []RawSaleItem `json:"sales_items"`
}

// RawSaleItem is one priced line within an order. Gross and Net come from
// the item's own totals: items price independently of the order total.
// Tickets is left raw because the provider alternates between a JSON array
// of serials, a JSON-encoded string, and a bare literal serial.
type RawSaleItem struct {
	SaleID   string          `json:"sale_id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Quantity int             `json:"quantity"`
	Total    float64         `json:"total"`
	Net      float64         `json:"net"`
	Tickets  json.RawMessage `json:"tickets"`
}

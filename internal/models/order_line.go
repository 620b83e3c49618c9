package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Ticket categories as reported by the provider. Anything else is kept
// verbatim and bucketed by keyword during aggregation.
const (
	CategoryGA     = "GA"
	CategoryVIP    = "VIP"
	CategoryPhoto  = "PHOTO"
	CategoryOutlet = "OUTLET"
	CategoryGuest  = "GUEST"
)

// OrderLine is one sale-item within a provider order. The composite
// (order_name, order_sale_id) pair is the idempotency key: re-syncing the
// same page of orders must never insert a pair twice.
type OrderLine struct {
	bun.BaseModel `bun:"table:events_orders"`

	EventID      int64     `bun:"event_id,notnull"`
	OrderName    string    `bun:"order_name,pk"`
	SaleID       string    `bun:"order_sale_id,pk"`
	Category     string    `bun:"order_category"`
	Quantity     int       `bun:"order_quantity"`
	ItemName     string    `bun:"order_sales_item_name"`
	Serials      string    `bun:"order_serials"`
	Gross        float64   `bun:"order_gross"`
	Net          float64   `bun:"order_net"`
	PurchaseDate time.Time `bun:"order_purchase_date,nullzero"`
	RefType      string    `bun:"order_ref_type"`
}

// SetSerials stores the ticket serial list as a JSON-encoded column value.
func (l *OrderLine) SetSerials(serials []string) {
	if len(serials) == 0 {
		l.Serials = "[]"
		return
	}
	encoded, err := json.Marshal(serials)
	if err != nil {
		l.Serials = "[]"
		return
	}
	l.Serials = string(encoded)
}

// SerialList decodes the stored serials. Older rows may hold a bare string
// instead of a JSON array; those are treated as a single serial.
func (l *OrderLine) SerialList() []string {
	if l.Serials == "" || l.Serials == "[]" {
		return nil
	}
	var serials []string
	if err := json.Unmarshal([]byte(l.Serials), &serials); err == nil {
		return serials
	}
	return []string{l.Serials}
}

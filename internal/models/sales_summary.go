package models

import (
	"github.com/uptrace/bun"
)

// SalesSummary is the per-event sales rollup. It is always recomputed from
// the full set of persisted order lines and written wholesale, never patched
// incrementally.
type SalesSummary struct {
	bun.BaseModel `bun:"table:events_sales"`

	EventID        int64   `bun:"event_id,pk"`
	TotalGA        int     `bun:"sales_total_ga"`
	TotalVIP       int     `bun:"sales_total_vip"`
	TotalCoatcheck int     `bun:"sales_total_coatcheck"`
	CompGA         int     `bun:"sales_total_comp_ga"`
	CompVIP        int     `bun:"sales_total_comp_vip"`
	FreeGA         int     `bun:"sales_total_free_ga"`
	FreeVIP        int     `bun:"sales_total_free_vip"`
	Gross          float64 `bun:"sales_gross"`
	Net            float64 `bun:"sales_net"`
}

// HasSales reports whether any bucket is non-zero. An all-zero summary is
// presented to callers as "no sales data" rather than a row of zeros.
func (s *SalesSummary) HasSales() bool {
	if s == nil {
		return false
	}
	return s.TotalGA != 0 || s.TotalVIP != 0 || s.TotalCoatcheck != 0 ||
		s.CompGA != 0 || s.CompVIP != 0 ||
		s.FreeGA != 0 || s.FreeVIP != 0 ||
		s.Gross != 0 || s.Net != 0
}

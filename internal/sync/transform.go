package sync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ms-ticket-sync/internal/models"
	"ms-ticket-sync/internal/provider"
)

// TransformOrder maps one raw provider order into canonical order lines, one
// per sale item. Revenue comes from the item's own total/net fields; the
// order-level total is ignored because items price independently.
func TransformOrder(eventID int64, raw provider.RawOrder) []models.OrderLine {
	purchased := parsePurchaseDate(raw.PurchaseDate)
	refType := buildRefType(raw.RefType, raw.RefSource)

	lines := make([]models.OrderLine, 0, len(raw.Items))
	for _, item := range raw.Items {
		line := models.OrderLine{
			EventID:      eventID,
			OrderName:    raw.Name,
			SaleID:       item.SaleID,
			Category:     normalizeCategory(item.Category),
			Quantity:     item.Quantity,
			ItemName:     item.Name,
			Gross:        item.Total,
			Net:          item.Net,
			PurchaseDate: purchased,
			RefType:      refType,
		}
		line.SetSerials(parseSerials(item.Tickets))
		lines = append(lines, line)
	}
	return lines
}

// parseSerials extracts ticket serial numbers. The provider's tickets field
// drifts between a JSON array, a JSON-encoded string holding an array, and a
// bare literal serial; anything unparseable becomes a single literal.
func parseSerials(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var direct []interface{}
	if err := json.Unmarshal(raw, &direct); err == nil {
		return stringify(direct)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		var nested []interface{}
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			return stringify(nested)
		}
		return []string{s}
	}

	return []string{strings.Trim(string(raw), `"`)}
}

func stringify(values []interface{}) []string {
	serials := make([]string, 0, len(values))
	for _, v := range values {
		switch value := v.(type) {
		case string:
			serials = append(serials, value)
		case float64:
			serials = append(serials, fmt.Sprintf("%.0f", value))
		default:
			serials = append(serials, fmt.Sprintf("%v", value))
		}
	}
	return serials
}

// parsePurchaseDate is tolerant of the provider's timestamp drift. An
// unparseable value yields the zero time rather than failing the order.
func parsePurchaseDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// buildRefType preserves both referral fields in the single ref column as
// "type" or "type/source". The aggregator compares the first segment.
func buildRefType(refType, refSource string) string {
	refType = strings.TrimSpace(refType)
	refSource = strings.TrimSpace(refSource)
	if refSource == "" || strings.EqualFold(refType, refSource) {
		return refType
	}
	if refType == "" {
		return refSource
	}
	return refType + "/" + refSource
}

func normalizeCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

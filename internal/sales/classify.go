package sales

import (
	"strings"

	"ms-ticket-sync/internal/models"
)

// RefTypeBackstage is the provider's referral marker for staff/backstage
// issued tickets. The transformer may append a referral source after "/";
// comparisons look at the first segment only.
const RefTypeBackstage = "backstage"

// Keyword sets used by the bucketing heuristics. These encode operational
// judgment calls about how the venue names its items; they are matched as
// case-insensitive substrings and should not be generalized.
var (
	vipKeywords       = []string{"vip", "side stage"}
	freeExclusionKeys = []string{"comp", "physical ticket", "door"}
)

// classificationRule is one row of the sales decision table. Rules are
// evaluated in order and the first match wins.
type classificationRule struct {
	name    string
	matches func(models.OrderLine) bool
	apply   func(*models.SalesSummary, models.OrderLine)
}

// The decision table:
//
//	paid: gross or net > 0           -> paid bucket by category, revenue summed
//	comp: zero revenue, backstage    -> comp bucket, GA/VIP by category or keyword
//	      referral, name has "comp"
//	free: zero revenue, not backstage,
//	      name lacks exclusion words -> free bucket, GA/VIP by keyword
//
// Lines matching no rule (e.g. zero-revenue door lists) are ignored.
var classificationRules = []classificationRule{
	{
		name: "paid",
		matches: func(l models.OrderLine) bool {
			return l.Gross > 0 || l.Net > 0
		},
		apply: func(s *models.SalesSummary, l models.OrderLine) {
			switch l.Category {
			case models.CategoryVIP, models.CategoryPhoto:
				// PHOTO passes are sold and reported alongside VIP.
				s.TotalVIP += l.Quantity
			case models.CategoryOutlet:
				s.TotalCoatcheck += l.Quantity
			case models.CategoryGA:
				s.TotalGA += l.Quantity
			default:
				if isVIPName(l.ItemName) {
					s.TotalVIP += l.Quantity
				} else {
					s.TotalGA += l.Quantity
				}
			}
			s.Gross += l.Gross
			s.Net += l.Net
		},
	},
	{
		name: "comp",
		matches: func(l models.OrderLine) bool {
			return l.Gross == 0 && l.Net == 0 &&
				isBackstage(l.RefType) &&
				containsFold(l.ItemName, "comp")
		},
		apply: func(s *models.SalesSummary, l models.OrderLine) {
			if l.Category == models.CategoryVIP || isVIPName(l.ItemName) {
				s.CompVIP += l.Quantity
			} else {
				s.CompGA += l.Quantity
			}
		},
	},
	{
		name: "free",
		matches: func(l models.OrderLine) bool {
			if l.Gross != 0 || l.Net != 0 || isBackstage(l.RefType) {
				return false
			}
			for _, key := range freeExclusionKeys {
				if containsFold(l.ItemName, key) {
					return false
				}
			}
			return true
		},
		apply: func(s *models.SalesSummary, l models.OrderLine) {
			// GUEST lines carry no useful category signal; the item name
			// decides the bucket.
			if l.Category == models.CategoryVIP || isVIPName(l.ItemName) {
				s.FreeVIP += l.Quantity
			} else {
				s.FreeGA += l.Quantity
			}
		},
	},
}

// Classify applies the decision table to one order line, updating the
// summary in place.
func Classify(line models.OrderLine, summary *models.SalesSummary) {
	for _, rule := range classificationRules {
		if rule.matches(line) {
			rule.apply(summary, line)
			return
		}
	}
}

func isBackstage(refType string) bool {
	segment := refType
	if idx := strings.IndexByte(segment, '/'); idx >= 0 {
		segment = segment[:idx]
	}
	return strings.EqualFold(segment, RefTypeBackstage)
}

func isVIPName(itemName string) bool {
	for _, key := range vipKeywords {
		if containsFold(itemName, key) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

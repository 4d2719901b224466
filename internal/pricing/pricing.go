// Package pricing holds the tier registry: one ordered table of resource
// bundles consulted by provisioning (label match), renewal (RAM match) and
// the price calculator. Keeping a single table avoids the three copies
// drifting apart.
package pricing

import (
	"fmt"
	"strings"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/models"
)

// Tier is a named resource bundle mapped to a base 30-day price. Raw values
// of 0 mean unlimited.
type Tier struct {
	Label     string // fragment matched against product labels, e.g. "1GB"
	Product   string // canonical product name, e.g. "panel-1gb"
	RAMMB     int
	DiskMB    int
	CPU       int // percent
	BasePrice int64
}

// tiers is ordered smallest to largest; the unlimited tier is last. The
// smallest tier doubles as the lenient fallback for unmatched labels and
// unknown RAM values.
var tiers = []Tier{
	{Label: "1GB", Product: "panel-1gb", RAMMB: 1024, DiskMB: 1024, CPU: 40, BasePrice: 3000},
	{Label: "2GB", Product: "panel-2gb", RAMMB: 2048, DiskMB: 2048, CPU: 60, BasePrice: 5000},
	{Label: "3GB", Product: "panel-3gb", RAMMB: 3072, DiskMB: 3072, CPU: 80, BasePrice: 7000},
	{Label: "4GB", Product: "panel-4gb", RAMMB: 4096, DiskMB: 4096, CPU: 100, BasePrice: 9000},
	{Label: "5GB", Product: "panel-5gb", RAMMB: 5120, DiskMB: 5120, CPU: 120, BasePrice: 11000},
	{Label: "6GB", Product: "panel-6gb", RAMMB: 6144, DiskMB: 6144, CPU: 140, BasePrice: 13000},
	{Label: "7GB", Product: "panel-7gb", RAMMB: 7168, DiskMB: 7168, CPU: 160, BasePrice: 15000},
	{Label: "UNLIMITED", Product: "panel-unli", RAMMB: 0, DiskMB: 0, CPU: 0, BasePrice: 20000},
}

// Tiers returns a copy of the registry in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// MatchLabel resolves a product label to its tier by case-insensitive
// substring match. Unmatched labels fall back to the smallest tier; this is
// a deliberate lenient default.
func MatchLabel(productName string) Tier {
	upper := strings.ToUpper(productName)
	// Check UNLIMITED first so "UNLIMITED" never partial-matches a sized label.
	for i := len(tiers) - 1; i >= 0; i-- {
		if strings.Contains(upper, tiers[i].Label) {
			return tiers[i]
		}
	}
	return tiers[0]
}

// MatchRAM resolves a stored RAM limit back to its tier using the known
// quanta. Unknown values default to the smallest tier.
func MatchRAM(ramMB int) Tier {
	for _, t := range tiers {
		if t.RAMMB == ramMB {
			return t
		}
	}
	return tiers[0]
}

// BasePrice returns the 30-day price for a tier, preferring the live
// settings price table over the static default.
func BasePrice(t Tier, prices map[string]int64) int64 {
	if p, ok := prices[t.Product]; ok && p > 0 {
		return p
	}
	return t.BasePrice
}

// Calculate derives the total price for a purchase:
// ceil(base_price / 30 * days), so Calculate(base, 30) == base exactly.
func Calculate(basePrice int64, days int) int64 {
	return (basePrice*int64(days) + 29) / 30
}

// ValidateAmount checks a client-declared amount against the server-side
// computation and rejects mismatches with the expected value attached.
func ValidateAmount(amount, basePrice int64, days int) error {
	expected := Calculate(basePrice, days)
	if amount != expected {
		return apperrors.PriceMismatch(expected)
	}
	return nil
}

// Specs renders a tier into the stored spec block.
func (t Tier) Specs() models.Specs {
	return models.Specs{
		RAM:     formatLimit(t.RAMMB, "MB"),
		CPU:     formatLimit(t.CPU, "%"),
		Disk:    formatLimit(t.DiskMB, "MB"),
		RAMRaw:  t.RAMMB,
		CPURaw:  t.CPU,
		DiskRaw: t.DiskMB,
	}
}

func formatLimit(v int, unit string) string {
	if v == 0 {
		return "Unlimited"
	}
	if unit == "%" {
		return fmt.Sprintf("%d%%", v)
	}
	return fmt.Sprintf("%d %s", v, unit)
}

// DefaultPrices returns the static price table keyed by product name, used
// when the settings document has no overrides.
func DefaultPrices() map[string]int64 {
	out := make(map[string]int64, len(tiers))
	for _, t := range tiers {
		out[t.Product] = t.BasePrice
	}
	return out
}

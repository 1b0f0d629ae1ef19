package rfa

import (
	"sort"

	"uniondash/backend/internal/domain"
)

// TierMatch is the resolved tier for a revenue amount plus the progression
// toward the next tier's floor (100 when the top tier is reached). The
// progression is informational output for gauges, never used in arithmetic.
type TierMatch struct {
	Tier               domain.Tier
	ProgressionPercent float64
}

// ResolveTier picks the tier whose band contains amount. Tiers may arrive in
// any order; they are sorted by MinAmount ascending here rather than trusting
// the caller. A boundary amount belongs to the tier that starts there.
//
// Returns nil when tiers is empty or amount is negative. "No tier matched" is
// a normal outcome (client below the lowest floor), not an error.
func ResolveTier(amount float64, tiers []domain.Tier) *TierMatch {
	if len(tiers) == 0 || amount < 0 {
		return nil
	}

	sorted := make([]domain.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinAmount < sorted[j].MinAmount })

	for i, tier := range sorted {
		last := i == len(sorted)-1
		if amount < tier.MinAmount {
			continue
		}
		if !last && amount >= sorted[i+1].MinAmount {
			continue
		}

		progression := 100.0
		if !last {
			span := sorted[i+1].MinAmount - tier.MinAmount
			if span > 0 {
				progression = (amount - tier.MinAmount) / span * 100
			}
		}
		return &TierMatch{Tier: tier, ProgressionPercent: progression}
	}

	return nil
}

// CalculateStandard applies the resolved tier's rates to the full revenue
// amount. This is a flat-rate-per-tier model: the selected tier's percentage
// applies to the whole amount, not just the slice inside the band. That is
// the contractual behavior of the standard RFA programs, not an
// approximation of marginal brackets.
func CalculateStandard(revenue float64, tiers []domain.Tier) *domain.StandardRebate {
	match := ResolveTier(revenue, tiers)
	if match == nil {
		return nil
	}

	return &domain.StandardRebate{
		Tier:               match.Tier,
		RebateAmount:       revenue * match.Tier.RebatePercent / 100,
		BonusAmount:        revenue * match.Tier.BonusPercent / 100,
		ProgressionPercent: match.ProgressionPercent,
	}
}

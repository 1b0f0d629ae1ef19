package rfa

import "uniondash/backend/internal/domain"

// CalculateTripartite evaluates a structured tripartite agreement against an
// already-scoped revenue amount. Tripartite rules are a single-threshold
// cliff: below MinThreshold nothing applies, at or above it the rate applies
// to the whole amount. Inactive agreements never produce a rebate.
func CalculateTripartite(revenue float64, agreement domain.TripartiteAgreement) *domain.TripartiteRebate {
	if !agreement.Active || revenue < agreement.MinThreshold {
		return nil
	}

	return &domain.TripartiteRebate{
		Supplier:      agreement.Supplier,
		Scope:         agreement.Scope,
		RebatePercent: agreement.RebatePercent,
		RebateAmount:  revenue * agreement.RebatePercent / 100,
	}
}

// CalculateColumnMapped evaluates a column-mapped tripartite rule. Some
// import sources carry brand or family information in positional columns
// that never get normalized into RevenueRecord.Brand/SubFamily; the rule
// names the column index and the exact value to match. Revenue is summed
// over the records of (clientCode, supplier, year) whose raw column matches,
// then the same single-threshold cliff applies.
func CalculateColumnMapped(records []domain.RevenueRecord, clientCode, supplier string, rule domain.ColumnRule, year int) *domain.TripartiteRebate {
	if !rule.Active {
		return nil
	}

	total := 0.0
	for _, record := range records {
		if record.ClientCode != clientCode || record.Supplier != supplier || record.Year != year {
			continue
		}
		if record.RawColumns[rule.ColumnIndex] != rule.ExpectedValue {
			continue
		}
		total += record.Amount
	}

	if total < rule.MinThreshold {
		return nil
	}

	return &domain.TripartiteRebate{
		Supplier:      rule.Supplier,
		Scope:         rule.Scope,
		RebatePercent: rule.RebatePercent,
		RebateAmount:  total * rule.RebatePercent / 100,
	}
}

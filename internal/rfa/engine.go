package rfa

import (
	"log"
	"sort"
	"strings"

	"uniondash/backend/internal/domain"
)

// Engine runs one full aggregation pass: revenue records plus a rule
// snapshot in, one ClientRebateResume per client out. It holds no mutable
// state between passes; identical inputs always produce identical output.
type Engine struct {
	suppliers []string
}

// NewEngine builds an engine for a fixed, configuration-defined supplier
// list. Suppliers appearing only in the data are not picked up: rebate
// programs exist per negotiated supplier, not per observed one.
func NewEngine(suppliers []string) *Engine {
	if len(suppliers) == 0 {
		suppliers = DefaultSuppliers()
	}
	return &Engine{suppliers: suppliers}
}

// Stats reports what one pass skipped or degraded on. Nothing in here is
// fatal; the counts exist for observability.
type Stats struct {
	SkippedRecords  int `json:"skipped_records"`
	UnknownPrograms int `json:"unknown_programs"`
}

// Aggregate computes the rebate resume of every client that appears in the
// records or the affectations for the given campaign year. Clients without
// an affectation (or with an empty program id) still get a resume, with
// zero amounts and every supplier marked ModeNone: the output set is always
// complete over the known clients.
//
// Standard and tripartite amounts are additive when both apply. Column-mapped
// tripartite rules take precedence over structured agreements for the same
// supplier and scope; the structured agreement is only consulted when no
// active column rule covers the selection.
func (e *Engine) Aggregate(records []domain.RevenueRecord, cfg Configuration, year int) ([]domain.ClientRebateResume, Stats) {
	var stats Stats

	classifier := NewClassifier(cfg.FamilyRules)

	programsByID := make(map[string]domain.TieredProgram, len(cfg.Programs))
	for _, program := range cfg.Programs {
		programsByID[program.ID] = program
	}

	affectationsByClient := make(map[string]domain.ClientAffectation, len(cfg.Affectations))
	for _, affectation := range cfg.Affectations {
		affectationsByClient[affectation.ClientCode] = affectation
	}

	// Pre-index the year's records per client so each client's pass only
	// scans its own rows.
	recordsByClient := make(map[string][]domain.RevenueRecord)
	clients := make(map[string]struct{})
	for _, record := range records {
		if record.ClientCode == "" || record.Supplier == "" {
			stats.SkippedRecords++
			continue
		}
		clients[record.ClientCode] = struct{}{}
		if record.Year != year {
			continue
		}
		recordsByClient[record.ClientCode] = append(recordsByClient[record.ClientCode], record)
	}
	for code := range affectationsByClient {
		clients[code] = struct{}{}
	}

	codes := make([]string, 0, len(clients))
	for code := range clients {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	resumes := make([]domain.ClientRebateResume, 0, len(codes))
	for _, code := range codes {
		clientRecords := recordsByClient[code]

		affectation, ok := affectationsByClient[code]
		if !ok || affectation.StandardProgramID == "" {
			resumes = append(resumes, e.emptyResume(code, "", clientRecords, year))
			continue
		}

		program, ok := programsByID[affectation.StandardProgramID]
		if !ok {
			// Bad affectation is a configuration defect, not a reason to
			// drop the client from the output.
			stats.UnknownPrograms++
			log.Printf("[rfa] client %s references unknown program %q, emitting zero resume", code, affectation.StandardProgramID)
			resumes = append(resumes, e.emptyResume(code, affectation.StandardProgramID, clientRecords, year))
			continue
		}

		resume := domain.ClientRebateResume{
			ClientCode:        code,
			StandardProgramID: program.ID,
			PerSupplier:       make([]domain.SupplierRebate, 0, len(e.suppliers)),
		}

		for _, supplier := range e.suppliers {
			revenue := supplierRevenue(clientRecords, supplier, year)

			standard := CalculateStandard(revenue, program.Tiers)

			var tripartite *domain.TripartiteRebate
			if selection, found := selectionFor(affectation, supplier); found {
				tripartite = e.evaluateTripartite(clientRecords, classifier, cfg, code, selection, year)
			}

			entry := domain.SupplierRebate{
				Supplier:     supplier,
				TotalRevenue: revenue,
				AppliedMode:  domain.ModeNone,
				Standard:     standard,
				Tripartite:   tripartite,
			}
			if standard != nil {
				entry.AppliedMode = domain.ModeStandard
				entry.TotalAmount += standard.RebateAmount + standard.BonusAmount
				resume.TotalRebate += standard.RebateAmount
				resume.TotalBonus += standard.BonusAmount
			}
			if tripartite != nil {
				entry.AppliedMode = domain.ModeTripartite
				entry.TotalAmount += tripartite.RebateAmount
				resume.TotalRebate += tripartite.RebateAmount
			}

			resume.PerSupplier = append(resume.PerSupplier, entry)
		}

		resumes = append(resumes, resume)
	}

	return resumes, stats
}

// evaluateTripartite resolves one opted-in selection. Column-mapped rules
// win over structured agreements; the precedence is deliberate and covered
// by tests, not an accident of slice order.
func (e *Engine) evaluateTripartite(
	clientRecords []domain.RevenueRecord,
	classifier *Classifier,
	cfg Configuration,
	clientCode string,
	selection domain.TripartiteSelection,
	year int,
) *domain.TripartiteRebate {
	for _, rule := range cfg.ColumnRules {
		if !rule.Active || rule.Supplier != selection.Supplier || rule.Scope != selection.Scope {
			continue
		}
		return CalculateColumnMapped(clientRecords, clientCode, selection.Supplier, rule, year)
	}

	for _, agreement := range cfg.Agreements {
		if !agreement.Active || agreement.Supplier != selection.Supplier || agreement.Scope != selection.Scope {
			continue
		}
		scoped := scopedRevenue(clientRecords, classifier, selection.Supplier, agreement.Scope, year)
		return CalculateTripartite(scoped, agreement)
	}

	return nil
}

func (e *Engine) emptyResume(code, programID string, clientRecords []domain.RevenueRecord, year int) domain.ClientRebateResume {
	resume := domain.ClientRebateResume{
		ClientCode:        code,
		StandardProgramID: programID,
		PerSupplier:       make([]domain.SupplierRebate, 0, len(e.suppliers)),
	}
	for _, supplier := range e.suppliers {
		resume.PerSupplier = append(resume.PerSupplier, domain.SupplierRebate{
			Supplier:     supplier,
			TotalRevenue: supplierRevenue(clientRecords, supplier, year),
			AppliedMode:  domain.ModeNone,
		})
	}
	return resume
}

func supplierRevenue(records []domain.RevenueRecord, supplier string, year int) float64 {
	total := 0.0
	for _, record := range records {
		if record.Supplier == supplier && record.Year == year {
			total += record.Amount
		}
	}
	return total
}

// scopedRevenue sums the revenue a structured tripartite agreement applies
// to: records of the matching brand, or records whose sub-family classifies
// into the matching family.
func scopedRevenue(records []domain.RevenueRecord, classifier *Classifier, supplier string, scope domain.Scope, year int) float64 {
	total := 0.0
	for _, record := range records {
		if record.Supplier != supplier || record.Year != year {
			continue
		}
		switch scope.Kind {
		case domain.ScopeBrand:
			if strings.EqualFold(record.Brand, scope.Value) {
				total += record.Amount
			}
		case domain.ScopeFamily:
			if family, ok := classifier.Classify(record.SubFamily); ok && family == scope.Value {
				total += record.Amount
			}
		}
	}
	return total
}

func selectionFor(affectation domain.ClientAffectation, supplier string) (domain.TripartiteSelection, bool) {
	for _, selection := range affectation.Selections {
		if selection.Supplier == supplier {
			return selection, true
		}
	}
	return domain.TripartiteSelection{}, false
}

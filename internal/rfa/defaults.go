package rfa

import "uniondash/backend/internal/domain"

// Configuration is the full rule set one aggregation pass runs against.
// It is a read-only snapshot assembled by the caller; the engine never
// reaches for ambient globals.
type Configuration struct {
	Programs     []domain.TieredProgram
	Agreements   []domain.TripartiteAgreement
	ColumnRules  []domain.ColumnRule
	FamilyRules  []domain.FamilyRule
	Affectations []domain.ClientAffectation
}

func amount(v float64) *float64 { return &v }

// DefaultConfiguration returns the rule set the groupement ships with:
// the 2024 standard contract, the supplier tripartite agreements, their
// column mappings for unnormalized imports, and the family classification
// table. Production deployments replace all of it through the admin API.
func DefaultConfiguration() Configuration {
	return Configuration{
		Programs: []domain.TieredProgram{
			{
				ID:          "contrat-standard-2024",
				Name:        "Contrat Standard 2024",
				Description: "Contrat RFA standard avec seuils progressifs et bonus groupement",
				Active:      true,
				Tiers: []domain.Tier{
					{MinAmount: 20000, MaxAmount: amount(50000), RebatePercent: 1.0, BonusPercent: 0.5},
					{MinAmount: 50000, MaxAmount: amount(75000), RebatePercent: 1.5, BonusPercent: 1.0},
					{MinAmount: 75000, MaxAmount: amount(100000), RebatePercent: 2.0, BonusPercent: 1.5},
					{MinAmount: 100000, MaxAmount: amount(150000), RebatePercent: 2.5, BonusPercent: 2.0},
					{MinAmount: 150000, MaxAmount: amount(200000), RebatePercent: 3.0, BonusPercent: 2.5},
					{MinAmount: 200000, MaxAmount: nil, RebatePercent: 3.5, BonusPercent: 3.0},
				},
			},
		},
		Agreements: []domain.TripartiteAgreement{
			{Supplier: "Alliance", Scope: domain.BrandScope("SCHAEFFLER"), MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("DELPHI"), MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("BREMBO"), MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("SOGEFI"), MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "DCA", Scope: domain.BrandScope("SBS"), MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("freinage"), MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("embrayage"), MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("filtre"), MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("distribution"), MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("etancheite moteur"), MinThreshold: 5000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("thermique"), MinThreshold: 5000, RebatePercent: 1.5, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("freinage"), MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("embrayage"), MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("filtre"), MinThreshold: 25000, RebatePercent: 1.5, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("distribution"), MinThreshold: 25000, RebatePercent: 1.5, Active: true},
		},
		ColumnRules: []domain.ColumnRule{
			{Supplier: "Alliance", Scope: domain.BrandScope("SCHAEFFLER"), ColumnIndex: 7, ExpectedValue: "SCHAEFFLER", MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("DELPHI"), ColumnIndex: 8, ExpectedValue: "DELPHI", MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("SOGEFI"), ColumnIndex: 7, ExpectedValue: "SOGEFI", MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "Alliance", Scope: domain.BrandScope("BREMBO"), ColumnIndex: 9, ExpectedValue: "BREMBO", MinThreshold: 20000, RebatePercent: 2.0, Active: true},
			{Supplier: "DCA", Scope: domain.BrandScope("SBS"), ColumnIndex: 6, ExpectedValue: "SBS", MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("freinage"), ColumnIndex: 10, ExpectedValue: "freinage", MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("embrayage"), ColumnIndex: 11, ExpectedValue: "embrayage", MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("filtre"), ColumnIndex: 12, ExpectedValue: "filtre", MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("distribution"), ColumnIndex: 13, ExpectedValue: "distribution", MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("etancheite moteur"), ColumnIndex: 14, ExpectedValue: "etancheite moteur", MinThreshold: 5000, RebatePercent: 2.0, Active: true},
			{Supplier: "Exadis", Scope: domain.FamilyScope("thermique"), ColumnIndex: 15, ExpectedValue: "thermique", MinThreshold: 5000, RebatePercent: 1.5, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("freinage"), ColumnIndex: 16, ExpectedValue: "freinage", MinThreshold: 25000, RebatePercent: 2.0, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("embrayage"), ColumnIndex: 17, ExpectedValue: "embrayage", MinThreshold: 25000, RebatePercent: 3.0, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("filtre"), ColumnIndex: 18, ExpectedValue: "filtre", MinThreshold: 25000, RebatePercent: 1.5, Active: true},
			{Supplier: "ACR", Scope: domain.FamilyScope("distribution"), ColumnIndex: 19, ExpectedValue: "distribution", MinThreshold: 25000, RebatePercent: 1.5, Active: true},
		},
		FamilyRules: []domain.FamilyRule{
			{Family: "freinage", SubFamilies: []string{"DISQUES DE FREIN AVEC RLTS", "DISQUES DE FREIN SANS RLTS", "KITS DE FREIN VL", "PLAQUETTES DE FREIN VL"}},
			{Family: "embrayage", SubFamilies: []string{"EMBRAYAGES", "KITS EMBRAYAGE"}},
			{Family: "filtre", SubFamilies: []string{"FILTRES A AIR VL", "FILTRES D'HABITACLE VL", "FILTRES GO VL", "FILTRES HUILE VL ET MOTO"}},
			{Family: "distribution", SubFamilies: []string{"CHAINES DE DISTRIBUTION", "TENDERS DE CHAINE", "GUIDES CHAINE"}},
			{Family: "etancheite moteur", SubFamilies: []string{"JOINTS", "JOINTS CULASSE", "JOINTS VILBREQUIN"}},
			{Family: "thermique", SubFamilies: []string{"THERMOSTATS", "RADIATEURS", "VENTILATEURS"}},
		},
	}
}

// DefaultSuppliers is the closed list of suppliers the groupement tracks for
// rebate purposes. Suppliers found only in data are ignored by design.
func DefaultSuppliers() []string {
	return []string{"Alliance", "DCA", "Exadis", "ACR"}
}

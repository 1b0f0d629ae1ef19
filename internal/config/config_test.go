package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadParsesTrackedSuppliers(t *testing.T) {
	t.Setenv("TRACKED_SUPPLIERS", " Alliance , DCA ,, Exadis ")

	cfg := Load()
	if len(cfg.TrackedSuppliers) != 3 {
		t.Fatalf("expected 3 suppliers, got %v", cfg.TrackedSuppliers)
	}
	if cfg.TrackedSuppliers[0] != "Alliance" || cfg.TrackedSuppliers[2] != "Exadis" {
		t.Fatalf("expected trimmed supplier names, got %v", cfg.TrackedSuppliers)
	}
}

func TestLoadFallsBackOnBadCampaignYear(t *testing.T) {
	t.Setenv("CAMPAIGN_YEAR", "not-a-year")

	cfg := Load()
	if cfg.CampaignYear != 2025 {
		t.Fatalf("expected default campaign year 2025, got %d", cfg.CampaignYear)
	}
}

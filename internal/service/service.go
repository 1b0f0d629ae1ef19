package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"uniondash/backend/internal/cache"
	"uniondash/backend/internal/domain"
	"uniondash/backend/internal/rfa"
	"uniondash/backend/internal/store"
	"uniondash/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo         store.Repository
	resumes      cache.ResumeCache
	engine       *rfa.Engine
	campaignYear int
	resumeTTL    time.Duration
	suppliers    []string
}

func New(repo store.Repository, resumeCache cache.ResumeCache, suppliers []string, campaignYear int, resumeTTL time.Duration) *Service {
	if resumeCache == nil {
		resumeCache = cache.NoopResumeCache{}
	}
	if len(suppliers) == 0 {
		suppliers = rfa.DefaultSuppliers()
	}
	if campaignYear == 0 {
		campaignYear = 2025
	}
	if resumeTTL <= 0 {
		resumeTTL = 5 * time.Minute
	}

	return &Service{
		repo:         repo,
		resumes:      resumeCache,
		engine:       rfa.NewEngine(suppliers),
		campaignYear: campaignYear,
		resumeTTL:    resumeTTL,
		suppliers:    suppliers,
	}
}

func (s *Service) CampaignYear() int { return s.campaignYear }

func (s *Service) TrackedSuppliers() []string {
	out := make([]string, len(s.suppliers))
	copy(out, s.suppliers)
	return out
}

// ComputeResumes runs (or serves from cache) one full aggregation pass for a
// campaign year. The cached value is only a shortcut; every configuration or
// revenue write invalidates it.
func (s *Service) ComputeResumes(ctx context.Context, year int) ([]domain.ClientRebateResume, rfa.Stats, error) {
	if year == 0 {
		year = s.campaignYear
	}

	if cached, ok, err := s.resumes.Get(ctx, year); err == nil && ok {
		return cached, rfa.Stats{}, nil
	}

	records, err := s.repo.ListRevenueRecords(ctx, year)
	if err != nil {
		return nil, rfa.Stats{}, fmt.Errorf("load revenue records: %w", err)
	}
	cfg, err := s.loadRuleSnapshot(ctx)
	if err != nil {
		return nil, rfa.Stats{}, err
	}

	resumes, stats := s.engine.Aggregate(records, cfg, year)
	if stats.SkippedRecords > 0 || stats.UnknownPrograms > 0 {
		log.Printf("[service] rfa pass year=%d skipped_records=%d unknown_programs=%d", year, stats.SkippedRecords, stats.UnknownPrograms)
	}

	if err := s.resumes.Set(ctx, year, resumes, s.resumeTTL); err != nil {
		log.Printf("[service] resume cache set failed: %v", err)
	}
	return resumes, stats, nil
}

func (s *Service) GetClientResume(ctx context.Context, clientCode string, year int) (*domain.ClientRebateResume, error) {
	clientCode = strings.TrimSpace(clientCode)
	if clientCode == "" {
		return nil, store.ErrInvalidInput
	}

	resumes, _, err := s.ComputeResumes(ctx, year)
	if err != nil {
		return nil, err
	}
	for i := range resumes {
		if resumes[i].ClientCode == clientCode {
			return &resumes[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// loadRuleSnapshot reads the full rule set in one shot so a single pass
// always sees a consistent configuration.
func (s *Service) loadRuleSnapshot(ctx context.Context) (rfa.Configuration, error) {
	var cfg rfa.Configuration
	var err error

	if cfg.Programs, err = s.repo.ListPrograms(ctx); err != nil {
		return cfg, fmt.Errorf("load programs: %w", err)
	}
	if cfg.Agreements, err = s.repo.ListAgreements(ctx); err != nil {
		return cfg, fmt.Errorf("load agreements: %w", err)
	}
	if cfg.ColumnRules, err = s.repo.ListColumnRules(ctx); err != nil {
		return cfg, fmt.Errorf("load column rules: %w", err)
	}
	if cfg.FamilyRules, err = s.repo.ListFamilyRules(ctx); err != nil {
		return cfg, fmt.Errorf("load family rules: %w", err)
	}
	if cfg.Affectations, err = s.repo.ListAffectations(ctx); err != nil {
		return cfg, fmt.Errorf("load affectations: %w", err)
	}

	for _, program := range cfg.Programs {
		if warning := checkTierContiguity(program.Tiers); warning != "" {
			// Degraded but not fatal: the resolver still picks the first
			// matching tier. The write path should have rejected this.
			log.Printf("[service] program %s has inconsistent tiers: %s", program.ID, warning)
		}
	}

	return cfg, nil
}

func (s *Service) ImportRevenue(ctx context.Context, req domain.RevenueImportRequest) (domain.RevenueImportResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.RevenueImportResponse{}, fmt.Errorf("admin role required")
	}

	valid := make([]domain.RevenueRecord, 0, len(req.Records))
	skipped := 0
	years := map[int]struct{}{}
	for _, record := range req.Records {
		record.ClientCode = strings.TrimSpace(record.ClientCode)
		record.Supplier = strings.TrimSpace(record.Supplier)
		if record.ClientCode == "" || record.Supplier == "" || record.Year == 0 {
			skipped++
			continue
		}
		// Negative amounts are a data-quality concern for the import side;
		// they pass through and propagate arithmetically.
		valid = append(valid, record)
		years[record.Year] = struct{}{}
	}

	imported, err := s.repo.ImportRevenueRecords(ctx, valid)
	if err != nil {
		return domain.RevenueImportResponse{}, err
	}

	for year := range years {
		s.invalidateResumes(ctx, year)
	}
	s.logAudit(ctx, "revenue_import", "revenue", "", fmt.Sprintf("imported=%d,skipped=%d", imported, skipped))

	return domain.RevenueImportResponse{Imported: imported, Skipped: skipped}, nil
}

func (s *Service) ListClientRevenue(ctx context.Context, clientCode string, year int) ([]domain.RevenueRecord, error) {
	clientCode = strings.TrimSpace(clientCode)
	if clientCode == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListClientRevenueRecords(ctx, clientCode, year)
}

func (s *Service) ListPrograms(ctx context.Context) ([]domain.TieredProgram, error) {
	return s.repo.ListPrograms(ctx)
}

func (s *Service) CreateProgram(ctx context.Context, req domain.ProgramCreateRequest) (*domain.TieredProgram, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Tiers) == 0 {
		return nil, store.ErrInvalidInput
	}
	if warning := checkTierContiguity(req.Tiers); warning != "" {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidInput, warning)
	}

	program := domain.TieredProgram{
		ID:          xid.New("contrat"),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Tiers:       sortedTiers(req.Tiers),
		Active:      true,
	}

	created, err := s.repo.CreateProgram(ctx, program)
	if err != nil {
		return nil, err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "program_create", "program", created.ID, fmt.Sprintf("name=%s,tiers=%d", created.Name, len(created.Tiers)))
	return created, nil
}

func (s *Service) UpdateProgram(ctx context.Context, id string, req domain.ProgramUpdateRequest) (*domain.TieredProgram, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	current, err := s.repo.GetProgramByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		current.Description = strings.TrimSpace(*req.Description)
	}
	if req.Tiers != nil {
		if warning := checkTierContiguity(req.Tiers); warning != "" {
			return nil, fmt.Errorf("%w: %s", store.ErrInvalidInput, warning)
		}
		current.Tiers = sortedTiers(req.Tiers)
	}
	if req.Active != nil {
		current.Active = *req.Active
	}
	if current.Name == "" || len(current.Tiers) == 0 {
		return nil, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateProgram(ctx, *current)
	if err != nil {
		return nil, err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "program_update", "program", updated.ID, fmt.Sprintf("name=%s", updated.Name))
	return updated, nil
}

func (s *Service) ListAgreements(ctx context.Context) ([]domain.TripartiteAgreement, error) {
	return s.repo.ListAgreements(ctx)
}

func (s *Service) ReplaceAgreements(ctx context.Context, agreements []domain.TripartiteAgreement) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	for _, agreement := range agreements {
		if strings.TrimSpace(agreement.Supplier) == "" || !agreement.Scope.Valid() {
			return store.ErrInvalidInput
		}
	}

	if err := s.repo.ReplaceAgreements(ctx, agreements); err != nil {
		return err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "agreements_replace", "tripartite", "", fmt.Sprintf("count=%d", len(agreements)))
	return nil
}

func (s *Service) ListColumnRules(ctx context.Context) ([]domain.ColumnRule, error) {
	return s.repo.ListColumnRules(ctx)
}

func (s *Service) ReplaceColumnRules(ctx context.Context, rules []domain.ColumnRule) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	for _, rule := range rules {
		if strings.TrimSpace(rule.Supplier) == "" || !rule.Scope.Valid() || rule.ColumnIndex < 0 || rule.ExpectedValue == "" {
			return store.ErrInvalidInput
		}
	}

	if err := s.repo.ReplaceColumnRules(ctx, rules); err != nil {
		return err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "column_rules_replace", "tripartite_mapping", "", fmt.Sprintf("count=%d", len(rules)))
	return nil
}

func (s *Service) ListFamilyRules(ctx context.Context) ([]domain.FamilyRule, error) {
	return s.repo.ListFamilyRules(ctx)
}

func (s *Service) ReplaceFamilyRules(ctx context.Context, rules []domain.FamilyRule) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	for _, rule := range rules {
		if strings.TrimSpace(rule.Family) == "" || len(rule.SubFamilies) == 0 {
			return store.ErrInvalidInput
		}
	}

	if err := s.repo.ReplaceFamilyRules(ctx, rules); err != nil {
		return err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "family_rules_replace", "family_mapping", "", fmt.Sprintf("count=%d", len(rules)))
	return nil
}

func (s *Service) ListAffectations(ctx context.Context) ([]domain.ClientAffectation, error) {
	return s.repo.ListAffectations(ctx)
}

func (s *Service) UpsertAffectation(ctx context.Context, affectation domain.ClientAffectation) (*domain.ClientAffectation, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	affectation.ClientCode = strings.TrimSpace(affectation.ClientCode)
	if affectation.ClientCode == "" {
		return nil, store.ErrInvalidInput
	}
	if affectation.StandardProgramID != "" {
		if _, err := s.repo.GetProgramByID(ctx, affectation.StandardProgramID); err != nil {
			return nil, fmt.Errorf("%w: unknown standard program %q", store.ErrInvalidInput, affectation.StandardProgramID)
		}
	}
	affectation.Selections = dedupeSelections(affectation.Selections)
	for _, selection := range affectation.Selections {
		if strings.TrimSpace(selection.Supplier) == "" || !selection.Scope.Valid() {
			return nil, store.ErrInvalidInput
		}
	}

	saved, err := s.repo.UpsertAffectation(ctx, affectation)
	if err != nil {
		return nil, err
	}

	s.invalidateResumes(ctx, s.campaignYear)
	s.logAudit(ctx, "affectation_upsert", "affectation", saved.ClientCode, fmt.Sprintf("program=%s,selections=%d", saved.StandardProgramID, len(saved.Selections)))
	return saved, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) invalidateResumes(ctx context.Context, year int) {
	if err := s.resumes.Invalidate(ctx, year); err != nil {
		log.Printf("[service] resume cache invalidation failed for %d: %v", year, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action, entity, entityID, details string) {
	actorName := "system"
	if actor, ok := ActorFromContext(ctx); ok {
		actorName = actor.Username
	}
	entry := domain.AuditLog{
		ID:        xid.New("audit"),
		Actor:     actorName,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("[service] audit log write failed (%s): %v", action, err)
	}
}

// checkTierContiguity verifies the tiers partition [0, inf) once sorted:
// each bounded tier's max must equal the next tier's min, and only the last
// tier may be unbounded. Returns an empty string when consistent.
func checkTierContiguity(tiers []domain.Tier) string {
	if len(tiers) == 0 {
		return "no tiers"
	}
	sorted := sortedTiers(tiers)
	for i, tier := range sorted {
		last := i == len(sorted)-1
		if tier.MaxAmount == nil {
			if !last {
				return fmt.Sprintf("tier starting at %v is unbounded but not last", tier.MinAmount)
			}
			continue
		}
		if *tier.MaxAmount <= tier.MinAmount {
			return fmt.Sprintf("tier starting at %v has max below its min", tier.MinAmount)
		}
		if last {
			continue
		}
		if *tier.MaxAmount != sorted[i+1].MinAmount {
			return fmt.Sprintf("gap or overlap between %v and %v", *tier.MaxAmount, sorted[i+1].MinAmount)
		}
	}
	return ""
}

func sortedTiers(tiers []domain.Tier) []domain.Tier {
	sorted := make([]domain.Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinAmount < sorted[j].MinAmount })
	return sorted
}

func dedupeSelections(selections []domain.TripartiteSelection) []domain.TripartiteSelection {
	seen := make(map[string]struct{}, len(selections))
	out := make([]domain.TripartiteSelection, 0, len(selections))
	for _, selection := range selections {
		key := selection.Supplier + "|" + string(selection.Scope.Kind) + "|" + selection.Scope.Value
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, selection)
	}
	return out
}

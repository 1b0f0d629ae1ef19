package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"uniondash/backend/internal/domain"
	"uniondash/backend/internal/rfa"
	"uniondash/backend/internal/store"
)

type Store struct {
	mu                   sync.RWMutex
	revenueRecords       []domain.RevenueRecord
	programsByID         map[string]domain.TieredProgram
	agreements           []domain.TripartiteAgreement
	columnRules          []domain.ColumnRule
	familyRules          []domain.FamilyRule
	affectationsByClient map[string]domain.ClientAffectation
	auditLogs            []domain.AuditLog
	usersByUsername      map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_COMMERCIAL_PASSWORD;
// hardcoded dev defaults are used when unset, with a warning. The memory
// store is never used when DATABASE_URL is configured.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	commercialPwd := envOr("SEED_COMMERCIAL_PASSWORD", "commercial123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_COMMERCIAL_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_COMMERCIAL_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"commercial", commercialPwd, "commercial"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a memory store preloaded with the default RFA rule set
// and a small adherent revenue sample, enough to exercise every calculation
// path without a database.
func NewSeeded() *Store {
	cfg := rfa.DefaultConfiguration()

	programs := make(map[string]domain.TieredProgram, len(cfg.Programs))
	for _, program := range cfg.Programs {
		programs[program.ID] = program
	}

	records := []domain.RevenueRecord{
		{ClientCode: "M0042", Supplier: "Alliance", Brand: "SCHAEFFLER", SubFamily: "EMBRAYAGES", Year: 2025, Amount: 38000, RawColumns: map[int]string{7: "SCHAEFFLER"}},
		{ClientCode: "M0042", Supplier: "Alliance", Brand: "DELPHI", SubFamily: "FILTRES GO VL", Year: 2025, Amount: 21000, RawColumns: map[int]string{8: "DELPHI"}},
		{ClientCode: "M0042", Supplier: "Exadis", Brand: "", SubFamily: "PLAQUETTES DE FREIN VL", Year: 2025, Amount: 27500, RawColumns: map[int]string{10: "freinage"}},
		{ClientCode: "M0042", Supplier: "Exadis", Brand: "", SubFamily: "THERMOSTATS", Year: 2025, Amount: 6100, RawColumns: map[int]string{15: "thermique"}},
		{ClientCode: "M0042", Supplier: "Alliance", Brand: "SCHAEFFLER", SubFamily: "EMBRAYAGES", Year: 2024, Amount: 33000, RawColumns: map[int]string{7: "SCHAEFFLER"}},
		{ClientCode: "M0108", Supplier: "DCA", Brand: "SBS", SubFamily: "KITS DE FREIN VL", Year: 2025, Amount: 31200, RawColumns: map[int]string{6: "SBS"}},
		{ClientCode: "M0108", Supplier: "ACR", Brand: "", SubFamily: "KITS EMBRAYAGE", Year: 2025, Amount: 26400, RawColumns: map[int]string{17: "embrayage"}},
		{ClientCode: "M0215", Supplier: "Alliance", Brand: "BREMBO", SubFamily: "DISQUES DE FREIN AVEC RLTS", Year: 2025, Amount: 12800, RawColumns: map[int]string{9: "BREMBO"}},
	}

	affectations := map[string]domain.ClientAffectation{
		"M0042": {
			ClientCode:        "M0042",
			StandardProgramID: "contrat-standard-2024",
			Selections: []domain.TripartiteSelection{
				{Supplier: "Alliance", Scope: domain.BrandScope("SCHAEFFLER")},
				{Supplier: "Exadis", Scope: domain.FamilyScope("freinage")},
			},
		},
		"M0108": {
			ClientCode:        "M0108",
			StandardProgramID: "contrat-standard-2024",
			Selections: []domain.TripartiteSelection{
				{Supplier: "DCA", Scope: domain.BrandScope("SBS")},
			},
		},
	}

	return &Store{
		revenueRecords:       records,
		programsByID:         programs,
		agreements:           cfg.Agreements,
		columnRules:          cfg.ColumnRules,
		familyRules:          cfg.FamilyRules,
		affectationsByClient: affectations,
		usersByUsername:      seedUsers(),
	}
}

func (s *Store) ImportRevenueRecords(_ context.Context, records []domain.RevenueRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imported := 0
	for _, record := range records {
		if record.ClientCode == "" || record.Supplier == "" || record.Year == 0 {
			continue
		}
		s.revenueRecords = append(s.revenueRecords, record)
		imported++
	}
	return imported, nil
}

func (s *Store) ListRevenueRecords(_ context.Context, year int) ([]domain.RevenueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RevenueRecord, 0, len(s.revenueRecords))
	for _, record := range s.revenueRecords {
		if year != 0 && record.Year != year {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Store) ListClientRevenueRecords(_ context.Context, clientCode string, year int) ([]domain.RevenueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RevenueRecord, 0, 16)
	for _, record := range s.revenueRecords {
		if record.ClientCode != clientCode {
			continue
		}
		if year != 0 && record.Year != year {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *Store) ListPrograms(_ context.Context) ([]domain.TieredProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TieredProgram, 0, len(s.programsByID))
	for _, program := range s.programsByID {
		out = append(out, program)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProgramByID(_ context.Context, id string) (*domain.TieredProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	program, ok := s.programsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &program, nil
}

func (s *Store) CreateProgram(_ context.Context, program domain.TieredProgram) (*domain.TieredProgram, error) {
	if program.ID == "" || program.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.programsByID[program.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.programsByID[program.ID] = program
	created := program
	return &created, nil
}

func (s *Store) UpdateProgram(_ context.Context, program domain.TieredProgram) (*domain.TieredProgram, error) {
	if program.ID == "" || program.Name == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.programsByID[program.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.programsByID[program.ID] = program
	updated := program
	return &updated, nil
}

func (s *Store) ListAgreements(_ context.Context) ([]domain.TripartiteAgreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TripartiteAgreement, len(s.agreements))
	copy(out, s.agreements)
	return out, nil
}

func (s *Store) ReplaceAgreements(_ context.Context, agreements []domain.TripartiteAgreement) error {
	for _, agreement := range agreements {
		if agreement.Supplier == "" || !agreement.Scope.Valid() {
			return store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.agreements = make([]domain.TripartiteAgreement, len(agreements))
	copy(s.agreements, agreements)
	return nil
}

func (s *Store) ListColumnRules(_ context.Context) ([]domain.ColumnRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ColumnRule, len(s.columnRules))
	copy(out, s.columnRules)
	return out, nil
}

func (s *Store) ReplaceColumnRules(_ context.Context, rules []domain.ColumnRule) error {
	for _, rule := range rules {
		if rule.Supplier == "" || !rule.Scope.Valid() || rule.ColumnIndex < 0 || rule.ExpectedValue == "" {
			return store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.columnRules = make([]domain.ColumnRule, len(rules))
	copy(s.columnRules, rules)
	return nil
}

func (s *Store) ListFamilyRules(_ context.Context) ([]domain.FamilyRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FamilyRule, len(s.familyRules))
	copy(out, s.familyRules)
	return out, nil
}

func (s *Store) ReplaceFamilyRules(_ context.Context, rules []domain.FamilyRule) error {
	for _, rule := range rules {
		if rule.Family == "" || len(rule.SubFamilies) == 0 {
			return store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.familyRules = make([]domain.FamilyRule, len(rules))
	copy(s.familyRules, rules)
	return nil
}

func (s *Store) ListAffectations(_ context.Context) ([]domain.ClientAffectation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ClientAffectation, 0, len(s.affectationsByClient))
	for _, affectation := range s.affectationsByClient {
		out = append(out, affectation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientCode < out[j].ClientCode })
	return out, nil
}

func (s *Store) GetAffectation(_ context.Context, clientCode string) (*domain.ClientAffectation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	affectation, ok := s.affectationsByClient[clientCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &affectation, nil
}

func (s *Store) UpsertAffectation(_ context.Context, affectation domain.ClientAffectation) (*domain.ClientAffectation, error) {
	if strings.TrimSpace(affectation.ClientCode) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.affectationsByClient[affectation.ClientCode] = affectation
	saved := affectation
	return &saved, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

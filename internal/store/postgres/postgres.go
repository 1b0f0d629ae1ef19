package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"uniondash/backend/internal/domain"
	"uniondash/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ImportRevenueRecords(ctx context.Context, records []domain.RevenueRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO revenue_records (client_code, supplier, brand, sub_family, year, amount, raw_columns, imported_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	imported := 0
	for _, record := range records {
		if record.ClientCode == "" || record.Supplier == "" || record.Year == 0 {
			continue
		}
		rawJSON, err := json.Marshal(record.RawColumns)
		if err != nil {
			return imported, err
		}
		if _, err := stmt.ExecContext(ctx,
			record.ClientCode, record.Supplier, record.Brand, record.SubFamily,
			record.Year, record.Amount, rawJSON,
		); err != nil {
			return imported, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}

func (s *Store) ListRevenueRecords(ctx context.Context, year int) ([]domain.RevenueRecord, error) {
	query := `
		SELECT client_code, supplier, brand, sub_family, year, amount, raw_columns
		FROM revenue_records
	`
	args := []any{}
	if year != 0 {
		query += ` WHERE year = $1`
		args = append(args, year)
	}
	query += ` ORDER BY client_code, supplier`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRevenueRecords(rows)
}

func (s *Store) ListClientRevenueRecords(ctx context.Context, clientCode string, year int) ([]domain.RevenueRecord, error) {
	query := `
		SELECT client_code, supplier, brand, sub_family, year, amount, raw_columns
		FROM revenue_records
		WHERE client_code = $1
	`
	args := []any{clientCode}
	if year != 0 {
		query += ` AND year = $2`
		args = append(args, year)
	}
	query += ` ORDER BY supplier, year`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRevenueRecords(rows)
}

func scanRevenueRecords(rows *sql.Rows) ([]domain.RevenueRecord, error) {
	records := make([]domain.RevenueRecord, 0, 256)
	for rows.Next() {
		var record domain.RevenueRecord
		var rawJSON []byte
		if err := rows.Scan(&record.ClientCode, &record.Supplier, &record.Brand,
			&record.SubFamily, &record.Year, &record.Amount, &rawJSON); err != nil {
			return nil, err
		}
		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &record.RawColumns); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) ListPrograms(ctx context.Context) ([]domain.TieredProgram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, tiers, active
		FROM rfa_programs
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := make([]domain.TieredProgram, 0, 8)
	for rows.Next() {
		program, err := scanProgram(rows.Scan)
		if err != nil {
			return nil, err
		}
		programs = append(programs, *program)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return programs, nil
}

func (s *Store) GetProgramByID(ctx context.Context, id string) (*domain.TieredProgram, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, tiers, active
		FROM rfa_programs
		WHERE id = $1
	`, id)

	program, err := scanProgram(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return program, nil
}

func scanProgram(scan func(...any) error) (*domain.TieredProgram, error) {
	var program domain.TieredProgram
	var tiersJSON []byte
	if err := scan(&program.ID, &program.Name, &program.Description, &tiersJSON, &program.Active); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tiersJSON, &program.Tiers); err != nil {
		return nil, err
	}
	return &program, nil
}

func (s *Store) CreateProgram(ctx context.Context, program domain.TieredProgram) (*domain.TieredProgram, error) {
	if program.ID == "" || program.Name == "" {
		return nil, store.ErrInvalidInput
	}
	tiersJSON, err := json.Marshal(program.Tiers)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rfa_programs (id, name, description, tiers, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, program.ID, program.Name, program.Description, tiersJSON, program.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := program
	return &created, nil
}

func (s *Store) UpdateProgram(ctx context.Context, program domain.TieredProgram) (*domain.TieredProgram, error) {
	if program.ID == "" || program.Name == "" {
		return nil, store.ErrInvalidInput
	}
	tiersJSON, err := json.Marshal(program.Tiers)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE rfa_programs
		SET name = $2, description = $3, tiers = $4, active = $5, updated_at = now()
		WHERE id = $1
	`, program.ID, program.Name, program.Description, tiersJSON, program.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := program
	return &updated, nil
}

func (s *Store) ListAgreements(ctx context.Context) ([]domain.TripartiteAgreement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT supplier, scope_kind, scope_value, min_threshold, rebate_percent, active
		FROM tripartite_agreements
		ORDER BY supplier, scope_value
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agreements := make([]domain.TripartiteAgreement, 0, 16)
	for rows.Next() {
		var agreement domain.TripartiteAgreement
		var kind string
		if err := rows.Scan(&agreement.Supplier, &kind, &agreement.Scope.Value,
			&agreement.MinThreshold, &agreement.RebatePercent, &agreement.Active); err != nil {
			return nil, err
		}
		agreement.Scope.Kind = domain.ScopeKind(kind)
		agreements = append(agreements, agreement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agreements, nil
}

func (s *Store) ReplaceAgreements(ctx context.Context, agreements []domain.TripartiteAgreement) error {
	for _, agreement := range agreements {
		if agreement.Supplier == "" || !agreement.Scope.Valid() {
			return store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tripartite_agreements`); err != nil {
		return err
	}
	for _, agreement := range agreements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tripartite_agreements (supplier, scope_kind, scope_value, min_threshold, rebate_percent, active)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, agreement.Supplier, string(agreement.Scope.Kind), agreement.Scope.Value,
			agreement.MinThreshold, agreement.RebatePercent, agreement.Active); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListColumnRules(ctx context.Context) ([]domain.ColumnRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT supplier, scope_kind, scope_value, column_index, expected_value, min_threshold, rebate_percent, active
		FROM tripartite_column_rules
		ORDER BY supplier, column_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.ColumnRule, 0, 16)
	for rows.Next() {
		var rule domain.ColumnRule
		var kind string
		if err := rows.Scan(&rule.Supplier, &kind, &rule.Scope.Value, &rule.ColumnIndex,
			&rule.ExpectedValue, &rule.MinThreshold, &rule.RebatePercent, &rule.Active); err != nil {
			return nil, err
		}
		rule.Scope.Kind = domain.ScopeKind(kind)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) ReplaceColumnRules(ctx context.Context, rules []domain.ColumnRule) error {
	for _, rule := range rules {
		if rule.Supplier == "" || !rule.Scope.Valid() || rule.ColumnIndex < 0 || rule.ExpectedValue == "" {
			return store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tripartite_column_rules`); err != nil {
		return err
	}
	for _, rule := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tripartite_column_rules (supplier, scope_kind, scope_value, column_index, expected_value, min_threshold, rebate_percent, active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, rule.Supplier, string(rule.Scope.Kind), rule.Scope.Value, rule.ColumnIndex,
			rule.ExpectedValue, rule.MinThreshold, rule.RebatePercent, rule.Active); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListFamilyRules(ctx context.Context) ([]domain.FamilyRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT family, sub_families
		FROM family_rules
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.FamilyRule, 0, 8)
	for rows.Next() {
		var rule domain.FamilyRule
		var subsJSON []byte
		if err := rows.Scan(&rule.Family, &subsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(subsJSON, &rule.SubFamilies); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) ReplaceFamilyRules(ctx context.Context, rules []domain.FamilyRule) error {
	for _, rule := range rules {
		if rule.Family == "" || len(rule.SubFamilies) == 0 {
			return store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM family_rules`); err != nil {
		return err
	}
	// position preserves declaration order, which is the classifier tie-break.
	for i, rule := range rules {
		subsJSON, err := json.Marshal(rule.SubFamilies)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO family_rules (position, family, sub_families)
			VALUES ($1,$2,$3)
		`, i, rule.Family, subsJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListAffectations(ctx context.Context) ([]domain.ClientAffectation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_code, standard_program_id, selections
		FROM client_affectations
		ORDER BY client_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	affectations := make([]domain.ClientAffectation, 0, 64)
	for rows.Next() {
		affectation, err := scanAffectation(rows.Scan)
		if err != nil {
			return nil, err
		}
		affectations = append(affectations, *affectation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return affectations, nil
}

func (s *Store) GetAffectation(ctx context.Context, clientCode string) (*domain.ClientAffectation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT client_code, standard_program_id, selections
		FROM client_affectations
		WHERE client_code = $1
	`, clientCode)

	affectation, err := scanAffectation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return affectation, nil
}

func scanAffectation(scan func(...any) error) (*domain.ClientAffectation, error) {
	var affectation domain.ClientAffectation
	var selectionsJSON []byte
	if err := scan(&affectation.ClientCode, &affectation.StandardProgramID, &selectionsJSON); err != nil {
		return nil, err
	}
	if len(selectionsJSON) > 0 {
		if err := json.Unmarshal(selectionsJSON, &affectation.Selections); err != nil {
			return nil, err
		}
	}
	return &affectation, nil
}

func (s *Store) UpsertAffectation(ctx context.Context, affectation domain.ClientAffectation) (*domain.ClientAffectation, error) {
	if strings.TrimSpace(affectation.ClientCode) == "" {
		return nil, store.ErrInvalidInput
	}
	selectionsJSON, err := json.Marshal(affectation.Selections)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO client_affectations (client_code, standard_program_id, selections, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (client_code)
		DO UPDATE SET standard_program_id = EXCLUDED.standard_program_id,
		              selections = EXCLUDED.selections,
		              updated_at = now()
	`, affectation.ClientCode, affectation.StandardProgramID, selectionsJSON)
	if err != nil {
		return nil, err
	}

	saved := affectation
	return &saved, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, entity, entity_id, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.Actor, entry.Action, entry.Entity, entry.EntityID, entry.Details, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, actor, action, entity, entity_id, details, created_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	fromArg := sql.NullTime{Time: from, Valid: !from.IsZero()}
	toArg := sql.NullTime{Time: to, Valid: !to.IsZero()}

	rows, err := s.db.QueryContext(ctx, query, fromArg, toArg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.Entity,
			&entry.EntityID, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

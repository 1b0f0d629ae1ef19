package store

import (
	"context"
	"errors"
	"time"

	"uniondash/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("already exists")
)

// Repository is the persistence surface of the dashboard backend: imported
// revenue records, the RFA rule set, client affectations, users and the
// audit trail. Computed resumes are deliberately absent — they are derived
// state and never stored here.
type Repository interface {
	ImportRevenueRecords(ctx context.Context, records []domain.RevenueRecord) (int, error)
	ListRevenueRecords(ctx context.Context, year int) ([]domain.RevenueRecord, error)
	ListClientRevenueRecords(ctx context.Context, clientCode string, year int) ([]domain.RevenueRecord, error)

	ListPrograms(ctx context.Context) ([]domain.TieredProgram, error)
	GetProgramByID(ctx context.Context, id string) (*domain.TieredProgram, error)
	CreateProgram(ctx context.Context, program domain.TieredProgram) (*domain.TieredProgram, error)
	UpdateProgram(ctx context.Context, program domain.TieredProgram) (*domain.TieredProgram, error)

	ListAgreements(ctx context.Context) ([]domain.TripartiteAgreement, error)
	ReplaceAgreements(ctx context.Context, agreements []domain.TripartiteAgreement) error
	ListColumnRules(ctx context.Context) ([]domain.ColumnRule, error)
	ReplaceColumnRules(ctx context.Context, rules []domain.ColumnRule) error
	ListFamilyRules(ctx context.Context) ([]domain.FamilyRule, error)
	ReplaceFamilyRules(ctx context.Context, rules []domain.FamilyRule) error

	ListAffectations(ctx context.Context) ([]domain.ClientAffectation, error)
	GetAffectation(ctx context.Context, clientCode string) (*domain.ClientAffectation, error)
	UpsertAffectation(ctx context.Context, affectation domain.ClientAffectation) (*domain.ClientAffectation, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

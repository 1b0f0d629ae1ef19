package domain

import "time"

// RevenueRecord is one imported line of member activity: the revenue (CA) a
// client generated with a supplier over a year, broken down by brand and
// product sub-family. Records are immutable once imported.
//
// RawColumns carries the positional import columns that are not normalized
// into Brand/SubFamily; column-mapped tripartite rules address them by index.
type RevenueRecord struct {
	ClientCode string         `json:"client_code"`
	Supplier   string         `json:"supplier"`
	Brand      string         `json:"brand"`
	SubFamily  string         `json:"sub_family"`
	Year       int            `json:"year"`
	Amount     float64        `json:"amount"`
	RawColumns map[int]string `json:"raw_columns,omitempty"`
}

// Tier is one contiguous revenue band of a standard program. MaxAmount nil
// means unbounded ("et +").
type Tier struct {
	MinAmount     float64  `json:"min_amount"`
	MaxAmount     *float64 `json:"max_amount"`
	RebatePercent float64  `json:"rebate_percent"`
	BonusPercent  float64  `json:"bonus_percent"`
}

type TieredProgram struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tiers       []Tier `json:"tiers"`
	Active      bool   `json:"active"`
}

type ScopeKind string

const (
	ScopeBrand  ScopeKind = "brand"
	ScopeFamily ScopeKind = "family"
)

// Scope discriminates what a tripartite rule applies to: exactly one of a
// brand or a coarse product family. Modeled as a tagged value so that
// "both set" and "neither set" are unrepresentable.
type Scope struct {
	Kind  ScopeKind `json:"kind"`
	Value string    `json:"value"`
}

func BrandScope(name string) Scope  { return Scope{Kind: ScopeBrand, Value: name} }
func FamilyScope(name string) Scope { return Scope{Kind: ScopeFamily, Value: name} }

func (s Scope) Valid() bool {
	return (s.Kind == ScopeBrand || s.Kind == ScopeFamily) && s.Value != ""
}

// TripartiteAgreement is a supplier-specific rebate rule: a single revenue
// threshold and a single rate, no tiering.
type TripartiteAgreement struct {
	Supplier      string  `json:"supplier"`
	Scope         Scope   `json:"scope"`
	MinThreshold  float64 `json:"min_threshold"`
	RebatePercent float64 `json:"rebate_percent"`
	Active        bool    `json:"active"`
}

// ColumnRule is the column-mapped tripartite variant: instead of the
// normalized Brand/SubFamily fields it matches a raw import column against
// an expected value.
type ColumnRule struct {
	Supplier      string  `json:"supplier"`
	Scope         Scope   `json:"scope"`
	ColumnIndex   int     `json:"column_index"`
	ExpectedValue string  `json:"expected_value"`
	MinThreshold  float64 `json:"min_threshold"`
	RebatePercent float64 `json:"rebate_percent"`
	Active        bool    `json:"active"`
}

// TripartiteSelection records that a client opted into the tripartite rule
// for a supplier and scope.
type TripartiteSelection struct {
	Supplier string `json:"supplier"`
	Scope    Scope  `json:"scope"`
}

// ClientAffectation binds a client to its standard program and tripartite
// opt-ins. StandardProgramID may be empty (no standard contract).
type ClientAffectation struct {
	ClientCode        string                `json:"client_code"`
	StandardProgramID string                `json:"standard_program_id"`
	Selections        []TripartiteSelection `json:"selections"`
}

// FamilyRule maps a coarse family name to the sub-family labels it covers.
// Ordering across rules is significant: the first matching family wins.
type FamilyRule struct {
	Family      string   `json:"family"`
	SubFamilies []string `json:"sub_families"`
}

type AppliedMode string

const (
	ModeStandard   AppliedMode = "standard"
	ModeTripartite AppliedMode = "tripartite"
	ModeNone       AppliedMode = "none"
)

// StandardRebate is the outcome of running a supplier's revenue through the
// tiers of a standard program. Progression is informational (UI gauge).
type StandardRebate struct {
	Tier               Tier    `json:"tier"`
	RebateAmount       float64 `json:"rebate_amount"`
	BonusAmount        float64 `json:"bonus_amount"`
	ProgressionPercent float64 `json:"progression_percent"`
}

// TripartiteRebate is the outcome of a tripartite rule (structured or
// column-mapped) that cleared its threshold.
type TripartiteRebate struct {
	Supplier      string  `json:"supplier"`
	Scope         Scope   `json:"scope"`
	RebatePercent float64 `json:"rebate_percent"`
	RebateAmount  float64 `json:"rebate_amount"`
}

// SupplierRebate is the per-supplier slice of a client resume. Standard and
// tripartite amounts are additive into TotalAmount; AppliedMode only labels
// which rule kind was structurally present.
type SupplierRebate struct {
	Supplier     string            `json:"supplier"`
	TotalRevenue float64           `json:"total_revenue"`
	AppliedMode  AppliedMode       `json:"applied_mode"`
	Standard     *StandardRebate   `json:"standard,omitempty"`
	Tripartite   *TripartiteRebate `json:"tripartite,omitempty"`
	TotalAmount  float64           `json:"total_amount"`
}

// ClientRebateResume is the per-client aggregation output. It is derived
// state, recomputed on every pass, never authoritative.
type ClientRebateResume struct {
	ClientCode        string           `json:"client_code"`
	StandardProgramID string           `json:"standard_program_id"`
	TotalRebate       float64          `json:"total_rebate"`
	TotalBonus        float64          `json:"total_bonus"`
	PerSupplier       []SupplierRebate `json:"per_supplier"`
}

type RevenueImportRequest struct {
	Records []RevenueRecord `json:"records"`
}

type RevenueImportResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type ProgramCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tiers       []Tier `json:"tiers"`
}

type ProgramUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Tiers       []Tier  `json:"tiers,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type AccountCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AccountInfo struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/backend/internal/domain/shared"
	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
)

// TenantConfig holds the bookkeeping settings of a tenant
type TenantConfig struct {
	Currency             string `json:"currency"`                // Default currency code
	FiscalYearStartMonth int    `json:"fiscal_year_start_month"` // 1 = January
	Timezone             string `json:"timezone"`                // Tenant timezone
	Locale               string `json:"locale"`                  // Tenant locale (e.g., en-US)
	CompanionEnabled     bool   `json:"companion_enabled"`       // Unlocks the companion layer
}

// DefaultTenantConfig returns the default configuration for a new tenant
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		Currency:             string(valueobject.DefaultCurrency),
		FiscalYearStartMonth: 1,
		Timezone:             "UTC",
		Locale:               "en-US",
		CompanionEnabled:     false,
	}
}

// Tenant represents one business in the multi-tenant system. It is the
// aggregate root for tenant-related operations.
type Tenant struct {
	shared.BaseAggregateRoot
	Code         string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string       `gorm:"type:varchar(200);not null"`
	Status       TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ContactName  string       `gorm:"type:varchar(100)"`
	ContactEmail string       `gorm:"type:varchar(200)"`
	Config       TenantConfig `gorm:"embedded;embeddedPrefix:config_"`
	Notes        string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant with required fields
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
		Config:            DefaultTenantConfig(),
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// Update updates the tenant's basic information
func (t *Tenant) Update(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}

	t.Name = name
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantUpdatedEvent(t))

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(contactName, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewValidationError("contact name cannot exceed 100 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewValidationError("contact email cannot exceed 200 characters")
	}

	t.ContactName = contactName
	t.ContactEmail = email
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetCurrency sets the default bookkeeping currency
func (t *Tenant) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !valueobject.IsSupportedCurrency(valueobject.Currency(code)) {
		return shared.NewValidationError("unsupported currency: " + code)
	}

	t.Config.Currency = code
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetFiscalYearStart sets the first month of the fiscal year
func (t *Tenant) SetFiscalYearStart(month int) error {
	if month < 1 || month > 12 {
		return shared.NewValidationError("fiscal year start month must be between 1 and 12")
	}

	t.Config.FiscalYearStartMonth = month
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// EnableCompanion turns the companion layer on
func (t *Tenant) EnableCompanion() {
	t.Config.CompanionEnabled = true
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// DisableCompanion turns the companion layer off
func (t *Tenant) DisableCompanion() {
	t.Config.CompanionEnabled = false
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// CompanionEnabled reports whether the companion layer is on
func (t *Tenant) CompanionEnabled() bool {
	return t.Config.CompanionEnabled
}

// SetNotes sets the tenant's notes
func (t *Tenant) SetNotes(notes string) {
	t.Notes = notes
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// Activate activates the tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewStateError("already_active", "tenant is already active")
	}

	oldStatus := t.Status
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Deactivate deactivates the tenant
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewStateError("already_inactive", "tenant is already inactive")
	}

	oldStatus := t.Status
	t.Status = TenantStatusInactive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusInactive))

	return nil
}

// Suspend suspends the tenant (e.g., due to payment issues)
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewStateError("already_suspended", "tenant is already suspended")
	}

	oldStatus := t.Status
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// Currency returns the tenant's bookkeeping currency
func (t *Tenant) Currency() valueobject.Currency {
	if t.Config.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(t.Config.Currency)
}

// FiscalYearStart returns the first day of the fiscal year containing
// the given date.
func (t *Tenant) FiscalYearStart(ref time.Time) time.Time {
	month := time.Month(t.Config.FiscalYearStartMonth)
	if month < time.January || month > time.December {
		month = time.January
	}
	start := time.Date(ref.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	if start.After(ref) {
		start = start.AddDate(-1, 0, 0)
	}
	return start
}

// GetTenantID returns the tenant ID
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewValidationError("tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewValidationError("tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewValidationError("tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("tenant name cannot exceed 200 characters")
	}
	return nil
}

package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/backend/internal/domain/shared/valueobject"
)

func TestNewTenant(t *testing.T) {
	t.Run("creates tenant successfully", func(t *testing.T) {
		tenant, err := NewTenant("TENANT001", "Test Company")

		require.NoError(t, err)
		assert.NotNil(t, tenant)
		assert.Equal(t, "TENANT001", tenant.Code)
		assert.Equal(t, "Test Company", tenant.Name)
		assert.Equal(t, TenantStatusActive, tenant.Status)
		assert.Equal(t, "USD", tenant.Config.Currency)
		assert.Equal(t, 1, tenant.Config.FiscalYearStartMonth)
		assert.Equal(t, "UTC", tenant.Config.Timezone)
		assert.False(t, tenant.CompanionEnabled())
		assert.Len(t, tenant.GetDomainEvents(), 1)
	})

	t.Run("converts code to uppercase", func(t *testing.T) {
		tenant, err := NewTenant("tenant002", "Test Company")

		require.NoError(t, err)
		assert.Equal(t, "TENANT002", tenant.Code)
	})

	t.Run("fails with empty code", func(t *testing.T) {
		tenant, err := NewTenant("", "Test Company")

		assert.Error(t, err)
		assert.Nil(t, tenant)
		assert.Contains(t, err.Error(), "code cannot be empty")
	})

	t.Run("fails with invalid code characters", func(t *testing.T) {
		tenant, err := NewTenant("TENANT@001", "Test Company")

		assert.Error(t, err)
		assert.Nil(t, tenant)
		assert.Contains(t, err.Error(), "can only contain")
	})

	t.Run("fails with empty name", func(t *testing.T) {
		tenant, err := NewTenant("TENANT001", "")

		assert.Error(t, err)
		assert.Nil(t, tenant)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with code exceeding max length", func(t *testing.T) {
		longCode := make([]byte, 51)
		for i := range longCode {
			longCode[i] = 'A'
		}
		tenant, err := NewTenant(string(longCode), "Test Company")

		assert.Error(t, err)
		assert.Nil(t, tenant)
		assert.Contains(t, err.Error(), "cannot exceed 50 characters")
	})
}

func TestTenantCurrency(t *testing.T) {
	tenant, err := NewTenant("TENANT001", "Test Company")
	require.NoError(t, err)

	t.Run("sets a supported currency", func(t *testing.T) {
		require.NoError(t, tenant.SetCurrency("eur"))
		assert.Equal(t, "EUR", tenant.Config.Currency)
		assert.Equal(t, valueobject.EUR, tenant.Currency())
	})

	t.Run("rejects unknown codes", func(t *testing.T) {
		err := tenant.SetCurrency("XXX")
		assert.Error(t, err)
		assert.Equal(t, "EUR", tenant.Config.Currency)
	})

	t.Run("empty config falls back to the default", func(t *testing.T) {
		blank := &Tenant{}
		assert.Equal(t, valueobject.DefaultCurrency, blank.Currency())
	})
}

func TestTenantFiscalYear(t *testing.T) {
	tenant, err := NewTenant("TENANT001", "Test Company")
	require.NoError(t, err)

	t.Run("rejects out-of-range months", func(t *testing.T) {
		assert.Error(t, tenant.SetFiscalYearStart(0))
		assert.Error(t, tenant.SetFiscalYearStart(13))
	})

	t.Run("calendar year by default", func(t *testing.T) {
		ref := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), tenant.FiscalYearStart(ref))
	})

	t.Run("april start wraps backwards", func(t *testing.T) {
		require.NoError(t, tenant.SetFiscalYearStart(4))

		inYear := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), tenant.FiscalYearStart(inYear))

		beforeStart := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), tenant.FiscalYearStart(beforeStart))
	})
}

func TestTenantCompanionToggle(t *testing.T) {
	tenant, err := NewTenant("TENANT001", "Test Company")
	require.NoError(t, err)

	tenant.EnableCompanion()
	assert.True(t, tenant.CompanionEnabled())

	tenant.DisableCompanion()
	assert.False(t, tenant.CompanionEnabled())
}

func TestTenantStatusTransitions(t *testing.T) {
	t.Run("deactivate and reactivate", func(t *testing.T) {
		tenant, err := NewTenant("TENANT001", "Test Company")
		require.NoError(t, err)

		require.NoError(t, tenant.Deactivate())
		assert.Equal(t, TenantStatusInactive, tenant.Status)

		require.NoError(t, tenant.Activate())
		assert.True(t, tenant.IsActive())
	})

	t.Run("suspend", func(t *testing.T) {
		tenant, err := NewTenant("TENANT002", "Test Company")
		require.NoError(t, err)

		require.NoError(t, tenant.Suspend())
		assert.True(t, tenant.IsSuspended())
		assert.Error(t, tenant.Suspend())
	})

	t.Run("double activate fails", func(t *testing.T) {
		tenant, err := NewTenant("TENANT003", "Test Company")
		require.NoError(t, err)

		assert.Error(t, tenant.Activate())
	})
}

func TestTenantUpdate(t *testing.T) {
	tenant, err := NewTenant("TENANT001", "Test Company")
	require.NoError(t, err)
	initialVersion := tenant.Version

	require.NoError(t, tenant.Update("Renamed Company"))
	assert.Equal(t, "Renamed Company", tenant.Name)
	assert.Greater(t, tenant.Version, initialVersion)

	assert.Error(t, tenant.Update(""))
}

func TestTenantSetContact(t *testing.T) {
	tenant, err := NewTenant("TENANT001", "Test Company")
	require.NoError(t, err)

	require.NoError(t, tenant.SetContact("Pat Doe", "pat@example.com"))
	assert.Equal(t, "Pat Doe", tenant.ContactName)
	assert.Equal(t, "pat@example.com", tenant.ContactEmail)

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, tenant.SetContact("Pat Doe", string(long)))
}

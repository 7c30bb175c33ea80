package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func createTestRole(t *testing.T) *Role {
	tenantID := uuid.New()
	role, err := NewRole(tenantID, "TEST_ROLE", "Test Role")
	require.NoError(t, err)
	require.NotNil(t, role)
	return role
}

func createTestSystemRole(t *testing.T) *Role {
	tenantID := uuid.New()
	role, err := NewSystemRole(tenantID, "ADMIN", "Administrator")
	require.NoError(t, err)
	require.NotNil(t, role)
	return role
}

// Permission Value Object Tests

func TestNewPermission(t *testing.T) {
	tests := []struct {
		name        string
		resource    string
		action      string
		wantErr     bool
		errContains string
	}{
		{
			name:     "valid permission",
			resource: "account",
			action:   "create",
			wantErr:  false,
		},
		{
			name:     "valid permission with underscore",
			resource: "journal_entry",
			action:   "post",
			wantErr:  false,
		},
		{
			name:        "empty resource",
			resource:    "",
			action:      "create",
			wantErr:     true,
			errContains: "resource cannot be empty",
		},
		{
			name:        "empty action",
			resource:    "account",
			action:      "",
			wantErr:     true,
			errContains: "action cannot be empty",
		},
		{
			name:        "resource starting with number",
			resource:    "1account",
			action:      "create",
			wantErr:     true,
			errContains: "must start with a letter",
		},
		{
			name:        "action with invalid characters",
			resource:    "account",
			action:      "create-item",
			wantErr:     true,
			errContains: "must start with a letter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perm, err := NewPermission(tt.resource, tt.action)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, perm)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, perm)
				assert.Equal(t, tt.resource+":"+tt.action, perm.Code)
				assert.Equal(t, tt.resource, perm.Resource)
				assert.Equal(t, tt.action, perm.Action)
			}
		})
	}
}

func TestNewPermissionFromCode(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid code",
			code:    "account:create",
			wantErr: false,
		},
		{
			name:    "valid code with underscore",
			code:    "journal_entry:post",
			wantErr: false,
		},
		{
			name:        "invalid code format - no colon",
			code:        "accountcreate",
			wantErr:     true,
			errContains: "format 'resource:action'",
		},
		{
			name:        "invalid code format - empty",
			code:        "",
			wantErr:     true,
			errContains: "format 'resource:action'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perm, err := NewPermissionFromCode(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.code, perm.Code)
			}
		})
	}
}

func TestPermission_Equals(t *testing.T) {
	perm1, _ := NewPermission("account", "create")
	perm2, _ := NewPermission("account", "create")
	perm3, _ := NewPermission("account", "read")

	assert.True(t, perm1.Equals(*perm2))
	assert.False(t, perm1.Equals(*perm3))
}

func TestPermission_IsEmpty(t *testing.T) {
	perm1, _ := NewPermission("account", "create")
	perm2 := Permission{}

	assert.False(t, perm1.IsEmpty())
	assert.True(t, perm2.IsEmpty())
}

// DataScope Value Object Tests

func TestNewDataScope(t *testing.T) {
	tests := []struct {
		name        string
		resource    string
		scopeType   DataScopeType
		wantErr     bool
		errContains string
	}{
		{
			name:      "valid data scope - all",
			resource:  "bank_transaction",
			scopeType: DataScopeAll,
			wantErr:   false,
		},
		{
			name:      "valid data scope - self",
			resource:  "bank_transaction",
			scopeType: DataScopeSelf,
			wantErr:   false,
		},
		{
			name:        "empty resource",
			resource:    "",
			scopeType:   DataScopeAll,
			wantErr:     true,
			errContains: "resource cannot be empty",
		},
		{
			name:        "invalid scope type",
			resource:    "bank_transaction",
			scopeType:   DataScopeType("invalid"),
			wantErr:     true,
			errContains: "Invalid data scope type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDataScope(tt.resource, tt.scopeType)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.resource, ds.Resource)
				assert.Equal(t, tt.scopeType, ds.ScopeType)
			}
		})
	}
}

func TestNewCustomDataScope(t *testing.T) {
	// Valid custom data scope
	ds, err := NewCustomDataScope("bank_transaction", []string{"acct_1", "acct_2"})
	require.NoError(t, err)
	assert.Equal(t, DataScopeCustom, ds.ScopeType)
	assert.Len(t, ds.ScopeValues, 2)

	// Empty scope values
	_, err = NewCustomDataScope("bank_transaction", []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have at least one scope value")
}

func TestNewBankAccountDataScope(t *testing.T) {
	ds, err := NewBankAccountDataScope("bank_transaction", []string{uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, DataScopeCustom, ds.ScopeType)
	assert.Equal(t, "bank_account_id", ds.ScopeField)
	assert.Len(t, ds.ScopeValues, 1)

	_, err = NewBankAccountDataScope("bank_transaction", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one bank account ID")
}

func TestDataScope_Equals(t *testing.T) {
	ds1, _ := NewDataScope("bank_transaction", DataScopeAll)
	ds2, _ := NewDataScope("bank_transaction", DataScopeAll)
	ds3, _ := NewDataScope("bank_transaction", DataScopeSelf)
	ds4, _ := NewDataScope("journal_entry", DataScopeAll)

	assert.True(t, ds1.Equals(*ds2))
	assert.False(t, ds1.Equals(*ds3)) // Different scope type
	assert.False(t, ds1.Equals(*ds4)) // Different resource
}

// Role Aggregate Tests

func TestNewRole(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		roleName    string
		wantErr     bool
		errContains string
	}{
		{
			name:     "valid role",
			code:     "REVIEWER",
			roleName: "Ledger Reviewer",
			wantErr:  false,
		},
		{
			name:     "valid role with underscore",
			code:     "SENIOR_REVIEWER",
			roleName: "Senior Reviewer",
			wantErr:  false,
		},
		{
			name:        "empty code",
			code:        "",
			roleName:    "Test Role",
			wantErr:     true,
			errContains: "Role code cannot be empty",
		},
		{
			name:        "code too short",
			code:        "A",
			roleName:    "Test Role",
			wantErr:     true,
			errContains: "at least 2 characters",
		},
		{
			name:        "code starting with number",
			code:        "1ROLE",
			roleName:    "Test Role",
			wantErr:     true,
			errContains: "must start with a letter",
		},
		{
			name:        "code with invalid characters",
			code:        "ROLE-TEST",
			roleName:    "Test Role",
			wantErr:     true,
			errContains: "must start with a letter",
		},
		{
			name:        "empty name",
			code:        "TEST",
			roleName:    "",
			wantErr:     true,
			errContains: "Role name cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID := uuid.New()
			role, err := NewRole(tenantID, tt.code, tt.roleName)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, role)
				assert.Equal(t, tenantID, role.TenantID)
				assert.NotEqual(t, uuid.Nil, role.ID)
				assert.False(t, role.IsSystemRole)
				assert.True(t, role.IsEnabled)
				assert.Empty(t, role.Permissions)
				assert.Empty(t, role.DataScopes)

				// Check events
				events := role.GetDomainEvents()
				require.Len(t, events, 1)
				_, ok := events[0].(*RoleCreatedEvent)
				assert.True(t, ok)
			}
		})
	}
}

func TestNewSystemRole(t *testing.T) {
	tenantID := uuid.New()
	role, err := NewSystemRole(tenantID, "ADMIN", "Administrator")
	require.NoError(t, err)
	assert.True(t, role.IsSystemRole)
	assert.True(t, role.IsEnabled)
	assert.False(t, role.CanDelete())
}

func TestRole_SetName(t *testing.T) {
	role := createTestRole(t)
	oldVersion := role.Version

	err := role.SetName("Updated Name")
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", role.Name)
	assert.Equal(t, oldVersion+1, role.Version)

	// Empty name
	err = role.SetName("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestRole_SetDescription(t *testing.T) {
	role := createTestRole(t)
	oldVersion := role.Version

	role.SetDescription("This is a test role")
	assert.Equal(t, "This is a test role", role.Description)
	assert.Equal(t, oldVersion+1, role.Version)
}

func TestRole_EnableDisable(t *testing.T) {
	role := createTestRole(t)
	role.ClearDomainEvents()

	// Disable
	err := role.Disable()
	require.NoError(t, err)
	assert.False(t, role.IsEnabled)
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	_, ok := events[0].(*RoleDisabledEvent)
	assert.True(t, ok)

	// Try to disable again
	err = role.Disable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already disabled")

	role.ClearDomainEvents()

	// Enable
	err = role.Enable()
	require.NoError(t, err)
	assert.True(t, role.IsEnabled)
	events = role.GetDomainEvents()
	require.Len(t, events, 1)
	_, ok = events[0].(*RoleEnabledEvent)
	assert.True(t, ok)

	// Try to enable again
	err = role.Enable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already enabled")
}

func TestRole_GrantPermission(t *testing.T) {
	role := createTestRole(t)
	role.ClearDomainEvents()

	// Grant a permission
	perm, _ := NewPermission("account", "create")
	err := role.GrantPermission(*perm)
	require.NoError(t, err)
	assert.Len(t, role.Permissions, 1)
	assert.True(t, role.HasPermission("account:create"))

	// Check event
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	grantedEvent, ok := events[0].(*RolePermissionGrantedEvent)
	assert.True(t, ok)
	assert.Equal(t, "account:create", grantedEvent.PermissionCode)

	// Try to grant the same permission
	err = role.GrantPermission(*perm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has this permission")

	// Grant using code
	err = role.GrantPermissionByCode("account:read")
	require.NoError(t, err)
	assert.True(t, role.HasPermission("account:read"))
}

func TestRole_RevokePermission(t *testing.T) {
	role := createTestRole(t)

	// Grant some permissions
	role.GrantPermissionByCode("account:create")
	role.GrantPermissionByCode("account:read")
	role.ClearDomainEvents()

	// Revoke a permission
	err := role.RevokePermission("account:create")
	require.NoError(t, err)
	assert.Len(t, role.Permissions, 1)
	assert.False(t, role.HasPermission("account:create"))
	assert.True(t, role.HasPermission("account:read"))

	// Check event
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	revokedEvent, ok := events[0].(*RolePermissionRevokedEvent)
	assert.True(t, ok)
	assert.Equal(t, "account:create", revokedEvent.PermissionCode)

	// Try to revoke a permission that doesn't exist
	err = role.RevokePermission("account:delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have this permission")
}

func TestRole_SetPermissions(t *testing.T) {
	role := createTestRole(t)

	// Set multiple permissions
	perm1, _ := NewPermission("account", "create")
	perm2, _ := NewPermission("account", "read")
	perm3, _ := NewPermission("account", "create") // Duplicate

	err := role.SetPermissions([]Permission{*perm1, *perm2, *perm3})
	require.NoError(t, err)

	// Should deduplicate
	assert.Len(t, role.Permissions, 2)
	assert.True(t, role.HasPermission("account:create"))
	assert.True(t, role.HasPermission("account:read"))
}

func TestRole_HasPermissionForResource(t *testing.T) {
	role := createTestRole(t)

	role.GrantPermissionByCode("account:create")
	role.GrantPermissionByCode("account:read")
	role.GrantPermissionByCode("bank_account:read")

	assert.True(t, role.HasPermissionForResource("account"))
	assert.True(t, role.HasPermissionForResource("bank_account"))
	assert.False(t, role.HasPermissionForResource("journal_entry"))
}

func TestRole_GetPermissionsForResource(t *testing.T) {
	role := createTestRole(t)

	role.GrantPermissionByCode("account:create")
	role.GrantPermissionByCode("account:read")
	role.GrantPermissionByCode("bank_account:read")

	accountPerms := role.GetPermissionsForResource("account")
	assert.Len(t, accountPerms, 2)

	bankPerms := role.GetPermissionsForResource("bank_account")
	assert.Len(t, bankPerms, 1)

	entryPerms := role.GetPermissionsForResource("journal_entry")
	assert.Len(t, entryPerms, 0)
}

func TestRole_SetDataScope(t *testing.T) {
	role := createTestRole(t)
	role.ClearDomainEvents()

	// Set a data scope
	ds, _ := NewDataScope("bank_transaction", DataScopeSelf)
	err := role.SetDataScope(*ds)
	require.NoError(t, err)
	assert.Len(t, role.DataScopes, 1)
	assert.True(t, role.HasDataScope("bank_transaction"))

	// Check event
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	changedEvent, ok := events[0].(*RoleDataScopeChangedEvent)
	assert.True(t, ok)
	assert.Equal(t, "bank_transaction", changedEvent.Resource)
	assert.Equal(t, DataScopeSelf, changedEvent.ScopeType)

	role.ClearDomainEvents()

	// Update the same resource's data scope
	ds2, _ := NewDataScope("bank_transaction", DataScopeAll)
	err = role.SetDataScope(*ds2)
	require.NoError(t, err)
	assert.Len(t, role.DataScopes, 1) // Still only one

	retrievedDS := role.GetDataScope("bank_transaction")
	require.NotNil(t, retrievedDS)
	assert.Equal(t, DataScopeAll, retrievedDS.ScopeType)
}

func TestRole_RemoveDataScope(t *testing.T) {
	role := createTestRole(t)

	// Set some data scopes
	ds1, _ := NewDataScope("bank_transaction", DataScopeSelf)
	ds2, _ := NewDataScope("journal_entry", DataScopeAll)
	role.SetDataScope(*ds1)
	role.SetDataScope(*ds2)

	// Remove one
	err := role.RemoveDataScope("bank_transaction")
	require.NoError(t, err)
	assert.Len(t, role.DataScopes, 1)
	assert.False(t, role.HasDataScope("bank_transaction"))
	assert.True(t, role.HasDataScope("journal_entry"))

	// Try to remove one that doesn't exist
	err = role.RemoveDataScope("tax_rate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have data scope")
}

func TestRole_SetDataScopes(t *testing.T) {
	role := createTestRole(t)

	ds1, _ := NewDataScope("bank_transaction", DataScopeSelf)
	ds2, _ := NewDataScope("journal_entry", DataScopeAll)
	ds3, _ := NewDataScope("bank_transaction", DataScopeAll) // Duplicate resource

	err := role.SetDataScopes([]DataScope{*ds1, *ds2, *ds3})
	require.NoError(t, err)

	// Should deduplicate by resource (keep first)
	assert.Len(t, role.DataScopes, 2)
	txDS := role.GetDataScope("bank_transaction")
	require.NotNil(t, txDS)
	assert.Equal(t, DataScopeSelf, txDS.ScopeType) // First one wins
}

func TestRole_Update(t *testing.T) {
	role := createTestRole(t)
	role.ClearDomainEvents()

	err := role.Update("New Name", "New Description")
	require.NoError(t, err)
	assert.Equal(t, "New Name", role.Name)
	assert.Equal(t, "New Description", role.Description)

	// Check event
	events := role.GetDomainEvents()
	require.Len(t, events, 1)
	_, ok := events[0].(*RoleUpdatedEvent)
	assert.True(t, ok)
}

func TestRole_CanDelete(t *testing.T) {
	// Regular role can be deleted
	regularRole := createTestRole(t)
	assert.True(t, regularRole.CanDelete())

	// System role cannot be deleted
	systemRole := createTestSystemRole(t)
	assert.False(t, systemRole.CanDelete())
}

func TestRoleCodeConstants(t *testing.T) {
	// Verify predefined role codes are valid
	codes := []string{
		RoleCodeAdmin,
		RoleCodeOwner,
		RoleCodeAccountant,
		RoleCodeBookkeeper,
		RoleCodeReviewer,
		RoleCodeViewer,
	}

	tenantID := uuid.New()
	for _, code := range codes {
		role, err := NewRole(tenantID, code, "Test Role")
		require.NoError(t, err, "Failed to create role with code: %s", code)
		assert.NotNil(t, role)
	}
}

func TestResourceAndActionConstants(t *testing.T) {
	// Verify predefined resource/action combinations are valid
	resources := []string{
		ResourceAccount,
		ResourceJournalEntry,
		ResourceTaxRate,
		ResourceInvoice,
		ResourceBill,
		ResourceBankAccount,
		ResourceBankTransaction,
		ResourceReconciliation,
	}

	actions := []string{
		ActionCreate,
		ActionRead,
		ActionUpdate,
		ActionDelete,
		ActionPost,
		ActionVoid,
		ActionComplete,
		ActionReopen,
	}

	for _, resource := range resources {
		for _, action := range actions {
			perm, err := NewPermission(resource, action)
			require.NoError(t, err, "Failed to create permission for %s:%s", resource, action)
			assert.NotNil(t, perm)
		}
	}
}

func TestRole_ConcurrentPermissionOperations(t *testing.T) {
	role := createTestRole(t)

	// Grant multiple permissions
	permissions := []string{
		"account:create",
		"account:read",
		"account:update",
		"bank_account:read",
		"bank_account:create",
		"journal_entry:create",
		"journal_entry:post",
		"journal_entry:void",
	}

	for _, code := range permissions {
		err := role.GrantPermissionByCode(code)
		require.NoError(t, err)
	}

	assert.Len(t, role.Permissions, len(permissions))

	// Verify all permissions exist
	for _, code := range permissions {
		assert.True(t, role.HasPermission(code), "Missing permission: %s", code)
	}

	// Revoke some permissions
	err := role.RevokePermission("account:update")
	require.NoError(t, err)
	err = role.RevokePermission("journal_entry:void")
	require.NoError(t, err)

	assert.Len(t, role.Permissions, len(permissions)-2)
	assert.False(t, role.HasPermission("account:update"))
	assert.False(t, role.HasPermission("journal_entry:void"))
	assert.True(t, role.HasPermission("account:create"))
}

func TestRole_VersionIncrement(t *testing.T) {
	role := createTestRole(t)
	initialVersion := role.Version

	// Each operation should increment version
	role.SetDescription("desc")
	assert.Equal(t, initialVersion+1, role.Version)

	role.SetSortOrder(10)
	assert.Equal(t, initialVersion+2, role.Version)

	role.GrantPermissionByCode("account:read")
	assert.Equal(t, initialVersion+3, role.Version)

	role.RevokePermission("account:read")
	assert.Equal(t, initialVersion+4, role.Version)
}

func TestRole_CodeNormalization(t *testing.T) {
	tenantID := uuid.New()

	// Code should be normalized to uppercase
	role, err := NewRole(tenantID, "junior_clerk", "Junior Clerk")
	require.NoError(t, err)
	assert.Equal(t, "JUNIOR_CLERK", role.Code)

	// Code with mixed case
	role2, err := NewRole(tenantID, "LeadReviewer", "Lead Reviewer")
	require.NoError(t, err)
	assert.Equal(t, "LEADREVIEWER", role2.Code)
}

func TestRole_EmptyPermission(t *testing.T) {
	role := createTestRole(t)

	// Cannot grant empty permission
	err := role.GrantPermission(Permission{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Permission cannot be empty")
}

func TestRole_EmptyDataScope(t *testing.T) {
	role := createTestRole(t)

	// Cannot set empty data scope
	err := role.SetDataScope(DataScope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Data scope cannot be empty")
}

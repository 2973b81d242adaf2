package phpini

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RequiresResellerFirst(t *testing.T) {
	e := New(setupDB(t))
	assert.Equal(t, StateUnloaded, e.State())

	_, err := e.SetResellerPermission(PermPHP, "1")
	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StateResellerLoaded, pe.Required)
	assert.Equal(t, "reseller PHP permissions not loaded", err.Error())

	assert.ErrorAs(t, e.LoadClientPermissions(nil), &pe)
	assert.ErrorAs(t, e.LoadIniOptions(nil), &pe)
	_, err = e.ResellerHasPermission(PermPHP)
	assert.ErrorAs(t, err, &pe)
	assert.ErrorAs(t, e.SaveResellerPermissions(1), &pe)
}

func TestLoadResellerPermissions_Defaults(t *testing.T) {
	db := setupDB(t)
	missing := uint(999)

	for _, id := range []*uint{nil, &missing} {
		e := New(db)
		require.NoError(t, e.LoadResellerPermissions(id))
		assert.Equal(t, StateResellerLoaded, e.State())

		perms, err := e.ResellerPermissions()
		require.NoError(t, err)
		assert.False(t, perms.PHPEnabled)
		assert.Equal(t, ConfigLevelPerSite, perms.ConfigLevel)
		assert.Equal(t, DisableFunctionsNo, perms.DisableFunctions)
		assert.Equal(t, DefaultLimits, perms.Limits)
	}
}

func TestSetResellerPermission_Validation(t *testing.T) {
	tests := []struct {
		name    Permission
		value   string
		applied bool
	}{
		{PermPHP, "1", true},
		{PermPHP, "0", true},
		{PermPHP, "yes", false},
		{PermPHP, "2", false},
		{PermMailFunction, "", false},
		{PermConfigLevel, "per_domain", true},
		{PermConfigLevel, "per_user", true},
		{PermConfigLevel, "per_server", false},
		{PermDisableFunctions, "exec", true},
		{PermDisableFunctions, "1", false},
		{PermMemoryLimit, "1", true},
		{PermMemoryLimit, "10000", true},
		{PermMemoryLimit, "0", false},
		{PermMemoryLimit, "10001", false},
		{PermMemoryLimit, "+5", false},
		{PermMemoryLimit, "05", false},
		{PermMemoryLimit, "12.5", false},
		{PermMaxInputTime, "abc", false},
		{PermUploadMaxFilesize, "8", true},
		{PermUploadMaxFilesize, "9", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.name)+"="+tt.value, func(t *testing.T) {
			e := New(nil)
			require.NoError(t, e.LoadResellerPermissions(nil))
			before, err := e.GetResellerPermission(tt.name)
			require.NoError(t, err)

			applied, err := e.SetResellerPermission(tt.name, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)

			got, err := e.GetResellerPermission(tt.name)
			require.NoError(t, err)
			if tt.applied {
				assert.Equal(t, tt.value, got)
			} else {
				assert.Equal(t, before, got)
			}
			assert.False(t, e.ProvisioningRequestNeeded())
		})
	}
}

func TestSetResellerPermission_UnknownField(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.LoadResellerPermissions(nil))

	_, err := e.SetResellerPermission("php_ini_safe_mode", "1")
	var fe *InvalidFieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "php_ini_safe_mode", fe.Name)

	_, err = e.GetResellerPermission("nope")
	assert.ErrorAs(t, err, &fe)
	_, err = e.ResellerHasPermission(PermMemoryLimit)
	assert.ErrorAs(t, err, &fe)
}

func TestSetResellerPermission_LoweringPostClampsUpload(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.LoadResellerPermissions(nil))

	applied, err := e.SetResellerPermission(PermUploadMaxFilesize, "8")
	require.NoError(t, err)
	require.True(t, applied)
	applied, err = e.SetResellerPermission(PermPostMaxSize, "4")
	require.NoError(t, err)
	require.True(t, applied)

	perms, err := e.ResellerPermissions()
	require.NoError(t, err)
	assert.Equal(t, 4, perms.PostMaxSize)
	assert.Equal(t, 4, perms.UploadMaxFilesize)
}

func TestSaveResellerPermissions(t *testing.T) {
	db := setupDB(t)
	resellerID := seedReseller(t, db, "reseller1", fullReseller())

	e := New(db)
	require.NoError(t, e.LoadResellerPermissions(&resellerID))
	for name, value := range map[Permission]string{
		PermDisplayErrors:    "0",
		PermConfigLevel:      "per_domain",
		PermDisableFunctions: "exec",
		PermMemoryLimit:      "256",
	} {
		applied, err := e.SetResellerPermission(name, value)
		require.NoError(t, err)
		require.True(t, applied, name)
	}
	require.NoError(t, e.SaveResellerPermissions(resellerID))

	reloaded := New(db)
	require.NoError(t, reloaded.LoadResellerPermissions(&resellerID))
	perms, err := reloaded.ResellerPermissions()
	require.NoError(t, err)
	assert.True(t, perms.PHPEnabled)
	assert.False(t, perms.DisplayErrors)
	assert.Equal(t, ConfigLevelPerDomain, perms.ConfigLevel)
	assert.Equal(t, DisableFunctionsExec, perms.DisableFunctions)
	assert.Equal(t, 256, perms.MemoryLimit)
	assert.Equal(t, 64, perms.PostMaxSize)

	err = reloaded.SaveResellerPermissions(resellerID + 100)
	assert.ErrorIs(t, err, ErrResellerNotFound)
}

func TestResellerHasPermission(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.LoadResellerPermissions(nil))
	e.reseller.AllowURLFopen = true
	e.reseller.MailFunction = true

	// Nothing is granted while PHP editing is off.
	for _, name := range []Permission{PermPHP, PermConfigLevel, PermAllowURLFopen, PermMailFunction} {
		has, err := e.ResellerHasPermission(name)
		require.NoError(t, err)
		assert.False(t, has, name)
	}

	_, err := e.SetResellerPermission(PermPHP, "1")
	require.NoError(t, err)

	tests := []struct {
		set   map[Permission]string
		name  Permission
		wants bool
	}{
		{nil, PermPHP, true},
		{nil, PermAllowURLFopen, true},
		{nil, PermDisplayErrors, false},
		{map[Permission]string{PermDisableFunctions: "no"}, PermDisableFunctions, false},
		{map[Permission]string{PermDisableFunctions: "exec"}, PermDisableFunctions, true},
		{map[Permission]string{PermDisableFunctions: "yes"}, PermDisableFunctions, true},
		{map[Permission]string{PermConfigLevel: "per_user"}, PermConfigLevel, false},
		{map[Permission]string{PermConfigLevel: "per_domain"}, PermConfigLevel, true},
		{map[Permission]string{PermConfigLevel: "per_site"}, PermConfigLevel, true},
	}
	for _, tt := range tests {
		for name, value := range tt.set {
			_, err := e.SetResellerPermission(name, value)
			require.NoError(t, err)
		}
		has, err := e.ResellerHasPermission(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.wants, has, "%s after %v", tt.name, tt.set)
	}
}

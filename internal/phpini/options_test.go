package phpini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostwarden/backend/internal/models"
)

func TestLoadIniOptions_Defaults(t *testing.T) {
	db := setupDB(t)
	props := fullReseller()
	props.MemoryLimit = 64
	props.MaxExecutionTime = 10
	resellerID := seedReseller(t, db, "reseller1", props)
	dmn := fullClient()
	dmn.PHPIniMailFunction = false
	clientID, _ := seedClient(t, db, resellerID, "client1", dmn)

	e := loadAll(t, db, resellerID, clientID, nil)
	assert.Equal(t, StateOptionsLoaded, e.State())
	assert.True(t, e.IsDefaultIniOptions())

	opts, err := e.IniOptions()
	require.NoError(t, err)
	assert.False(t, opts.AllowURLFopen)
	assert.False(t, opts.DisplayErrors)
	assert.Equal(t, ErrorReportingProduction, opts.ErrorReporting)
	assert.Equal(t, Limits{MemoryLimit: 64, PostMaxSize: 8, UploadMaxFilesize: 2, MaxExecutionTime: 10, MaxInputTime: 60}, opts.Limits)

	got, err := e.GetIniOption(OptDisableFunctions)
	require.NoError(t, err)
	assert.Equal(t, "exec,passthru,phpinfo,popen,proc_open,show_source,shell,shell_exec,symlink,system,mail", got)
}

func TestLoadIniOptions_InvalidRef(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.LoadResellerPermissions(nil))
	require.NoError(t, e.LoadClientPermissions(nil))

	err := e.LoadIniOptions(&DomainRef{ClientID: 1, DomainID: 1, DomainType: "vhost"})
	assert.ErrorIs(t, err, ErrInvalidDomainRef)
	assert.Equal(t, StateClientLoaded, e.State())
}

func TestSetIniOption_UploadBoundedByPost(t *testing.T) {
	db := setupDB(t)
	resellerID := seedReseller(t, db, "reseller1", fullReseller())
	clientID, _ := seedClient(t, db, resellerID, "client1", fullClient())
	e := loadAll(t, db, resellerID, clientID, nil)

	applied, err := e.SetIniOption(OptPostMaxSize, "8")
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = e.SetIniOption(OptUploadMaxFilesize, "10")
	require.NoError(t, err)
	assert.False(t, applied)
	got, _ := e.GetIniOption(OptUploadMaxFilesize)
	assert.Equal(t, "2", got)

	applied, err = e.SetIniOption(OptUploadMaxFilesize, "5")
	require.NoError(t, err)
	assert.True(t, applied)
	got, _ = e.GetIniOption(OptUploadMaxFilesize)
	assert.Equal(t, "5", got)

	// Lowering post below upload drags upload down with it.
	applied, err = e.SetIniOption(OptPostMaxSize, "4")
	require.NoError(t, err)
	require.True(t, applied)
	got, _ = e.GetIniOption(OptUploadMaxFilesize)
	assert.Equal(t, "4", got)
}

func TestSetIniOption_Validation(t *testing.T) {
	tests := []struct {
		title   string
		client  func(*models.Domain)
		name    Option
		value   string
		applied bool
	}{
		{"within ceiling", nil, OptMemoryLimit, "512", true},
		{"above reseller ceiling", nil, OptMemoryLimit, "513", false},
		{"below range", nil, OptMaxInputTime, "0", false},
		{"not a number", nil, OptMaxExecutionTime, "30s", false},
		{"error reporting profile", nil, OptErrorReporting, ErrorReportingAll, true},
		{"unknown error reporting", nil, OptErrorReporting, "E_ALL", false},
		{"error reporting without php", func(d *models.Domain) { d.PHPIni = false }, OptErrorReporting, ErrorReportingAll, false},
		{"url fopen granted", nil, OptAllowURLFopen, "1", true},
		{"url fopen not granted", func(d *models.Domain) { d.PHPIniAllowURLFopen = false }, OptAllowURLFopen, "1", false},
		{"display errors invalid", nil, OptDisplayErrors, "on", false},
		{"allow-listed functions", nil, OptDisableFunctions, "exec,system", true},
		{"unknown function", nil, OptDisableFunctions, "exec,eval", false},
		{"functions not granted", func(d *models.Domain) { d.PHPIniDisableFunctions = "no" }, OptDisableFunctions, "exec", false},
		{"mail must stay disabled", func(d *models.Domain) { d.PHPIniMailFunction = false }, OptDisableFunctions, "exec", false},
		{"mail kept disabled", func(d *models.Domain) { d.PHPIniMailFunction = false }, OptDisableFunctions, "exec,mail", true},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			db := setupDB(t)
			resellerID := seedReseller(t, db, "reseller1", fullReseller())
			dmn := fullClient()
			if tt.client != nil {
				tt.client(&dmn)
			}
			clientID, _ := seedClient(t, db, resellerID, "client1", dmn)
			e := loadAll(t, db, resellerID, clientID, nil)
			before, err := e.IniOptions()
			require.NoError(t, err)

			applied, err := e.SetIniOption(tt.name, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
			assert.Equal(t, !tt.applied, e.IsDefaultIniOptions())
			if !tt.applied {
				after, _ := e.IniOptions()
				assert.Equal(t, before, after)
			}
			assert.False(t, e.ProvisioningRequestNeeded())
		})
	}
}

func TestSetIniOption_UnknownOption(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.LoadResellerPermissions(nil))
	require.NoError(t, e.LoadClientPermissions(nil))

	_, err := e.SetIniOption(OptMemoryLimit, "64")
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "domain INI options not loaded", err.Error())

	require.NoError(t, e.LoadIniOptions(nil))
	var fe *InvalidFieldError
	_, err = e.SetIniOption("php_ini_short_open_tag", "1")
	assert.ErrorAs(t, err, &fe)
	_, err = e.GetIniOption("php_ini_short_open_tag")
	assert.ErrorAs(t, err, &fe)
}

func TestSetIniOption_DisableFunctionsRoundTrip(t *testing.T) {
	db := setupDB(t)
	resellerID := seedReseller(t, db, "reseller1", fullReseller())
	clientID, _ := seedClient(t, db, resellerID, "client1", fullClient())
	e := loadAll(t, db, resellerID, clientID, nil)

	applied, err := e.SetIniOption(OptDisableFunctions, "system, exec,,system,popen")
	require.NoError(t, err)
	require.True(t, applied)

	opts, err := e.IniOptions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"exec", "popen", "system"}, opts.DisableFunctions)
}

func TestSetIniOption_ExecModeOnlyTogglesExec(t *testing.T) {
	db := setupDB(t)
	resellerID := seedReseller(t, db, "reseller1", fullReseller())
	dmn := fullClient()
	dmn.PHPIniDisableFunctions = "exec"
	clientID, _ := seedClient(t, db, resellerID, "client1", dmn)
	e := loadAll(t, db, resellerID, clientID, nil)

	applied, err := e.SetIniOption(OptDisableFunctions, "exec")
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = e.SetIniOption(OptDisableFunctions, "passthru,phpinfo,popen,proc_open,show_source,shell,shell_exec,symlink,system")
	require.NoError(t, err)
	assert.True(t, applied)
	opts, _ := e.IniOptions()
	assert.NotContains(t, opts.DisableFunctions, "exec")
}

func TestSaveIniOptions_SignalsOnlyOnChange(t *testing.T) {
	db := setupDB(t)
	resellerID := seedReseller(t, db, "reseller1", fullReseller())
	clientID, domainID := seedClient(t, db, resellerID, "client1", fullClient())
	ref := DomainRef{ClientID: clientID, DomainID: domainID, DomainType: models.DomainTypeDomain}

	e := loadAll(t, db, resellerID, clientID, &ref)
	require.True(t, e.IsDefaultIniOptions())
	require.NoError(t, e.SaveIniOptions(ref))
	assert.True(t, e.ProvisioningRequestNeeded(), "first save creates the row")

	e = loadAll(t, db, resellerID, clientID, &ref)
	assert.False(t, e.IsDefaultIniOptions())
	require.NoError(t, e.SaveIniOptions(ref))
	require.NoError(t, e.SaveIniOptions(ref))
	assert.False(t, e.ProvisioningRequestNeeded(), "identical values are not a change")

	applied, err := e.SetIniOption(OptMemoryLimit, "256")
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, e.SaveIniOptions(ref))
	assert.True(t, e.ProvisioningRequestNeeded())

	var rows []models.PhpIni
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 256, rows[0].MemoryLimit)
	assert.Equal(t, ErrorReportingProduction, rows[0].ErrorReporting)
}

// A reseller enabling PHP with per_site granularity and an untouched
// disable_functions mode leaves the client with the full baseline list.
func TestEndToEnd_ClientWithoutFunctionControl(t *testing.T) {
	for _, mail := range []bool{true, false} {
		db := setupDB(t)
		resellerID := seedReseller(t, db, "reseller1", models.ResellerProps{
			PostMaxSize: 8, UploadMaxFilesize: 2, MaxExecutionTime: 30, MaxInputTime: 60, MemoryLimit: 128,
			MailFunction: true,
		})
		clientID, domainID := seedClient(t, db, resellerID, "client1", models.Domain{})
		ref := DomainRef{ClientID: clientID, DomainID: domainID, DomainType: models.DomainTypeDomain}

		e := New(db)
		require.NoError(t, e.LoadResellerPermissions(&resellerID))
		for name, value := range map[Permission]string{PermPHP: "1", PermConfigLevel: "per_site"} {
			applied, err := e.SetResellerPermission(name, value)
			require.NoError(t, err)
			require.True(t, applied)
		}
		require.NoError(t, e.SaveResellerPermissions(resellerID))

		require.NoError(t, e.LoadClientPermissions(&clientID))
		applied, err := e.SetClientPermission(PermMailFunction, formatFlag(mail))
		require.NoError(t, err)
		assert.True(t, applied, "reseller grants mail")
		applied, err = e.SetClientPermission(PermDisableFunctions, "no")
		require.NoError(t, err)
		assert.False(t, applied, "reseller disable_functions mode is no")
		require.NoError(t, e.SaveClientPermissions(clientID))

		require.NoError(t, e.LoadIniOptions(&ref))
		require.NoError(t, e.SaveIniOptions(ref))

		var row models.PhpIni
		require.NoError(t, db.Where("domain_id = ?", domainID).First(&row).Error)
		want := "exec,passthru,phpinfo,popen,proc_open,show_source,shell,shell_exec,symlink,system"
		if !mail {
			want += ",mail"
		}
		assert.Equal(t, want, row.DisableFunctions, "mail permission %v", mail)
	}
}

package phpini

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/database"
	"github.com/hostwarden/backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "phpini.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fullReseller grants everything with generous ceilings.
func fullReseller() models.ResellerProps {
	return models.ResellerProps{
		PHPIni:            true,
		ConfigLevel:       string(ConfigLevelPerSite),
		DisableFunctions:  string(DisableFunctionsYes),
		MailFunction:      true,
		AllowURLFopen:     true,
		DisplayErrors:     true,
		PostMaxSize:       64,
		UploadMaxFilesize: 32,
		MaxExecutionTime:  120,
		MaxInputTime:      120,
		MemoryLimit:       512,
	}
}

func fullClient() models.Domain {
	return models.Domain{
		PHPIni:                 true,
		PHPIniConfigLevel:      string(ConfigLevelPerSite),
		PHPIniAllowURLFopen:    true,
		PHPIniDisplayErrors:    true,
		PHPIniDisableFunctions: string(DisableFunctionsYes),
		PHPIniMailFunction:     true,
	}
}

func seedReseller(t *testing.T, db *gorm.DB, name string, props models.ResellerProps) uint {
	t.Helper()
	reseller := models.Admin{UUID: name + "-uuid", AdminName: name, AdminType: models.AdminTypeReseller}
	require.NoError(t, db.Create(&reseller).Error)
	props.ResellerID = reseller.ID
	require.NoError(t, db.Create(&props).Error)
	return reseller.ID
}

// seedClient creates a client owned by resellerID with its primary domain.
func seedClient(t *testing.T, db *gorm.DB, resellerID uint, name string, dmn models.Domain) (uint, uint) {
	t.Helper()
	client := models.Admin{UUID: name + "-uuid", AdminName: name, AdminType: models.AdminTypeClient, CreatedBy: resellerID}
	require.NoError(t, db.Create(&client).Error)
	dmn.DomainName = name + ".test"
	dmn.DomainAdminID = client.ID
	if dmn.DomainStatus == "" {
		dmn.DomainStatus = models.StatusOK
	}
	require.NoError(t, db.Create(&dmn).Error)
	return client.ID, dmn.ID
}

// loadAll brings a fresh engine to StateOptionsLoaded for the given ids.
func loadAll(t *testing.T, db *gorm.DB, resellerID, clientID uint, ref *DomainRef) *Engine {
	t.Helper()
	e := New(db)
	require.NoError(t, e.LoadResellerPermissions(&resellerID))
	require.NoError(t, e.LoadClientPermissions(&clientID))
	require.NoError(t, e.LoadIniOptions(ref))
	return e
}

func domainStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var d models.Domain
	require.NoError(t, db.First(&d, id).Error)
	return d.DomainStatus
}

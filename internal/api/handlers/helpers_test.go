package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/api/middleware"
	"github.com/hostwarden/backend/internal/daemon"
	"github.com/hostwarden/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) SendRequest(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *countingNotifier) factory() func() daemon.Notifier {
	return func() daemon.Notifier { return n }
}

// as authenticates every request of the router as uid with role.
func as(uid uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type fixture struct {
	adminID    uint
	resellerID uint
	otherID    uint
	clientID   uint
	domainID   uint
	aliasID    uint
	subID      uint
	subAlsID   uint
}

// seedFixture creates an admin, two resellers and one client of the first
// reseller owning a domain, an alias, a subdomain and a subdomain alias.
func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	var f fixture
	mk := func(name, typ string, createdBy uint) uint {
		a := models.Admin{UUID: name + "-uuid", AdminName: name, AdminType: typ, CreatedBy: createdBy}
		require.NoError(t, db.Create(&a).Error)
		return a.ID
	}
	f.adminID = mk("admin", models.AdminTypeAdmin, 0)
	f.resellerID = mk("reseller1", models.AdminTypeReseller, f.adminID)
	f.otherID = mk("reseller2", models.AdminTypeReseller, f.adminID)
	f.clientID = mk("client1", models.AdminTypeClient, f.resellerID)

	for _, id := range []uint{f.resellerID, f.otherID} {
		require.NoError(t, db.Create(&models.ResellerProps{
			ResellerID:        id,
			PHPIni:            true,
			ConfigLevel:       "per_site",
			DisableFunctions:  "yes",
			MailFunction:      true,
			AllowURLFopen:     true,
			DisplayErrors:     true,
			PostMaxSize:       64,
			UploadMaxFilesize: 32,
			MaxExecutionTime:  120,
			MaxInputTime:      120,
			MemoryLimit:       512,
		}).Error)
	}

	dmn := models.Domain{
		DomainName:             "client1.test",
		DomainAdminID:          f.clientID,
		DomainStatus:           models.StatusOK,
		PHPIni:                 true,
		PHPIniConfigLevel:      "per_site",
		PHPIniAllowURLFopen:    true,
		PHPIniDisplayErrors:    true,
		PHPIniDisableFunctions: "yes",
		PHPIniMailFunction:     true,
	}
	require.NoError(t, db.Create(&dmn).Error)
	f.domainID = dmn.ID

	als := models.DomainAlias{DomainID: dmn.ID, AliasName: "alias.test", AliasStatus: models.StatusOK}
	require.NoError(t, db.Create(&als).Error)
	f.aliasID = als.ID
	sub := models.Subdomain{DomainID: dmn.ID, SubdomainName: "www", SubdomainStatus: models.StatusOK}
	require.NoError(t, db.Create(&sub).Error)
	f.subID = sub.ID
	subals := models.SubdomainAlias{AliasID: als.ID, SubdomainAliasName: "www", SubdomainAliasStatus: models.StatusOK}
	require.NoError(t, db.Create(&subals).Error)
	f.subAlsID = subals.ID
	return f
}

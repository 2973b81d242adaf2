package handlers

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/api/middleware"
	"github.com/hostwarden/backend/internal/daemon"
	"github.com/hostwarden/backend/internal/models"
	"github.com/hostwarden/backend/internal/phpini"
)

// Fields are applied in this order so that ceilings and modes are in place
// before the values they constrain.
var (
	resellerFieldOrder = []string{
		string(phpini.PermPHP),
		string(phpini.PermConfigLevel),
		string(phpini.PermAllowURLFopen),
		string(phpini.PermDisplayErrors),
		string(phpini.PermDisableFunctions),
		string(phpini.PermMailFunction),
		string(phpini.PermMemoryLimit),
		string(phpini.PermPostMaxSize),
		string(phpini.PermUploadMaxFilesize),
		string(phpini.PermMaxExecutionTime),
		string(phpini.PermMaxInputTime),
	}
	clientFieldOrder = resellerFieldOrder[:6]
	optionFieldOrder = []string{
		string(phpini.OptAllowURLFopen),
		string(phpini.OptDisplayErrors),
		string(phpini.OptErrorReporting),
		string(phpini.OptDisableFunctions),
		string(phpini.OptMemoryLimit),
		string(phpini.OptPostMaxSize),
		string(phpini.OptUploadMaxFilesize),
		string(phpini.OptMaxExecutionTime),
		string(phpini.OptMaxInputTime),
	}
)

// PhpHandler edits reseller permissions, client permissions and per-domain
// INI options.
type PhpHandler struct {
	db       *gorm.DB
	notifier func() daemon.Notifier
}

// NewPhpHandler returns the handler. notifier builds the daemon client used
// once per request that changed provisioning data.
func NewPhpHandler(db *gorm.DB, notifier func() daemon.Notifier) *PhpHandler {
	return &PhpHandler{db: db, notifier: notifier}
}

func (h *PhpHandler) GetReseller(c *gin.Context) {
	id, ok := h.reseller(c)
	if !ok {
		return
	}
	e := phpini.New(h.db)
	if err := e.LoadResellerPermissions(&id); err != nil {
		h.fail(c, err)
		return
	}
	perms, _ := e.ResellerPermissions()
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// UpdateReseller applies the submitted reseller permissions and brings every
// client of the reseller in line with them.
func (h *PhpHandler) UpdateReseller(c *gin.Context) {
	id, ok := h.reseller(c)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	e := phpini.New(h.db)
	if err := e.LoadResellerPermissions(&id); err != nil {
		h.fail(c, err)
		return
	}
	applied, rejected, err := applyFields(resellerFieldOrder, fields, func(name, value string) (bool, error) {
		return e.SetResellerPermission(phpini.Permission(name), value)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := e.SaveResellerPermissions(id); err != nil {
		h.fail(c, err)
		return
	}
	syncErr := e.SyncClientPermissionsAndIniOptions(id, nil)
	h.signal(c, e)

	perms, _ := e.ResellerPermissions()
	body := gin.H{"permissions": perms, "applied": applied, "rejected": rejected}
	if syncErr != nil {
		// The reseller row is already saved at this point.
		middleware.GetRequestLogger(c).WithError(syncErr).Error("client PHP settings sync failed")
		body["error"] = "reseller permissions saved, client sync failed"
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *PhpHandler) GetClient(c *gin.Context) {
	client, ok := h.client(c, false)
	if !ok {
		return
	}
	e, ok := h.clientEngine(c, client)
	if !ok {
		return
	}
	perms, _ := e.ClientPermissions()
	reseller, _ := e.ResellerPermissions()
	c.JSON(http.StatusOK, gin.H{"permissions": perms, "reseller": reseller})
}

// UpdateClient applies the submitted client permissions, then restricts the
// client's stored INI options to what is still granted.
func (h *PhpHandler) UpdateClient(c *gin.Context) {
	client, ok := h.client(c, false)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	e, ok := h.clientEngine(c, client)
	if !ok {
		return
	}

	before, _ := e.ClientPermissions()
	applied, rejected, err := applyFields(clientFieldOrder, fields, func(name, value string) (bool, error) {
		return e.SetClientPermission(phpini.Permission(name), value)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := e.SaveClientPermissions(client.ID); err != nil {
		h.fail(c, err)
		return
	}
	after, _ := e.ClientPermissions()
	if err := e.UpdateClientIniOptions(client.ID, before.ConfigLevel != after.ConfigLevel, true); err != nil {
		h.fail(c, err)
		return
	}
	h.signal(c, e)

	c.JSON(http.StatusOK, gin.H{"permissions": after, "applied": applied, "rejected": rejected})
}

func (h *PhpHandler) GetDomain(c *gin.Context) {
	client, ok := h.client(c, true)
	if !ok {
		return
	}
	e, ref, ok := h.domainEngine(c, client)
	if !ok {
		return
	}
	opts, _ := e.IniOptions()
	perms, _ := e.ClientPermissions()
	c.JSON(http.StatusOK, gin.H{
		"domain":      ref,
		"options":     opts,
		"is_default":  e.IsDefaultIniOptions(),
		"permissions": perms,
	})
}

// UpdateDomain applies the submitted INI options to one domain-like entity
// and schedules every entity sharing its configuration for reprovisioning.
func (h *PhpHandler) UpdateDomain(c *gin.Context) {
	client, ok := h.client(c, true)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	e, ref, ok := h.domainEngine(c, client)
	if !ok {
		return
	}

	applied, rejected, err := applyFields(optionFieldOrder, fields, func(name, value string) (bool, error) {
		return e.SetIniOption(phpini.Option(name), value)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := e.SaveIniOptions(ref); err != nil {
		h.fail(c, err)
		return
	}
	if err := e.UpdateDomainStatuses(ref, true); err != nil {
		h.fail(c, err)
		return
	}
	h.signal(c, e)

	opts, _ := e.IniOptions()
	c.JSON(http.StatusOK, gin.H{
		"domain":     ref,
		"options":    opts,
		"is_default": e.IsDefaultIniOptions(),
		"applied":    applied,
		"rejected":   rejected,
	})
}

func (h *PhpHandler) reseller(c *gin.Context) (uint, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return 0, false
	}
	var n int64
	err := h.db.Model(&models.Admin{}).
		Where("admin_id = ? AND admin_type = ?", id, models.AdminTypeReseller).
		Count(&n).Error
	if err != nil {
		h.fail(c, err)
		return 0, false
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "reseller not found"})
		return 0, false
	}
	return id, true
}

// client loads the client named by the :id parameter and checks the caller
// may act on it: admins always, resellers for their own clients, and the
// client itself when allowSelf.
func (h *PhpHandler) client(c *gin.Context, allowSelf bool) (models.Admin, bool) {
	var client models.Admin
	id, ok := parseID(c, "id")
	if !ok {
		return client, false
	}
	res := h.db.Where("admin_id = ? AND admin_type = ?", id, models.AdminTypeClient).Limit(1).Find(&client)
	if res.Error != nil {
		h.fail(c, res.Error)
		return client, false
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return client, false
	}

	uid := c.GetUint(middleware.UserIDKey)
	allowed := false
	switch c.GetString(middleware.RoleKey) {
	case models.AdminTypeAdmin:
		allowed = true
	case models.AdminTypeReseller:
		allowed = client.CreatedBy == uid
	case models.AdminTypeClient:
		allowed = allowSelf && client.ID == uid
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return client, false
	}
	return client, true
}

func (h *PhpHandler) clientEngine(c *gin.Context, client models.Admin) (*phpini.Engine, bool) {
	e := phpini.New(h.db)
	if err := e.LoadResellerPermissions(&client.CreatedBy); err != nil {
		h.fail(c, err)
		return nil, false
	}
	if err := e.LoadClientPermissions(&client.ID); err != nil {
		h.fail(c, err)
		return nil, false
	}
	return e, true
}

func (h *PhpHandler) domainEngine(c *gin.Context, client models.Admin) (*phpini.Engine, phpini.DomainRef, bool) {
	ref := phpini.DomainRef{ClientID: client.ID, DomainType: c.Param("type")}
	id, ok := parseID(c, "domain_id")
	if !ok {
		return nil, ref, false
	}
	ref.DomainID = id

	e, ok := h.clientEngine(c, client)
	if !ok {
		return nil, ref, false
	}
	if err := e.LoadIniOptions(&ref); err != nil {
		h.fail(c, err)
		return nil, ref, false
	}
	owned, err := h.ownsEntity(ref)
	if err != nil {
		h.fail(c, err)
		return nil, ref, false
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "domain not found"})
		return nil, ref, false
	}
	return e, ref, true
}

// ownsEntity reports whether the entity of ref hangs under the client's
// primary domain.
func (h *PhpHandler) ownsEntity(ref phpini.DomainRef) (bool, error) {
	var main models.Domain
	res := h.db.Select("domain_id").Where("domain_admin_id = ?", ref.ClientID).Limit(1).Find(&main)
	if res.Error != nil || res.RowsAffected == 0 {
		return false, res.Error
	}

	var q *gorm.DB
	switch ref.DomainType {
	case models.DomainTypeDomain:
		q = h.db.Model(&models.Domain{}).Where("domain_id = ? AND domain_id = ?", ref.DomainID, main.ID)
	case models.DomainTypeAlias:
		q = h.db.Model(&models.DomainAlias{}).Where("alias_id = ? AND domain_id = ?", ref.DomainID, main.ID)
	case models.DomainTypeSubdomain:
		q = h.db.Model(&models.Subdomain{}).Where("subdomain_id = ? AND domain_id = ?", ref.DomainID, main.ID)
	case models.DomainTypeSubdomainAlias:
		aliases := h.db.Model(&models.DomainAlias{}).Select("alias_id").Where("domain_id = ?", main.ID)
		q = h.db.Model(&models.SubdomainAlias{}).Where("subdomain_alias_id = ? AND alias_id IN (?)", ref.DomainID, aliases)
	default:
		return false, nil
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (h *PhpHandler) signal(c *gin.Context, e *phpini.Engine) {
	if e.ProvisioningRequestNeeded() && h.notifier != nil {
		daemon.Notify(c.Request.Context(), h.notifier())
	}
}

func (h *PhpHandler) fail(c *gin.Context, err error) {
	var invalid *phpini.InvalidFieldError
	switch {
	case errors.As(err, &invalid), errors.Is(err, phpini.ErrInvalidDomainRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, phpini.ErrResellerNotFound), errors.Is(err, phpini.ErrClientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("PHP settings request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(id), true
}

// bindFields reads a JSON object of wire names. Booleans become "1"/"0",
// numbers their decimal form and string arrays a comma separated list.
func bindFields(c *gin.Context) (map[string]string, bool) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	fields := make(map[string]string, len(raw))
	for name, v := range raw {
		s, err := fieldString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", name, err)})
			return nil, false
		}
		fields[name] = s
	}
	return fields, true
}

func fieldString(v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", errors.New("list items must be strings")
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	}
	return "", fmt.Errorf("unsupported value %v", v)
}

// applyFields calls set for every submitted field, known names in order
// first, and sorts the names into applied and rejected. Unknown names reach
// set too, which reports them as errors.
func applyFields(order []string, fields map[string]string, set func(name, value string) (bool, error)) ([]string, []string, error) {
	applied, rejected := []string{}, []string{}
	apply := func(name string) error {
		ok, err := set(name, fields[name])
		if err != nil {
			return err
		}
		if ok {
			applied = append(applied, name)
		} else {
			rejected = append(rejected, name)
		}
		return nil
	}
	for _, name := range order {
		if _, ok := fields[name]; !ok {
			continue
		}
		if err := apply(name); err != nil {
			return nil, nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if slices.Contains(order, name) {
			continue
		}
		if err := apply(name); err != nil {
			return nil, nil, err
		}
	}
	return applied, rejected, nil
}

// Package phpini decides which PHP settings resellers, clients and domains
// may carry, and persists them.
//
// An Engine loads three layers in order: reseller permissions, client
// permissions, then the INI options of one domain-like entity. Each layer is
// bounded by the one above it. Setters validate their input and report
// whether the value was applied; only structural misuse returns an error.
package phpini

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/models"
)

// Engine holds the working copy of the three permission layers for one
// request. It is not safe for concurrent use.
type Engine struct {
	db  *gorm.DB
	log *logrus.Entry

	state            State
	reseller         ResellerPermissions
	client           ClientPermissions
	options          IniOptions
	isDefaultOptions bool
	requestNeeded    bool
}

// New returns an unloaded engine backed by db.
func New(db *gorm.DB) *Engine {
	return &Engine{db: db, log: logger.Component("phpini")}
}

// State reports how far the engine has been loaded.
func (e *Engine) State() State {
	return e.state
}

// ProvisioningRequestNeeded reports whether a save or status update changed
// persisted data, so the provisioning worker has to be signalled.
func (e *Engine) ProvisioningRequestNeeded() bool {
	return e.requestNeeded
}

func (e *Engine) require(s State) error {
	if e.state < s {
		return &PreconditionError{Required: s, Current: e.state}
	}
	return nil
}

// advance moves the state forward. Reloading a layer never regresses it.
func (e *Engine) advance(s State) {
	if s > e.state {
		e.state = s
	}
}

func defaultResellerPermissions() ResellerPermissions {
	return ResellerPermissions{
		PHPEnabled:       false,
		ConfigLevel:      ConfigLevelPerSite,
		AllowURLFopen:    false,
		DisplayErrors:    false,
		DisableFunctions: DisableFunctionsNo,
		MailFunction:     true,
		Limits:           DefaultLimits,
	}
}

func resellerFromRow(row models.ResellerProps) ResellerPermissions {
	p := ResellerPermissions{
		PHPEnabled:       row.PHPIni,
		ConfigLevel:      ConfigLevel(row.ConfigLevel),
		AllowURLFopen:    row.AllowURLFopen,
		DisplayErrors:    row.DisplayErrors,
		DisableFunctions: DisableFunctionsMode(row.DisableFunctions),
		MailFunction:     row.MailFunction,
		Limits: Limits{
			MemoryLimit:       row.MemoryLimit,
			PostMaxSize:       row.PostMaxSize,
			UploadMaxFilesize: row.UploadMaxFilesize,
			MaxExecutionTime:  row.MaxExecutionTime,
			MaxInputTime:      row.MaxInputTime,
		},
	}
	if _, ok := parseConfigLevel(row.ConfigLevel); !ok {
		p.ConfigLevel = ConfigLevelPerSite
	}
	if _, ok := parseDisableMode(row.DisableFunctions); !ok {
		p.DisableFunctions = DisableFunctionsNo
	}
	return p
}

// LoadResellerPermissions loads the permissions of the given reseller. A nil
// id, or a reseller without stored properties, yields the defaults.
func (e *Engine) LoadResellerPermissions(resellerID *uint) error {
	perms := defaultResellerPermissions()
	if resellerID != nil {
		var row models.ResellerProps
		res := e.db.Where("reseller_id = ?", *resellerID).Limit(1).Find(&row)
		if res.Error != nil {
			return fmt.Errorf("load reseller %d PHP permissions: %w", *resellerID, res.Error)
		}
		if res.RowsAffected > 0 {
			perms = resellerFromRow(row)
		}
	}
	e.reseller = perms
	e.advance(StateResellerLoaded)
	return nil
}

// SetResellerPermission validates and applies one reseller permission.
func (e *Engine) SetResellerPermission(name Permission, value string) (bool, error) {
	if err := e.require(StateResellerLoaded); err != nil {
		return false, err
	}
	r := &e.reseller
	switch name {
	case PermPHP, PermAllowURLFopen, PermDisplayErrors, PermMailFunction:
		b, ok := parseFlag(value)
		if !ok {
			return e.rejected("reseller", string(name), value)
		}
		switch name {
		case PermPHP:
			r.PHPEnabled = b
		case PermAllowURLFopen:
			r.AllowURLFopen = b
		case PermDisplayErrors:
			r.DisplayErrors = b
		default:
			r.MailFunction = b
		}
	case PermDisableFunctions:
		m, ok := parseDisableMode(value)
		if !ok {
			return e.rejected("reseller", string(name), value)
		}
		r.DisableFunctions = m
	case PermConfigLevel:
		l, ok := parseConfigLevel(value)
		if !ok {
			return e.rejected("reseller", string(name), value)
		}
		r.ConfigLevel = l
	case PermMemoryLimit, PermPostMaxSize, PermUploadMaxFilesize, PermMaxExecutionTime, PermMaxInputTime:
		n, ok := parseLimit(value)
		if !ok || (name == PermUploadMaxFilesize && n > r.PostMaxSize) {
			return e.rejected("reseller", string(name), value)
		}
		field, _ := r.Limits.field(string(name))
		*field = n
		if name == PermPostMaxSize && r.UploadMaxFilesize > n {
			r.UploadMaxFilesize = n
		}
	default:
		return false, &InvalidFieldError{Layer: "reseller permission", Name: string(name)}
	}
	return true, nil
}

func (e *Engine) rejected(layer, name, value string) (bool, error) {
	e.log.WithFields(logrus.Fields{"layer": layer, "name": name, "value": value}).Debug("value rejected")
	return false, nil
}

// GetResellerPermission returns the wire value of one reseller permission.
func (e *Engine) GetResellerPermission(name Permission) (string, error) {
	if err := e.require(StateResellerLoaded); err != nil {
		return "", err
	}
	r := e.reseller
	switch name {
	case PermPHP:
		return formatFlag(r.PHPEnabled), nil
	case PermAllowURLFopen:
		return formatFlag(r.AllowURLFopen), nil
	case PermDisplayErrors:
		return formatFlag(r.DisplayErrors), nil
	case PermMailFunction:
		return formatFlag(r.MailFunction), nil
	case PermDisableFunctions:
		return string(r.DisableFunctions), nil
	case PermConfigLevel:
		return string(r.ConfigLevel), nil
	}
	if field, ok := r.Limits.field(string(name)); ok {
		return strconv.Itoa(*field), nil
	}
	return "", &InvalidFieldError{Layer: "reseller permission", Name: string(name)}
}

// ResellerPermissions returns a copy of the loaded reseller permissions.
func (e *Engine) ResellerPermissions() (ResellerPermissions, error) {
	if err := e.require(StateResellerLoaded); err != nil {
		return ResellerPermissions{}, err
	}
	return e.reseller, nil
}

// SaveResellerPermissions writes the working reseller permissions to the
// properties row of resellerID. The row must exist.
func (e *Engine) SaveResellerPermissions(resellerID uint) error {
	if err := e.require(StateResellerLoaded); err != nil {
		return err
	}
	r := e.reseller
	res := e.db.Model(&models.ResellerProps{}).Where("reseller_id = ?", resellerID).Updates(map[string]interface{}{
		"php_ini":                     r.PHPEnabled,
		"php_ini_config_level":        string(r.ConfigLevel),
		"php_ini_disable_functions":   string(r.DisableFunctions),
		"php_ini_mail_function":       r.MailFunction,
		"php_ini_allow_url_fopen":     r.AllowURLFopen,
		"php_ini_display_errors":      r.DisplayErrors,
		"php_ini_post_max_size":       r.PostMaxSize,
		"php_ini_upload_max_filesize": r.UploadMaxFilesize,
		"php_ini_max_execution_time":  r.MaxExecutionTime,
		"php_ini_max_input_time":      r.MaxInputTime,
		"php_ini_memory_limit":        r.MemoryLimit,
	})
	if res.Error != nil {
		return fmt.Errorf("save reseller %d PHP permissions: %w", resellerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: reseller %d", ErrResellerNotFound, resellerID)
	}
	return nil
}

// ResellerHasPermission reports whether the reseller may grant the named
// permission to its clients. Numeric ceilings are not permissions.
func (e *Engine) ResellerHasPermission(name Permission) (bool, error) {
	if err := e.require(StateResellerLoaded); err != nil {
		return false, err
	}
	switch name {
	case PermPHP, PermConfigLevel, PermAllowURLFopen, PermDisplayErrors, PermDisableFunctions, PermMailFunction:
		return e.resellerHas(name), nil
	}
	return false, &InvalidFieldError{Layer: "reseller permission", Name: string(name)}
}

func (e *Engine) resellerHas(name Permission) bool {
	r := e.reseller
	if !r.PHPEnabled {
		return false
	}
	switch name {
	case PermPHP:
		return true
	case PermConfigLevel:
		return r.ConfigLevel == ConfigLevelPerSite || r.ConfigLevel == ConfigLevelPerDomain
	case PermAllowURLFopen:
		return r.AllowURLFopen
	case PermDisplayErrors:
		return r.DisplayErrors
	case PermDisableFunctions:
		return r.DisableFunctions == DisableFunctionsYes || r.DisableFunctions == DisableFunctionsExec
	case PermMailFunction:
		return r.MailFunction
	}
	return false
}

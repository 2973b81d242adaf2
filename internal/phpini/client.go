package phpini

import (
	"fmt"
	"slices"

	"github.com/hostwarden/backend/internal/models"
)

func (e *Engine) defaultClientPermissions() ClientPermissions {
	return ClientPermissions{
		PHPEnabled:       false,
		ConfigLevel:      e.reseller.ConfigLevel,
		AllowURLFopen:    false,
		DisplayErrors:    false,
		DisableFunctions: DisableFunctionsNo,
		MailFunction:     e.resellerHas(PermMailFunction),
	}
}

func clientFromRow(row models.Domain) ClientPermissions {
	p := ClientPermissions{
		PHPEnabled:       row.PHPIni,
		ConfigLevel:      ConfigLevel(row.PHPIniConfigLevel),
		AllowURLFopen:    row.PHPIniAllowURLFopen,
		DisplayErrors:    row.PHPIniDisplayErrors,
		DisableFunctions: DisableFunctionsMode(row.PHPIniDisableFunctions),
		MailFunction:     row.PHPIniMailFunction,
	}
	if _, ok := parseConfigLevel(row.PHPIniConfigLevel); !ok {
		p.ConfigLevel = ConfigLevelPerUser
	}
	if _, ok := parseDisableMode(row.PHPIniDisableFunctions); !ok {
		p.DisableFunctions = DisableFunctionsNo
	}
	return p
}

// LoadClientPermissions loads the permissions stored on the client's primary
// domain. A nil id, or a client without one, yields defaults derived from the
// reseller layer.
func (e *Engine) LoadClientPermissions(clientID *uint) error {
	if err := e.require(StateResellerLoaded); err != nil {
		return err
	}
	perms := e.defaultClientPermissions()
	if clientID != nil {
		var row models.Domain
		res := e.db.Where("domain_admin_id = ?", *clientID).Limit(1).Find(&row)
		if res.Error != nil {
			return fmt.Errorf("load client %d PHP permissions: %w", *clientID, res.Error)
		}
		if res.RowsAffected > 0 {
			perms = clientFromRow(row)
		}
	}
	e.client = perms
	e.advance(StateClientLoaded)
	return nil
}

// SetClientPermission validates and applies one client permission. Values the
// reseller does not grant are rejected. Revoking a permission also tightens
// the loaded INI options, if any.
func (e *Engine) SetClientPermission(name Permission, value string) (bool, error) {
	if err := e.require(StateClientLoaded); err != nil {
		return false, err
	}
	switch name {
	case PermPHP, PermConfigLevel, PermAllowURLFopen, PermDisplayErrors, PermDisableFunctions, PermMailFunction:
	default:
		return false, &InvalidFieldError{Layer: "client permission", Name: string(name)}
	}
	if !e.resellerHas(name) {
		return e.rejected("client", string(name), value)
	}

	c := &e.client
	optionsLoaded := e.state >= StateOptionsLoaded
	switch name {
	case PermConfigLevel:
		l, ok := parseConfigLevel(value)
		if !ok || (e.reseller.ConfigLevel == ConfigLevelPerDomain && l == ConfigLevelPerSite) {
			return e.rejected("client", string(name), value)
		}
		c.ConfigLevel = l
	case PermDisableFunctions:
		m, ok := parseDisableMode(value)
		if !ok || (e.reseller.DisableFunctions == DisableFunctionsExec && m == DisableFunctionsYes) {
			return e.rejected("client", string(name), value)
		}
		c.DisableFunctions = m
		if optionsLoaded && m != DisableFunctionsYes {
			e.options.DisableFunctions = e.restrictedDisableFunctions(m)
		}
	default:
		b, ok := parseFlag(value)
		if !ok {
			return e.rejected("client", string(name), value)
		}
		switch name {
		case PermPHP:
			c.PHPEnabled = b
		case PermAllowURLFopen:
			c.AllowURLFopen = b
			if optionsLoaded && !b {
				e.options.AllowURLFopen = false
			}
		case PermDisplayErrors:
			c.DisplayErrors = b
			if optionsLoaded && !b {
				e.options.DisplayErrors = false
			}
		case PermMailFunction:
			c.MailFunction = b
			if optionsLoaded && !b {
				e.options.DisableFunctions = withFunction(e.options.DisableFunctions, "mail")
			}
		}
	}
	return true, nil
}

// restrictedDisableFunctions computes the disabled set a client in mode may
// not reduce. In exec mode the current choice for exec is kept.
func (e *Engine) restrictedDisableFunctions(mode DisableFunctionsMode) []string {
	fns := make([]string, 0, len(AllowedDisableFunctions))
	for _, fn := range DangerousFunctions {
		if fn == "exec" && mode == DisableFunctionsExec && !slices.Contains(e.options.DisableFunctions, "exec") {
			continue
		}
		fns = append(fns, fn)
	}
	if !e.clientHas(PermMailFunction) {
		fns = append(fns, "mail")
	}
	return fns
}

// GetClientPermission returns the wire value of one client permission.
func (e *Engine) GetClientPermission(name Permission) (string, error) {
	if err := e.require(StateClientLoaded); err != nil {
		return "", err
	}
	c := e.client
	switch name {
	case PermPHP:
		return formatFlag(c.PHPEnabled), nil
	case PermAllowURLFopen:
		return formatFlag(c.AllowURLFopen), nil
	case PermDisplayErrors:
		return formatFlag(c.DisplayErrors), nil
	case PermMailFunction:
		return formatFlag(c.MailFunction), nil
	case PermDisableFunctions:
		return string(c.DisableFunctions), nil
	case PermConfigLevel:
		return string(c.ConfigLevel), nil
	}
	return "", &InvalidFieldError{Layer: "client permission", Name: string(name)}
}

// ClientPermissions returns a copy of the loaded client permissions.
func (e *Engine) ClientPermissions() (ClientPermissions, error) {
	if err := e.require(StateClientLoaded); err != nil {
		return ClientPermissions{}, err
	}
	return e.client, nil
}

// SaveClientPermissions writes the working client permissions to the primary
// domain of clientID.
func (e *Engine) SaveClientPermissions(clientID uint) error {
	if err := e.require(StateClientLoaded); err != nil {
		return err
	}
	c := e.client
	res := e.db.Model(&models.Domain{}).Where("domain_admin_id = ?", clientID).Updates(map[string]interface{}{
		"php_ini":                   c.PHPEnabled,
		"php_ini_config_level":      string(c.ConfigLevel),
		"php_ini_allow_url_fopen":   c.AllowURLFopen,
		"php_ini_display_errors":    c.DisplayErrors,
		"php_ini_disable_functions": string(c.DisableFunctions),
		"php_ini_mail_function":     c.MailFunction,
	})
	if res.Error != nil {
		return fmt.Errorf("save client %d PHP permissions: %w", clientID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: client %d", ErrClientNotFound, clientID)
	}
	return nil
}

// ClientHasPermission reports whether the client holds the named permission.
// Nothing is held while the reseller has PHP editing disabled, or before the
// client layer is loaded.
func (e *Engine) ClientHasPermission(name Permission) (bool, error) {
	if err := e.require(StateResellerLoaded); err != nil {
		return false, err
	}
	switch name {
	case PermPHP, PermConfigLevel, PermAllowURLFopen, PermDisplayErrors, PermDisableFunctions, PermMailFunction:
	default:
		return false, &InvalidFieldError{Layer: "client permission", Name: string(name)}
	}
	if e.state < StateClientLoaded {
		return false, nil
	}
	return e.clientHas(name), nil
}

func (e *Engine) clientHas(name Permission) bool {
	if !e.reseller.PHPEnabled {
		return false
	}
	c := e.client
	switch name {
	case PermPHP:
		return c.PHPEnabled
	case PermConfigLevel:
		return c.ConfigLevel == ConfigLevelPerSite || c.ConfigLevel == ConfigLevelPerDomain
	case PermAllowURLFopen:
		return c.AllowURLFopen
	case PermDisplayErrors:
		return c.DisplayErrors
	case PermDisableFunctions:
		return c.DisableFunctions == DisableFunctionsYes || c.DisableFunctions == DisableFunctionsExec
	case PermMailFunction:
		return c.MailFunction
	}
	return false
}

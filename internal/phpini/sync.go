package phpini

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/models"
)

// UpdateClientIniOptions rewrites every stored option row of clientID so it
// fits the loaded client permissions. A client without PHP editing gets the
// defaults. Otherwise each row is restricted and clamped, either starting
// from its stored values (reload) or from the loaded options. Changed rows,
// or every row when levelChanged, are scheduled for reprovisioning.
func (e *Engine) UpdateClientIniOptions(clientID uint, levelChanged, reload bool) error {
	if err := e.require(StateClientLoaded); err != nil {
		return err
	}
	if !reload && e.clientHas(PermPHP) {
		if err := e.require(StateOptionsLoaded); err != nil {
			return err
		}
	}
	var rows []models.PhpIni
	if err := e.db.Where("admin_id = ?", clientID).Order("id").Find(&rows).Error; err != nil {
		return fmt.Errorf("load INI options of client %d: %w", clientID, err)
	}
	if len(rows) == 0 {
		return nil
	}
	mainID, err := mainDomainID(e.db, clientID)
	if err != nil {
		return err
	}
	base := e.options.clone()
	for _, row := range rows {
		ref := DomainRef{ClientID: clientID, DomainID: row.DomainID, DomainType: row.DomainType}
		switch {
		case !e.clientHas(PermPHP):
			e.options = e.defaultIniOptions()
			e.isDefaultOptions = true
		case reload:
			e.options = optionsFromRow(row)
			e.isDefaultOptions = false
			e.restrictOptions()
		default:
			e.options = base.clone()
			e.restrictOptions()
		}
		e.advance(StateOptionsLoaded)

		changed, err := e.saveIniOptions(ref)
		if err != nil {
			return err
		}
		if changed || levelChanged {
			e.requestNeeded = true
			if err := markEntity(e.db, mainID, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// restrictOptions removes from the loaded options whatever the client
// permissions and reseller ceilings no longer allow.
func (e *Engine) restrictOptions() {
	o := &e.options
	if !e.clientHas(PermAllowURLFopen) {
		o.AllowURLFopen = false
	}
	if !e.clientHas(PermDisplayErrors) {
		o.DisplayErrors = false
	}
	switch e.client.DisableFunctions {
	case DisableFunctionsYes:
		if !e.clientHas(PermDisableFunctions) {
			o.DisableFunctions = e.restrictedDisableFunctions(DisableFunctionsNo)
		}
	default:
		o.DisableFunctions = e.restrictedDisableFunctions(e.client.DisableFunctions)
	}
	if !e.clientHas(PermMailFunction) {
		o.DisableFunctions = withFunction(o.DisableFunctions, "mail")
	}

	r := e.reseller.Limits
	o.MemoryLimit = min(o.MemoryLimit, r.MemoryLimit)
	o.PostMaxSize = min(o.PostMaxSize, r.PostMaxSize)
	o.UploadMaxFilesize = min(o.UploadMaxFilesize, r.UploadMaxFilesize, o.PostMaxSize)
	o.MaxExecutionTime = min(o.MaxExecutionTime, r.MaxExecutionTime)
	o.MaxInputTime = min(o.MaxInputTime, r.MaxInputTime)
}

// tightenClientPermissions drops client grants the reseller no longer holds.
// It reports whether the config level changed.
func (e *Engine) tightenClientPermissions() bool {
	c := &e.client
	prev := c.ConfigLevel
	switch {
	case !e.resellerHas(PermConfigLevel):
		c.ConfigLevel = ConfigLevelPerUser
	case e.reseller.ConfigLevel == ConfigLevelPerDomain && c.ConfigLevel == ConfigLevelPerSite:
		c.ConfigLevel = ConfigLevelPerDomain
	}
	if !e.resellerHas(PermAllowURLFopen) {
		c.AllowURLFopen = false
	}
	if !e.resellerHas(PermDisplayErrors) {
		c.DisplayErrors = false
	}
	switch {
	case !e.resellerHas(PermDisableFunctions):
		c.DisableFunctions = DisableFunctionsNo
	case e.reseller.DisableFunctions == DisableFunctionsExec && c.DisableFunctions == DisableFunctionsYes:
		c.DisableFunctions = DisableFunctionsExec
	}
	if !e.resellerHas(PermMailFunction) {
		c.MailFunction = false
	}
	return prev != c.ConfigLevel
}

// SyncClientPermissionsAndIniOptions brings the permissions and options of
// the reseller's clients, or of the single given client, in line with the
// reseller permissions. The reseller layer is loaded first when needed. Each
// client is synced in its own transaction; a failing client is logged and
// the sweep goes on. Clients without a primary domain hold no settings and
// are skipped.
func (e *Engine) SyncClientPermissionsAndIniOptions(resellerID uint, clientID *uint) error {
	if e.state < StateResellerLoaded {
		if err := e.LoadResellerPermissions(&resellerID); err != nil {
			return err
		}
	}
	q := e.db.Model(&models.Admin{}).
		Where("created_by = ? AND admin_type = ?", resellerID, models.AdminTypeClient)
	if clientID != nil {
		q = q.Where("admin_id = ?", *clientID)
	}
	var ids []uint
	if err := q.Order("admin_id").Pluck("admin_id", &ids).Error; err != nil {
		return fmt.Errorf("list clients of reseller %d: %w", resellerID, err)
	}

	var errs []error
	for _, id := range ids {
		log := e.log.WithFields(logrus.Fields{"reseller_id": resellerID, "client_id": id})
		needed, err := e.syncClient(id)
		if errors.Is(err, ErrClientNotFound) {
			log.Warn("client has no primary domain, PHP settings sync skipped")
			continue
		}
		if err != nil {
			log.WithError(err).Warn("PHP settings sync failed")
			errs = append(errs, fmt.Errorf("client %d: %w", id, err))
			continue
		}
		if needed {
			e.requestNeeded = true
			log.Info("PHP settings synced")
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) syncClient(clientID uint) (bool, error) {
	var needed bool
	err := e.db.Transaction(func(tx *gorm.DB) error {
		sub := &Engine{db: tx, log: e.log, state: StateResellerLoaded, reseller: e.reseller}
		if err := sub.LoadClientPermissions(&clientID); err != nil {
			return err
		}
		var levelChanged bool
		if !sub.resellerHas(PermPHP) {
			prev := sub.client.ConfigLevel
			sub.client = sub.defaultClientPermissions()
			levelChanged = prev != sub.client.ConfigLevel
		} else {
			levelChanged = sub.tightenClientPermissions()
		}
		if err := sub.SaveClientPermissions(clientID); err != nil {
			return err
		}
		if err := sub.UpdateClientIniOptions(clientID, levelChanged, true); err != nil {
			return err
		}
		needed = sub.requestNeeded || levelChanged
		return nil
	})
	return needed, err
}

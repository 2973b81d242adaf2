package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/models"
)

var (
	ErrUnknownPlugin     = errors.New("unknown plugin")
	ErrUnknownAction     = errors.New("unknown plugin action")
	ErrInvalidTransition = errors.New("action not allowed in current plugin status")
)

// allowedFrom lists the statuses each action may start from.
var allowedFrom = map[Action][]Status{
	ActionInstall:   {StatusUninstalled, StatusToInstall},
	ActionEnable:    {StatusToEnable, StatusDisabled},
	ActionDisable:   {StatusToDisable, StatusEnabled},
	ActionChange:    {StatusToChange, StatusEnabled},
	ActionUpdate:    {StatusToUpdate, StatusEnabled},
	ActionUninstall: {StatusToUninstall, StatusDisabled},
	ActionDelete:    {StatusToDelete, StatusUninstalled, StatusDisabled},
}

// transitions maps each action to the status held while it runs and the
// status reached once it completes.
var transitions = map[Action][2]Status{
	ActionInstall:   {StatusToInstall, StatusEnabled},
	ActionEnable:    {StatusToEnable, StatusEnabled},
	ActionDisable:   {StatusToDisable, StatusDisabled},
	ActionChange:    {StatusToChange, StatusEnabled},
	ActionUpdate:    {StatusToUpdate, StatusEnabled},
	ActionUninstall: {StatusToUninstall, StatusUninstalled},
	ActionDelete:    {StatusToDelete, ""},
}

// Manager keeps the registry of known plugins and their stored state.
type Manager struct {
	db  *gorm.DB
	log *logrus.Entry

	mu             sync.RWMutex
	plugins        map[string]Plugin
	backendRequest bool
}

// NewManager returns an empty manager backed by db.
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db, log: logger.Component("plugin"), plugins: make(map[string]Plugin)}
}

// Register makes p known. A plugin seen for the first time is stored as
// uninstalled; a known one keeps its status.
func (m *Manager) Register(p Plugin) error {
	info := p.Info()
	if info.Name == "" {
		return errors.New("plugin info has no name")
	}

	var row models.Plugin
	res := m.db.Where("plugin_name = ?", info.Name).Limit(1).Find(&row)
	if res.Error != nil {
		return fmt.Errorf("load plugin %s: %w", info.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		encoded, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("encode plugin %s info: %w", info.Name, err)
		}
		row = models.Plugin{
			Name:     info.Name,
			Type:     info.Type,
			Info:     string(encoded),
			Status:   string(StatusUninstalled),
			Backend:  info.Backend,
			Priority: info.Priority,
		}
		if err := m.db.Create(&row).Error; err != nil {
			return fmt.Errorf("store plugin %s: %w", info.Name, err)
		}
	}

	m.mu.Lock()
	m.plugins[info.Name] = p
	m.mu.Unlock()
	return nil
}

// List returns every stored plugin, highest priority first.
func (m *Manager) List() ([]models.Plugin, error) {
	var rows []models.Plugin
	if err := m.db.Order("plugin_priority DESC, plugin_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	return rows, nil
}

// Status returns the stored status of name.
func (m *Manager) Status(name string) (Status, error) {
	row, err := m.load(name)
	if err != nil {
		return "", err
	}
	return Status(row.Status), nil
}

// BackendRequestNeeded reports whether an action left work for the daemon.
func (m *Manager) BackendRequestNeeded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backendRequest
}

// TakeBackendRequest reports whether an action left work for the daemon and
// clears the flag, so one signal covers every pending action.
func (m *Manager) TakeBackendRequest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	needed := m.backendRequest
	m.backendRequest = false
	return needed
}

func (m *Manager) load(name string) (models.Plugin, error) {
	m.mu.RLock()
	_, known := m.plugins[name]
	m.mu.RUnlock()
	if !known {
		return models.Plugin{}, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	var row models.Plugin
	res := m.db.Where("plugin_name = ?", name).Limit(1).Find(&row)
	if res.Error != nil {
		return row, fmt.Errorf("load plugin %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return row, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	return row, nil
}

func (m *Manager) Install(name string) error { return m.Run(name, ActionInstall) }
func (m *Manager) Enable(name string) error { return m.Run(name, ActionEnable) }
func (m *Manager) Disable(name string) error { return m.Run(name, ActionDisable) }
func (m *Manager) Change(name string) error { return m.Run(name, ActionChange) }
func (m *Manager) Update(name string) error { return m.Run(name, ActionUpdate) }
func (m *Manager) Uninstall(name string) error { return m.Run(name, ActionUninstall) }
func (m *Manager) Delete(name string) error { return m.Run(name, ActionDelete) }

// Run performs action on the named plugin. The transitional status is set
// before the hook runs. A failing hook is recorded as the plugin error and
// the transitional status stays. Plugins with a backend part also stay
// transitional, for the daemon to finish.
func (m *Manager) Run(name string, action Action) error {
	from, ok := allowedFrom[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	row, err := m.load(name)
	if err != nil {
		return err
	}
	if !containsStatus(from, Status(row.Status)) {
		return fmt.Errorf("%w: cannot %s plugin %s in status %s", ErrInvalidTransition, action, name, row.Status)
	}

	m.mu.RLock()
	p := m.plugins[name]
	m.mu.RUnlock()

	log := m.log.WithFields(logrus.Fields{"plugin": name, "action": string(action)})
	pending, done := transitions[action][0], transitions[action][1]
	if err := m.db.Model(&row).Updates(map[string]interface{}{"plugin_status": string(pending), "plugin_error": nil}).Error; err != nil {
		return fmt.Errorf("set plugin %s status: %w", name, err)
	}

	if err := m.runHook(p, row, action); err != nil {
		log.WithError(err).Error("plugin action failed")
		msg := fmt.Sprintf("Plugin %s has failed: %s", action, err.Error())
		if dbErr := m.db.Model(&row).Update("plugin_error", msg).Error; dbErr != nil {
			log.WithError(dbErr).Error("failed to record plugin error")
		}
		return fmt.Errorf("%s plugin %s: %w", action, name, err)
	}

	if row.Backend {
		m.mu.Lock()
		m.backendRequest = true
		m.mu.Unlock()
		log.Info("plugin action handed over to the backend")
		return nil
	}

	if action == ActionDelete {
		if err := m.db.Delete(&row).Error; err != nil {
			return fmt.Errorf("delete plugin %s: %w", name, err)
		}
		m.mu.Lock()
		delete(m.plugins, name)
		m.mu.Unlock()
		log.Info("plugin deleted")
		return nil
	}

	if err := m.db.Model(&row).Update("plugin_status", string(done)).Error; err != nil {
		return fmt.Errorf("set plugin %s status: %w", name, err)
	}
	log.Info("plugin action completed")
	return nil
}

func (m *Manager) runHook(p Plugin, row models.Plugin, action Action) error {
	switch action {
	case ActionInstall:
		if err := p.Install(m); err != nil {
			return err
		}
		return p.Enable(m)
	case ActionEnable:
		return p.Enable(m)
	case ActionDisable:
		return p.Disable(m)
	case ActionChange:
		return p.Change(m)
	case ActionUpdate:
		var stored Info
		if err := json.Unmarshal([]byte(row.Info), &stored); err != nil {
			return fmt.Errorf("decode stored info: %w", err)
		}
		info := p.Info()
		if err := p.Update(m, stored.Version, info.Version); err != nil {
			return err
		}
		encoded, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return m.db.Model(&row).Updates(map[string]interface{}{
			"plugin_info":     string(encoded),
			"plugin_priority": info.Priority,
		}).Error
	case ActionUninstall:
		return p.Uninstall(m)
	case ActionDelete:
		return p.Delete(m)
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

// DispatchBeforeAuthentication hands ev to every enabled plugin listening
// for authentication, highest priority first, until one stops it. A listener
// error aborts the dispatch.
func (m *Manager) DispatchBeforeAuthentication(ev *AuthEvent) error {
	var rows []models.Plugin
	err := m.db.Where("plugin_status = ?", string(StatusEnabled)).
		Order("plugin_priority DESC, plugin_name").Find(&rows).Error
	if err != nil {
		return fmt.Errorf("list enabled plugins: %w", err)
	}
	for _, row := range rows {
		m.mu.RLock()
		p, ok := m.plugins[row.Name]
		m.mu.RUnlock()
		listener, listens := p.(AuthListener)
		if !ok || !listens {
			continue
		}
		if err := listener.OnBeforeAuthentication(ev); err != nil {
			return fmt.Errorf("plugin %s: %w", row.Name, err)
		}
		if ev.Stopped() {
			return nil
		}
	}
	return nil
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

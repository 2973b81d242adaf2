// Package plugin manages the lifecycle of panel plugins and dispatches
// authentication events to them.
package plugin

// Status is the lifecycle state stored for a plugin. The "to*" statuses are
// transitional; they stay set while the backend daemon finishes the action.
type Status string

const (
	StatusUninstalled Status = "uninstalled"
	StatusToInstall   Status = "toinstall"
	StatusEnabled     Status = "enabled"
	StatusToEnable    Status = "toenable"
	StatusDisabled    Status = "disabled"
	StatusToDisable   Status = "todisable"
	StatusToChange    Status = "tochange"
	StatusToUpdate    Status = "toupdate"
	StatusToUninstall Status = "touninstall"
	StatusToDelete    Status = "todelete"
)

// Action is a lifecycle operation an administrator can request.
type Action string

const (
	ActionInstall   Action = "install"
	ActionEnable    Action = "enable"
	ActionDisable   Action = "disable"
	ActionChange    Action = "change"
	ActionUpdate    Action = "update"
	ActionUninstall Action = "uninstall"
	ActionDelete    Action = "delete"
)

// Info describes a plugin. It is stored JSON encoded with the plugin row.
type Info struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Version    string `json:"version"`
	RequireAPI string `json:"require_api"`
	Author     string `json:"author"`
	Email      string `json:"email"`
	Date       string `json:"date"`
	Desc       string `json:"desc"`
	URL        string `json:"url"`
	Priority   int    `json:"priority"`
	Backend    bool   `json:"backend"`
}

// Plugin is implemented by every plugin. Embed Base to get no-op hooks.
type Plugin interface {
	Info() Info
	Install(m *Manager) error
	Enable(m *Manager) error
	Disable(m *Manager) error
	Change(m *Manager) error
	Update(m *Manager, fromVersion, toVersion string) error
	Uninstall(m *Manager) error
	Delete(m *Manager) error
}

// AuthListener is implemented by plugins that inspect login attempts before
// credentials are checked.
type AuthListener interface {
	OnBeforeAuthentication(ev *AuthEvent) error
}

// Base provides no-op lifecycle hooks.
type Base struct{}

func (Base) Install(*Manager) error { return nil }
func (Base) Enable(*Manager) error { return nil }
func (Base) Disable(*Manager) error { return nil }
func (Base) Change(*Manager) error { return nil }
func (Base) Update(*Manager, string, string) error { return nil }
func (Base) Uninstall(*Manager) error { return nil }
func (Base) Delete(*Manager) error { return nil }

// AuthEvent carries one authentication attempt through the listeners.
type AuthEvent struct {
	IPAddr   string
	Username string
	Form     string // "login" or "captcha"

	stopped bool
	message string
}

// Stop ends propagation and refuses the attempt with message.
func (e *AuthEvent) Stop(message string) {
	e.stopped = true
	e.message = message
}

func (e *AuthEvent) Stopped() bool { return e.stopped }
func (e *AuthEvent) Message() string { return e.message }

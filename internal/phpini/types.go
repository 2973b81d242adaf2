package phpini

import (
	"errors"
	"fmt"
)

// ConfigLevel is the granularity at which a client's domains may carry
// different PHP configurations.
type ConfigLevel string

const (
	// ConfigLevelPerDomain shares one configuration per primary domain tree.
	ConfigLevelPerDomain ConfigLevel = "per_domain"
	// ConfigLevelPerSite lets every domain-like entity differ.
	ConfigLevelPerSite ConfigLevel = "per_site"
	// ConfigLevelPerUser applies one configuration to every entity of the client.
	ConfigLevelPerUser ConfigLevel = "per_user"
)

// DisableFunctionsMode controls how much of disable_functions a client may edit.
type DisableFunctionsMode string

const (
	DisableFunctionsYes  DisableFunctionsMode = "yes"
	DisableFunctionsNo   DisableFunctionsMode = "no"
	DisableFunctionsExec DisableFunctionsMode = "exec" // only the exec function
)

// Permission is the wire name of a reseller or client PHP permission.
type Permission string

const (
	PermPHP               Permission = "php_ini"
	PermConfigLevel       Permission = "php_ini_config_level"
	PermAllowURLFopen     Permission = "php_ini_allow_url_fopen"
	PermDisplayErrors     Permission = "php_ini_display_errors"
	PermDisableFunctions  Permission = "php_ini_disable_functions"
	PermMailFunction      Permission = "php_ini_mail_function"
	PermMemoryLimit       Permission = "php_ini_memory_limit"
	PermPostMaxSize       Permission = "php_ini_post_max_size"
	PermUploadMaxFilesize Permission = "php_ini_upload_max_filesize"
	PermMaxExecutionTime  Permission = "php_ini_max_execution_time"
	PermMaxInputTime      Permission = "php_ini_max_input_time"
)

// Option is the wire name of a per-domain INI directive.
type Option string

const (
	OptAllowURLFopen     Option = "php_ini_allow_url_fopen"
	OptDisplayErrors     Option = "php_ini_display_errors"
	OptErrorReporting    Option = "php_ini_error_reporting"
	OptDisableFunctions  Option = "php_ini_disable_functions"
	OptMemoryLimit       Option = "php_ini_memory_limit"
	OptPostMaxSize       Option = "php_ini_post_max_size"
	OptUploadMaxFilesize Option = "php_ini_upload_max_filesize"
	OptMaxExecutionTime  Option = "php_ini_max_execution_time"
	OptMaxInputTime      Option = "php_ini_max_input_time"
)

// error_reporting profiles a client may pick from.
const (
	ErrorReportingDefault    = "E_ALL & ~E_NOTICE & ~E_STRICT & ~E_DEPRECATED"
	ErrorReportingAll        = "-1"
	ErrorReportingProduction = "E_ALL & ~E_DEPRECATED & ~E_STRICT"
)

// Bounds of every size and time directive.
const (
	MinLimit = 1
	MaxLimit = 10000
)

// DangerousFunctions is the baseline disable_functions set, in php.ini order.
var DangerousFunctions = []string{
	"exec", "passthru", "phpinfo", "popen", "proc_open", "show_source", "shell", "shell_exec", "symlink", "system",
}

// AllowedDisableFunctions lists every name accepted in disable_functions.
var AllowedDisableFunctions = []string{
	"exec", "mail", "passthru", "phpinfo", "popen", "proc_open", "show_source", "shell", "shell_exec", "symlink", "system",
}

// DefaultLimits are the Debian php.ini values, also used as reseller defaults.
var DefaultLimits = Limits{
	MemoryLimit:       128,
	PostMaxSize:       8,
	UploadMaxFilesize: 2,
	MaxExecutionTime:  30,
	MaxInputTime:      60,
}

// Limits groups the five numeric directives. For a reseller they are
// ceilings, for a domain they are the applied values.
type Limits struct {
	MemoryLimit       int `json:"php_ini_memory_limit"`
	PostMaxSize       int `json:"php_ini_post_max_size"`
	UploadMaxFilesize int `json:"php_ini_upload_max_filesize"`
	MaxExecutionTime  int `json:"php_ini_max_execution_time"`
	MaxInputTime      int `json:"php_ini_max_input_time"`
}

// field returns a pointer to the directive with the given wire name.
func (l *Limits) field(name string) (*int, bool) {
	switch name {
	case string(PermMemoryLimit):
		return &l.MemoryLimit, true
	case string(PermPostMaxSize):
		return &l.PostMaxSize, true
	case string(PermUploadMaxFilesize):
		return &l.UploadMaxFilesize, true
	case string(PermMaxExecutionTime):
		return &l.MaxExecutionTime, true
	case string(PermMaxInputTime):
		return &l.MaxInputTime, true
	}
	return nil, false
}

// ResellerPermissions is what a reseller may hand out to its clients.
type ResellerPermissions struct {
	PHPEnabled       bool                 `json:"php_ini"`
	ConfigLevel      ConfigLevel          `json:"php_ini_config_level"`
	AllowURLFopen    bool                 `json:"php_ini_allow_url_fopen"`
	DisplayErrors    bool                 `json:"php_ini_display_errors"`
	DisableFunctions DisableFunctionsMode `json:"php_ini_disable_functions"`
	MailFunction     bool                 `json:"php_ini_mail_function"`
	Limits
}

// ClientPermissions is the subset of reseller permissions granted to a client.
type ClientPermissions struct {
	PHPEnabled       bool                 `json:"php_ini"`
	ConfigLevel      ConfigLevel          `json:"php_ini_config_level"`
	AllowURLFopen    bool                 `json:"php_ini_allow_url_fopen"`
	DisplayErrors    bool                 `json:"php_ini_display_errors"`
	DisableFunctions DisableFunctionsMode `json:"php_ini_disable_functions"`
	MailFunction     bool                 `json:"php_ini_mail_function"`
}

// IniOptions are the directive values applied to one domain-like entity.
type IniOptions struct {
	AllowURLFopen    bool     `json:"php_ini_allow_url_fopen"`
	DisplayErrors    bool     `json:"php_ini_display_errors"`
	ErrorReporting   string   `json:"php_ini_error_reporting"`
	DisableFunctions []string `json:"php_ini_disable_functions"`
	Limits
}

func (o IniOptions) clone() IniOptions {
	o.DisableFunctions = append([]string(nil), o.DisableFunctions...)
	return o
}

// DomainRef identifies a domain-like entity owned by a client.
type DomainRef struct {
	ClientID   uint   `json:"client_id"`
	DomainID   uint   `json:"domain_id"`
	DomainType string `json:"domain_type"` // dmn, als, sub or subals
}

// State is the loading progress of an Engine. It only moves forward.
type State int

const (
	StateUnloaded State = iota
	StateResellerLoaded
	StateClientLoaded
	StateOptionsLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateResellerLoaded:
		return "reseller_loaded"
	case StateClientLoaded:
		return "client_loaded"
	case StateOptionsLoaded:
		return "options_loaded"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrResellerNotFound = errors.New("reseller properties not found")
	ErrClientNotFound   = errors.New("client primary domain not found")
	ErrInvalidDomainRef = errors.New("invalid domain reference")
)

// PreconditionError reports an operation attempted before the layer it
// depends on was loaded.
type PreconditionError struct {
	Required State
	Current  State
}

func (e *PreconditionError) Error() string {
	switch e.Required {
	case StateResellerLoaded:
		return "reseller PHP permissions not loaded"
	case StateClientLoaded:
		return "client PHP permissions not loaded"
	default:
		return "domain INI options not loaded"
	}
}

// InvalidFieldError reports a permission or option name the layer does not know.
type InvalidFieldError struct {
	Layer string
	Name  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Layer, e.Name)
}

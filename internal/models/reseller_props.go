package models

// ResellerProps holds the PHP editor permissions granted to a reseller and the
// ceilings applied to every INI value of its clients.
type ResellerProps struct {
	ID                uint   `json:"id" gorm:"primaryKey"`
	ResellerID        uint   `json:"reseller_id" gorm:"column:reseller_id;uniqueIndex"`
	PHPIni            bool   `json:"php_ini" gorm:"column:php_ini"`
	ConfigLevel       string `json:"php_ini_config_level" gorm:"column:php_ini_config_level"`
	DisableFunctions  string `json:"php_ini_disable_functions" gorm:"column:php_ini_disable_functions"` // "yes", "no", "exec"
	MailFunction      bool   `json:"php_ini_mail_function" gorm:"column:php_ini_mail_function"`
	AllowURLFopen     bool   `json:"php_ini_allow_url_fopen" gorm:"column:php_ini_allow_url_fopen"`
	DisplayErrors     bool   `json:"php_ini_display_errors" gorm:"column:php_ini_display_errors"`
	PostMaxSize       int    `json:"php_ini_post_max_size" gorm:"column:php_ini_post_max_size"`
	UploadMaxFilesize int    `json:"php_ini_upload_max_filesize" gorm:"column:php_ini_upload_max_filesize"`
	MaxExecutionTime  int    `json:"php_ini_max_execution_time" gorm:"column:php_ini_max_execution_time"`
	MaxInputTime      int    `json:"php_ini_max_input_time" gorm:"column:php_ini_max_input_time"`
	MemoryLimit       int    `json:"php_ini_memory_limit" gorm:"column:php_ini_memory_limit"`
}

func (ResellerProps) TableName() string { return "reseller_props" }

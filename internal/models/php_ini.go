package models

// PhpIni stores the concrete INI directive values of one domain-like entity.
// DisableFunctions is the comma-separated php.ini representation.
type PhpIni struct {
	ID                uint   `json:"id" gorm:"primaryKey"`
	AdminID           uint   `json:"admin_id" gorm:"column:admin_id;uniqueIndex:idx_php_ini_target"`
	DomainID          uint   `json:"domain_id" gorm:"column:domain_id;uniqueIndex:idx_php_ini_target"`
	DomainType        string `json:"domain_type" gorm:"column:domain_type;uniqueIndex:idx_php_ini_target"`
	DisableFunctions  string `json:"disable_functions" gorm:"column:disable_functions"`
	AllowURLFopen     bool   `json:"allow_url_fopen" gorm:"column:allow_url_fopen"`
	DisplayErrors     bool   `json:"display_errors" gorm:"column:display_errors"`
	ErrorReporting    string `json:"error_reporting" gorm:"column:error_reporting"`
	PostMaxSize       int    `json:"post_max_size" gorm:"column:post_max_size"`
	UploadMaxFilesize int    `json:"upload_max_filesize" gorm:"column:upload_max_filesize"`
	MaxExecutionTime  int    `json:"max_execution_time" gorm:"column:max_execution_time"`
	MaxInputTime      int    `json:"max_input_time" gorm:"column:max_input_time"`
	MemoryLimit       int    `json:"memory_limit" gorm:"column:memory_limit"`
}

func (PhpIni) TableName() string { return "php_ini" }

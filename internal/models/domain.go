package models

import "time"

// Entity statuses shared by domains, aliases and subdomains. The backend
// daemon picks up every entity whose status starts with "to".
const (
	StatusOK        = "ok"
	StatusToAdd     = "toadd"
	StatusToChange  = "tochange"
	StatusToEnable  = "toenable"
	StatusDisabled  = "disabled"
	StatusToDisable = "todisable"
	StatusToDelete  = "todelete"
)

// Domain-like entity types used as keys of the php_ini table.
const (
	DomainTypeDomain         = "dmn"
	DomainTypeAlias          = "als"
	DomainTypeSubdomain      = "sub"
	DomainTypeSubdomainAlias = "subals"
)

// Domain is the primary domain of a client. It also stores the PHP
// permissions granted to that client by its reseller.
type Domain struct {
	ID                     uint      `json:"domain_id" gorm:"primaryKey;column:domain_id"`
	DomainName             string    `json:"domain_name" gorm:"column:domain_name;uniqueIndex"`
	DomainAdminID          uint      `json:"domain_admin_id" gorm:"column:domain_admin_id;uniqueIndex"`
	DomainStatus           string    `json:"domain_status" gorm:"column:domain_status"`
	PHPIni                 bool      `json:"php_ini" gorm:"column:php_ini"`
	PHPIniConfigLevel      string    `json:"php_ini_config_level" gorm:"column:php_ini_config_level"`
	PHPIniAllowURLFopen    bool      `json:"php_ini_allow_url_fopen" gorm:"column:php_ini_allow_url_fopen"`
	PHPIniDisplayErrors    bool      `json:"php_ini_display_errors" gorm:"column:php_ini_display_errors"`
	PHPIniDisableFunctions string    `json:"php_ini_disable_functions" gorm:"column:php_ini_disable_functions"`
	PHPIniMailFunction     bool      `json:"php_ini_mail_function" gorm:"column:php_ini_mail_function"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Domain) TableName() string { return "domain" }

// DomainAlias is an additional domain name attached to a primary domain.
type DomainAlias struct {
	ID          uint   `json:"alias_id" gorm:"primaryKey;column:alias_id"`
	DomainID    uint   `json:"domain_id" gorm:"column:domain_id;index"`
	AliasName   string `json:"alias_name" gorm:"column:alias_name;uniqueIndex"`
	AliasStatus string `json:"alias_status" gorm:"column:alias_status"`
}

func (DomainAlias) TableName() string { return "domain_aliases" }

// Subdomain belongs to a primary domain.
type Subdomain struct {
	ID              uint   `json:"subdomain_id" gorm:"primaryKey;column:subdomain_id"`
	DomainID        uint   `json:"domain_id" gorm:"column:domain_id;index"`
	SubdomainName   string `json:"subdomain_name" gorm:"column:subdomain_name"`
	SubdomainStatus string `json:"subdomain_status" gorm:"column:subdomain_status"`
}

func (Subdomain) TableName() string { return "subdomain" }

// SubdomainAlias belongs to a domain alias.
type SubdomainAlias struct {
	ID                   uint   `json:"subdomain_alias_id" gorm:"primaryKey;column:subdomain_alias_id"`
	AliasID              uint   `json:"alias_id" gorm:"column:alias_id;index"`
	SubdomainAliasName   string `json:"subdomain_alias_name" gorm:"column:subdomain_alias_name"`
	SubdomainAliasStatus string `json:"subdomain_alias_status" gorm:"column:subdomain_alias_status"`
}

func (SubdomainAlias) TableName() string { return "subdomain_alias" }

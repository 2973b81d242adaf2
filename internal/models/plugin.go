package models

import "time"

// Plugin is the persisted lifecycle state of an optional add-on.
type Plugin struct {
	ID        uint      `json:"id" gorm:"primaryKey;column:plugin_id"`
	Name      string    `json:"name" gorm:"column:plugin_name;uniqueIndex"`
	Type      string    `json:"type" gorm:"column:plugin_type"`
	Info      string    `json:"info" gorm:"column:plugin_info;type:text"` // JSON encoded plugin.Info
	Status    string    `json:"status" gorm:"column:plugin_status"`
	Error     *string   `json:"error,omitempty" gorm:"column:plugin_error;type:text"`
	Backend   bool      `json:"backend" gorm:"column:plugin_backend"`
	Priority  int       `json:"priority" gorm:"column:plugin_priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Plugin) TableName() string { return "plugin" }

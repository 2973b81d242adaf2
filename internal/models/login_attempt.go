package models

// LoginAttempt shares the login table with signed-in sessions. Rows with a
// NULL user_name are bruteforce throttle records keyed by source address.
type LoginAttempt struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	IPAddr       string  `json:"ipaddr" gorm:"column:ipaddr;index"`
	UserName     *string `json:"user_name,omitempty" gorm:"column:user_name"`
	LastAccess   int64   `json:"lastaccess" gorm:"column:lastaccess;index"`
	LoginCount   int     `json:"login_count" gorm:"column:login_count"`
	CaptchaCount int     `json:"captcha_count" gorm:"column:captcha_count"`
}

func (LoginAttempt) TableName() string { return "login" }

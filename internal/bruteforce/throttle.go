// Package bruteforce throttles login and captcha attempts per source address.
package bruteforce

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/models"
)

// Kind is the form an attempt is made on.
type Kind string

const (
	KindLogin   Kind = "login"
	KindCaptcha Kind = "captcha"
)

// ErrUnknownKind is returned for a form other than login or captcha.
var ErrUnknownKind = errors.New("unknown bruteforce detection type")

// Option configures a Throttle.
type Option func(*Throttle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

// Throttle decides whether the current attempt from one address must be
// refused. It reflects the stored record as it was when built.
type Throttle struct {
	db     *gorm.DB
	kind   Kind
	ipAddr string
	now    func() time.Time

	maxAttempts   int
	waitEnabled   bool
	maxBeforeWait int
	waitSeconds   int64
	blockSeconds  int64

	exists       bool
	attempts     int
	blockedUntil int64
	waitingUntil int64
	message      string
}

// NewThrottle purges expired throttle records and loads the one of ipAddr.
// The wait threshold is expected to sit below the block threshold; that is
// left to configuration.
func NewThrottle(db *gorm.DB, cfg config.BruteforceConfig, kind Kind, ipAddr string, opts ...Option) (*Throttle, error) {
	t := &Throttle{
		db:            db,
		kind:          kind,
		ipAddr:        ipAddr,
		now:           time.Now,
		waitEnabled:   cfg.WaitEnabled,
		maxBeforeWait: cfg.MaxAttemptsBeforeWait,
		waitSeconds:   int64(cfg.WaitSeconds),
		blockSeconds:  int64(cfg.BlockMinutes) * 60,
	}
	switch kind {
	case KindLogin:
		t.maxAttempts = cfg.MaxLogin
	case KindCaptcha:
		t.maxAttempts = cfg.MaxCaptcha
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.purge(); err != nil {
		return nil, err
	}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

// purge drops throttle records older than the block time, for every address.
func (t *Throttle) purge() error {
	cutoff := t.now().Unix() - t.blockSeconds
	err := t.db.Where("user_name IS NULL AND lastaccess < ?", cutoff).Delete(&models.LoginAttempt{}).Error
	if err != nil {
		return fmt.Errorf("purge expired login attempts: %w", err)
	}
	return nil
}

func (t *Throttle) load() error {
	var row models.LoginAttempt
	res := t.db.Where("ipaddr = ? AND user_name IS NULL", t.ipAddr).Limit(1).Find(&row)
	if res.Error != nil {
		return fmt.Errorf("load login attempts of %s: %w", t.ipAddr, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	t.exists = true
	t.attempts = row.LoginCount
	if t.kind == KindCaptcha {
		t.attempts = row.CaptchaCount
	}
	if t.attempts >= t.maxAttempts {
		t.blockedUntil = row.LastAccess + t.blockSeconds
		return nil
	}
	if t.waitEnabled && t.attempts >= t.maxBeforeWait {
		t.waitingUntil = row.LastAccess + t.waitSeconds
	}
	return nil
}

// IsBlocked reports whether the address is blocked right now.
func (t *Throttle) IsBlocked() bool {
	if t.blockedUntil == 0 {
		return false
	}
	now := t.now().Unix()
	if now < t.blockedUntil {
		t.message = fmt.Sprintf("You have been blocked for %s minutes.", formatRemaining(t.blockedUntil-now))
		return true
	}
	return false
}

// IsWaiting reports whether the address must wait before its next attempt.
func (t *Throttle) IsWaiting() bool {
	if t.waitingUntil == 0 {
		return false
	}
	now := t.now().Unix()
	if now < t.waitingUntil {
		t.message = fmt.Sprintf("You must wait %s minutes before the next attempt.", formatRemaining(t.waitingUntil-now))
		return true
	}
	return false
}

// LastMessage returns the message computed by the last positive IsBlocked or
// IsWaiting call.
func (t *Throttle) LastMessage() string {
	return t.message
}

// Attempts is the stored count for this kind, including attempts logged
// through this Throttle.
func (t *Throttle) Attempts() int {
	return t.attempts
}

// MaxAttempts is the count at which the address gets blocked.
func (t *Throttle) MaxAttempts() int {
	return t.maxAttempts
}

// LogAttempt records one attempt. Two concurrent requests from one address
// may lose an increment.
func (t *Throttle) LogAttempt() error {
	now := t.now().Unix()
	column := string(t.kind) + "_count"
	if !t.exists {
		row := models.LoginAttempt{IPAddr: t.ipAddr, LastAccess: now}
		if t.kind == KindCaptcha {
			row.CaptchaCount = 1
		} else {
			row.LoginCount = 1
		}
		if err := t.db.Create(&row).Error; err != nil {
			return fmt.Errorf("record %s attempt of %s: %w", t.kind, t.ipAddr, err)
		}
		t.exists = true
		t.attempts = 1
		return nil
	}

	err := t.db.Model(&models.LoginAttempt{}).
		Where("ipaddr = ? AND user_name IS NULL", t.ipAddr).
		Updates(map[string]interface{}{
			"lastaccess": now,
			column:       gorm.Expr(column + " + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("record %s attempt of %s: %w", t.kind, t.ipAddr, err)
	}
	t.attempts++
	return nil
}

// OnBeforeAuthentication returns the refusal message when the address is
// blocked or waiting. Otherwise it logs the attempt and returns "".
func (t *Throttle) OnBeforeAuthentication() (string, error) {
	if t.IsBlocked() || t.IsWaiting() {
		return t.message, nil
	}
	return "", t.LogAttempt()
}

// formatRemaining renders seconds as MM:SS.
func formatRemaining(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

package bruteforce

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/metrics"
	"github.com/hostwarden/backend/internal/notify"
	"github.com/hostwarden/backend/internal/plugin"
)

// PluginName is the name the throttle is registered under.
const PluginName = "Bruteforce"

// Plugin plugs the throttle into the authentication pipeline.
type Plugin struct {
	plugin.Base

	db     *gorm.DB
	cfg    config.BruteforceConfig
	alerts notify.Sender
	opts   []Option
	log    *logrus.Entry
}

// NewPlugin returns the bruteforce plugin. alerts may be nil.
func NewPlugin(db *gorm.DB, cfg config.BruteforceConfig, alerts notify.Sender, opts ...Option) *Plugin {
	return &Plugin{db: db, cfg: cfg, alerts: alerts, opts: opts, log: logger.Component("bruteforce")}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:       PluginName,
		Type:       "Security",
		Version:    "1.0.0",
		RequireAPI: "1.6.0",
		Author:     "Hostwarden Team",
		Date:       "2018-04-26",
		Desc:       "Provides countermeasures against brute-force and dictionary attacks.",
		// Runs early so refused attempts never reach the credential check.
		Priority: 100,
	}
}

// OnBeforeAuthentication stops ev when its source address is blocked or
// has to wait, and records the attempt otherwise.
func (p *Plugin) OnBeforeAuthentication(ev *plugin.AuthEvent) error {
	if !p.cfg.Enabled {
		return nil
	}
	kind := KindLogin
	if ev.Form != "" {
		kind = Kind(ev.Form)
	}
	th, err := NewThrottle(p.db, p.cfg, kind, ev.IPAddr, p.opts...)
	if err != nil {
		return err
	}

	msg, err := th.OnBeforeAuthentication()
	if err != nil {
		return err
	}
	log := p.log.WithFields(logrus.Fields{"ip": ev.IPAddr, "form": string(kind)})
	if msg != "" {
		if th.blockedUntil != 0 {
			metrics.IncBruteforceBlocked(string(kind))
		} else {
			metrics.IncBruteforceWaiting(string(kind))
		}
		log.Warn("attempt refused by bruteforce throttle")
		ev.Stop(msg)
		return nil
	}

	metrics.IncBruteforceAttempt(string(kind))
	if th.Attempts() == th.MaxAttempts() {
		log.WithField("attempts", th.Attempts()).Warn("source address reached the block threshold")
		p.alert(ev.IPAddr, kind)
	}
	return nil
}

func (p *Plugin) alert(ipAddr string, kind Kind) {
	if p.alerts == nil {
		return
	}
	title := "Bruteforce protection"
	message := fmt.Sprintf("%s has been blocked for %d minutes after %d %s attempts.",
		ipAddr, p.cfg.BlockMinutes, p.maxFor(kind), kind)
	go func() {
		if err := p.alerts.Send(title, message); err != nil {
			p.log.WithError(err).Error("failed to send bruteforce alert")
		}
	}()
}

func (p *Plugin) maxFor(kind Kind) int {
	if kind == KindCaptcha {
		return p.cfg.MaxCaptcha
	}
	return p.cfg.MaxLogin
}

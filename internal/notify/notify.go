// Package notify delivers operator alerts through shoutrrr service URLs.
package notify

import (
	"fmt"
	"regexp"

	"github.com/containrrr/shoutrrr"
)

// Sender delivers a titled message somewhere a human will read it.
type Sender interface {
	Send(title, message string) error
}

// Shoutrrr sends alerts to one shoutrrr URL (discord://, slack://, smtp://...).
type Shoutrrr struct {
	url  string
	send func(url, message string) error
}

// New returns a sender for rawURL. An empty URL disables alerts.
func New(rawURL string) *Shoutrrr {
	return &Shoutrrr{url: normalizeURL(rawURL), send: shoutrrr.Send}
}

// Enabled reports whether a destination is configured.
func (s *Shoutrrr) Enabled() bool {
	return s.url != ""
}

func (s *Shoutrrr) Send(title, message string) error {
	if !s.Enabled() {
		return nil
	}
	// Chat services render the blank line as a paragraph break.
	if err := s.send(s.url, fmt.Sprintf("%s\n\n%s", title, message)); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

// normalizeURL turns a pasted Discord webhook into its shoutrrr form.
func normalizeURL(rawURL string) string {
	if m := discordWebhookRegex.FindStringSubmatch(rawURL); len(m) == 3 {
		return fmt.Sprintf("discord://%s@%s", m[2], m[1])
	}
	return rawURL
}

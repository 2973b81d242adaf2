// Package daemon signals the backend provisioning daemon that pending changes
// are waiting in the database.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hostwarden/backend/internal/config"
	"github.com/hostwarden/backend/internal/logger"
	"github.com/hostwarden/backend/internal/metrics"
)

// TypeIMSCP is the only daemon type that is actually contacted.
const TypeIMSCP = "imscp"

const replyOK = 250

// ErrUnexpectedReply is returned when the daemon answers with a code other than 250.
var ErrUnexpectedReply = errors.New("unexpected daemon reply")

// Notifier is implemented by anything able to tell the provisioning worker
// that it has work to do.
type Notifier interface {
	SendRequest(ctx context.Context) error
}

// Client speaks the daemon line protocol. A Client sends at most one
// successful request during its lifetime.
type Client struct {
	cfg     config.DaemonConfig
	version string
	timeout time.Duration

	mu   sync.Mutex
	sent bool
}

// NewClient returns a daemon client announcing the given panel version.
func NewClient(cfg config.DaemonConfig, version string) *Client {
	return &Client{cfg: cfg, version: version, timeout: 10 * time.Second}
}

// SendRequest asks the daemon to run the backend command.
func (c *Client) SendRequest(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sent {
		return nil
	}

	if c.cfg.Type != TypeIMSCP {
		c.sent = true
		metrics.IncDaemonRequest("skipped")
		return nil
	}

	if err := c.exchange(ctx); err != nil {
		metrics.IncDaemonRequest("failed")
		return err
	}

	c.sent = true
	metrics.IncDaemonRequest("sent")
	return nil
}

// Sent reports whether a request already went out.
func (c *Client) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func (c *Client) exchange(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	r := bufio.NewReader(conn)
	if err := readReply(r); err != nil {
		return fmt.Errorf("read daemon greeting: %w", err)
	}

	for _, cmd := range []string{"helo " + c.version, "execute backend command", "bye"} {
		if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
			return fmt.Errorf("send %q to daemon: %w", cmd, err)
		}
		if err := readReply(r); err != nil {
			return fmt.Errorf("reply to %q: %w", cmd, err)
		}
	}

	return nil
}

func readReply(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	code, _, _ := strings.Cut(line, " ")
	if code != fmt.Sprint(replyOK) {
		return fmt.Errorf("%w: %s", ErrUnexpectedReply, line)
	}
	return nil
}

// Notify sends a request through n and only logs failures: the provisioning
// signal is fire-and-forget from the caller's point of view.
func Notify(ctx context.Context, n Notifier) {
	if n == nil {
		return
	}
	if err := n.SendRequest(ctx); err != nil {
		logger.Component("daemon").WithError(err).Error("couldn't send request to the backend daemon")
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bruteforceAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostwarden_bruteforce_attempts_total",
		Help: "Total number of login or captcha attempts recorded by the bruteforce throttle",
	}, []string{"form"})
	bruteforceBlockedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostwarden_bruteforce_blocked_total",
		Help: "Total number of attempts refused because the source address is blocked",
	}, []string{"form"})
	bruteforceWaitingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostwarden_bruteforce_waiting_total",
		Help: "Total number of attempts refused because the source address must wait",
	}, []string{"form"})
	daemonRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hostwarden_daemon_requests_total",
		Help: "Total number of provisioning requests sent to the backend daemon",
	}, []string{"result"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(bruteforceAttemptsTotal, bruteforceBlockedTotal, bruteforceWaitingTotal, daemonRequestsTotal)
}

// IncBruteforceAttempt increments the recorded attempts counter for a form.
func IncBruteforceAttempt(form string) { bruteforceAttemptsTotal.WithLabelValues(form).Inc() }

// IncBruteforceBlocked increments the blocked attempts counter for a form.
func IncBruteforceBlocked(form string) { bruteforceBlockedTotal.WithLabelValues(form).Inc() }

// IncBruteforceWaiting increments the delayed attempts counter for a form.
func IncBruteforceWaiting(form string) { bruteforceWaitingTotal.WithLabelValues(form).Inc() }

// IncDaemonRequest increments the daemon request counter; result is "sent", "skipped" or "failed".
func IncDaemonRequest(result string) { daemonRequestsTotal.WithLabelValues(result).Inc() }

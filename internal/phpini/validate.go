package phpini

import (
	"slices"
	"strconv"
	"strings"

	"github.com/hostwarden/backend/internal/models"
)

func parseFlag(value string) (bool, bool) {
	switch value {
	case "0":
		return false, true
	case "1":
		return true, true
	}
	return false, false
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseLimit accepts canonical decimal integers in [MinLimit, MaxLimit].
func parseLimit(value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil || strconv.Itoa(n) != value {
		return 0, false
	}
	if n < MinLimit || n > MaxLimit {
		return 0, false
	}
	return n, true
}

func parseConfigLevel(value string) (ConfigLevel, bool) {
	switch l := ConfigLevel(value); l {
	case ConfigLevelPerDomain, ConfigLevelPerSite, ConfigLevelPerUser:
		return l, true
	}
	return "", false
}

func parseDisableMode(value string) (DisableFunctionsMode, bool) {
	switch m := DisableFunctionsMode(value); m {
	case DisableFunctionsYes, DisableFunctionsNo, DisableFunctionsExec:
		return m, true
	}
	return "", false
}

func validErrorReporting(value string) bool {
	switch value {
	case ErrorReportingDefault, ErrorReportingAll, ErrorReportingProduction:
		return true
	}
	return false
}

// parseDisableFunctions splits a comma separated list. Empty tokens are
// skipped, duplicates collapsed, and any name outside
// AllowedDisableFunctions rejects the whole value.
func parseDisableFunctions(value string) ([]string, bool) {
	fns := []string{}
	for _, tok := range strings.Split(value, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !slices.Contains(AllowedDisableFunctions, tok) {
			return nil, false
		}
		if !slices.Contains(fns, tok) {
			fns = append(fns, tok)
		}
	}
	return fns, true
}

func joinFunctions(fns []string) string {
	return strings.Join(fns, ",")
}

func withFunction(fns []string, name string) []string {
	if slices.Contains(fns, name) {
		return fns
	}
	return append(fns, name)
}

func withoutFunction(fns []string, name string) []string {
	return slices.DeleteFunc(slices.Clone(fns), func(fn string) bool { return fn == name })
}

// sameFunctionSet reports whether a and b hold the same names, ignoring order.
func sameFunctionSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, fn := range a {
		if !slices.Contains(b, fn) {
			return false
		}
	}
	return true
}

func validDomainType(t string) bool {
	switch t {
	case models.DomainTypeDomain, models.DomainTypeAlias, models.DomainTypeSubdomain, models.DomainTypeSubdomainAlias:
		return true
	}
	return false
}

// Package envcheck validates the deployment environment and produces masked
// reports safe to display in logs and the admin panel.
package envcheck

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// sensitiveMarkers are substrings of variable names whose values must be masked.
var sensitiveMarkers = []string{"KEY", "SECRET", "PASSWORD", "TOKEN", "CREDENTIAL"}

// HostedDatabaseVars are the hosted-database credentials the deployment
// provisions; CheckConfiguration reports ok only when all are present.
var HostedDatabaseVars = []string{"SUPABASE_URL", "SUPABASE_KEY", "SUPABASE_SERVICE_KEY"}

// Sensitive reports whether the variable name denotes a secret value.
func Sensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// Mask returns a display-safe rendering of value. Sensitive values keep the
// first and last 4 characters around a **** separator; values of 8 chars or
// fewer are fully masked. Non-sensitive values pass through unchanged.
func Mask(name, value string) string {
	if !Sensitive(name) {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

// Validate checks that every named variable is present and non-empty.
// It returns masked values for display and an error naming all missing
// variables.
func Validate(names []string) (map[string]string, error) {
	masked := make(map[string]string, len(names))
	var missing []string

	for _, name := range names {
		value := os.Getenv(name)
		if value == "" {
			missing = append(missing, name)
			continue
		}
		masked[name] = Mask(name, value)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return masked, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return masked, nil
}

// Report is the result of a configuration check.
type Report struct {
	Status  string            `json:"status"` // "ok" or "error"
	Missing []string          `json:"missing,omitempty"`
	Values  map[string]string `json:"values"` // masked
}

// CheckConfiguration verifies the hosted-database variables and returns a
// masked report. Status is "ok" only when every variable is present and
// non-empty.
func CheckConfiguration() Report {
	masked, err := Validate(HostedDatabaseVars)
	report := Report{Status: "ok", Values: masked}
	if err != nil {
		report.Status = "error"
		for _, name := range HostedDatabaseVars {
			if os.Getenv(name) == "" {
				report.Missing = append(report.Missing, name)
			}
		}
	}
	return report
}

package envcheck

import (
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		want  string
	}{
		{"long key", "SUPABASE_KEY", "abcdefghijkl", "abcd****ijkl"},
		{"exactly nine chars", "API_KEY", "123456789", "1234****6789"},
		{"short key fully masked", "API_KEY", "12345678", "****"},
		{"empty sensitive", "JWT_SECRET", "", "****"},
		{"password marker", "DB_PASSWORD", "hunter2hunter2", "hunt****ter2"},
		{"token marker", "ACCESS_TOKEN", "tok-aaaa-bbbb", "tok-****bbbb"},
		{"credential marker", "GCP_CREDENTIALS", "cred-value-xyz", "cred****-xyz"},
		{"lowercase name still masked", "supabase_service_key", "abcdefghijkl", "abcd****ijkl"},
		{"non-sensitive passthrough", "SUPABASE_URL", "https://x.supabase.co", "https://x.supabase.co"},
		{"log level passthrough", "LOG_LEVEL", "debug", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mask(tt.env, tt.value); got != tt.want {
				t.Errorf("Mask(%q, %q) = %q, want %q", tt.env, tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate_AllPresent(t *testing.T) {
	t.Setenv("RENUM_TEST_URL", "https://example.com")
	t.Setenv("RENUM_TEST_KEY", "abcdefghijkl")

	masked, err := Validate([]string{"RENUM_TEST_URL", "RENUM_TEST_KEY"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if masked["RENUM_TEST_URL"] != "https://example.com" {
		t.Errorf("url = %q", masked["RENUM_TEST_URL"])
	}
	if masked["RENUM_TEST_KEY"] != "abcd****ijkl" {
		t.Errorf("key = %q, want masked", masked["RENUM_TEST_KEY"])
	}
}

func TestValidate_Missing(t *testing.T) {
	t.Setenv("RENUM_TEST_URL", "https://example.com")
	t.Setenv("RENUM_TEST_EMPTY", "")

	_, err := Validate([]string{"RENUM_TEST_URL", "RENUM_TEST_EMPTY", "RENUM_TEST_ABSENT"})
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	if !strings.Contains(err.Error(), "RENUM_TEST_EMPTY") || !strings.Contains(err.Error(), "RENUM_TEST_ABSENT") {
		t.Errorf("error should name all missing vars: %v", err)
	}
	if strings.Contains(err.Error(), "RENUM_TEST_URL") {
		t.Errorf("error should not name present vars: %v", err)
	}
}

func TestCheckConfiguration(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key-value-long")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key-value-long")

	report := CheckConfiguration()
	if report.Status != "ok" {
		t.Fatalf("status = %q, want ok", report.Status)
	}
	if report.Values["SUPABASE_URL"] != "https://proj.supabase.co" {
		t.Errorf("url should not be masked: %q", report.Values["SUPABASE_URL"])
	}
	if !strings.Contains(report.Values["SUPABASE_SERVICE_KEY"], "****") {
		t.Errorf("service key should be masked: %q", report.Values["SUPABASE_SERVICE_KEY"])
	}
}

func TestCheckConfiguration_MissingVar(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key-value-long")
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	report := CheckConfiguration()
	if report.Status != "error" {
		t.Fatalf("status = %q, want error", report.Status)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "SUPABASE_SERVICE_KEY" {
		t.Errorf("missing = %v, want [SUPABASE_SERVICE_KEY]", report.Missing)
	}
}

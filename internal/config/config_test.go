package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND", "")
	cfg := fromViper(newViper())

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.Backend != BackendSupabase {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendSupabase)
	}
	if len(cfg.Divisions) != 2 || cfg.Divisions[0] != "A" || cfg.Divisions[1] != "F" {
		t.Errorf("Divisions = %v, want [A F]", cfg.Divisions)
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.RateLimitPerMin != 60 {
		t.Errorf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKEND", "Postgres")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("DIVISIONS", " A , B,,C ")
	t.Setenv("ACCESS_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MIN", "7")

	cfg := fromViper(newViper())
	if cfg.Backend != BackendPostgres {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.HTTPPort != "9999" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if got := len(cfg.Divisions); got != 3 {
		t.Fatalf("Divisions = %v", cfg.Divisions)
	}
	if cfg.Divisions[1] != "B" {
		t.Errorf("Divisions[1] = %q", cfg.Divisions[1])
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL)
	}
	if cfg.RateLimitPerMin != 7 {
		t.Errorf("RateLimitPerMin = %d", cfg.RateLimitPerMin)
	}
}

func TestViteNamesAreAccepted(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("VITE_SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon")

	cfg := fromViper(newViper())
	if cfg.SupabaseURL != "https://demo.supabase.co" {
		t.Errorf("SupabaseURL = %q", cfg.SupabaseURL)
	}
	if cfg.SupabaseAnonKey != "anon" {
		t.Errorf("SupabaseAnonKey = %q", cfg.SupabaseAnonKey)
	}
}

func TestValidate(t *testing.T) {
	base := App{
		Backend:         BackendSupabase,
		SupabaseURL:     "https://demo.supabase.co",
		SupabaseAnonKey: "anon",
		SessionSecret:   "0123456789abcdef",
		SessionTTL:      time.Hour,
		AccessTTL:       time.Hour,
		RefreshTTL:      time.Hour,
		Divisions:       []string{"A"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(a *App){
		"missing supabase key": func(a *App) { a.SupabaseAnonKey = "" },
		"unknown backend":      func(a *App) { a.Backend = "mysql" },
		"short secret":         func(a *App) { a.SessionSecret = "short" },
		"no divisions":         func(a *App) { a.Divisions = nil },
		"postgres short key": func(a *App) {
			a.Backend = BackendPostgres
			a.DatabaseURL = "postgres://x"
			a.JWTSigningKey = "k"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

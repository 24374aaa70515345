package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadFileYAML(t *testing.T) {
	p := writeFile(t, "dev.yaml", `
server:
  port: 9090
database:
  dsn: "u:p@tcp(127.0.0.1:3306)/lotto"
draw:
  store: MySQL
  stale_after_ms: 15000
  anonymous_owners: ["guest"]
  cleanup:
    enabled: true
thresholds:
  draw_stale_after_ms: 45000
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Draw.Store != StoreMySQL {
		t.Errorf("store = %q", cfg.Draw.Store)
	}
	if cfg.Draw.Interval() != time.Minute {
		t.Errorf("interval = %s", cfg.Draw.Interval())
	}
	if cfg.Draw.Retention() != 7*24*time.Hour {
		t.Errorf("retention = %s", cfg.Draw.Retention())
	}
	if cfg.Draw.Cleanup.Batch != 500 {
		t.Errorf("batch = %d", cfg.Draw.Cleanup.Batch)
	}
	if len(cfg.Draw.AnonymousOwners) != 1 || cfg.Draw.AnonymousOwners[0] != "guest" {
		t.Errorf("anonymous owners = %v", cfg.Draw.AnonymousOwners)
	}
}

func TestLoadFileJSON(t *testing.T) {
	p := writeFile(t, "dev.json", `{"draw":{"store":"memory","interval_sec":120}}`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Draw.Interval() != 2*time.Minute {
		t.Errorf("interval = %s", cfg.Draw.Interval())
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"mysql without dsn", func(c *Config) { c.Draw.Store = StoreMySQL }, "database.dsn"},
		{"unknown store", func(c *Config) { c.Draw.Store = "mongo" }, "draw.store"},
		{"interval not minute aligned", func(c *Config) { c.Draw.IntervalSec = 90 }, "interval_sec"},
		{"bad scope", func(c *Config) { c.Draw.TicketScope = "yesterday" }, "ticket_scope"},
		{"batch too large", func(c *Config) { c.Draw.Cleanup.Batch = 501 }, "cleanup.batch"},
		{"admin without token", func(c *Config) { c.Auth.Admin.Enabled = true }, "auth.admin.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Config
			c.Draw.Store = StoreMemory
			c.ApplyDefaults()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestStaleAfter(t *testing.T) {
	t.Cleanup(func() { SetCurrent(nil) })

	SetCurrent(nil)
	if got := StaleAfter(); got != 30*time.Second {
		t.Errorf("no config: %s", got)
	}

	c := &Config{}
	c.Draw.StaleAfterMS = 10000
	SetCurrent(c)
	if got := StaleAfter(); got != 10*time.Second {
		t.Errorf("draw.stale_after_ms: %s", got)
	}

	c2 := &Config{Thresholds: map[string]int64{ThresholdStaleAfterMS: 5000}}
	c2.Draw.StaleAfterMS = 10000
	SetCurrent(c2)
	if got := StaleAfter(); got != 5*time.Second {
		t.Errorf("threshold override: %s", got)
	}
}

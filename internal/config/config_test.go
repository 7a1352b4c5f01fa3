package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/figdraw/figdraw/internal/figure"
)

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		}
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "PORT", "STORE", "HISTORY_CAPACITY", "SAVE_INTERVAL", "LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.HistoryCapacity != 32 || cfg.SaveInterval != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HISTORY_CAPACITY", "5")
	t.Setenv("SAVE_INTERVAL", "2m")
	t.Setenv("STORE", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 || cfg.HistoryCapacity != 5 || cfg.SaveInterval != 2*time.Minute || cfg.Store != "memory" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"negative capacity": {"HISTORY_CAPACITY", "-1"},
		"unknown store":     {"STORE", "redis"},
		"bad port":          {"PORT", "eighty"},
		"bad log level":     {"LOG_LEVEL", "loud"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173, https://draw.example.com ,"}

	got := cfg.Origins()
	if len(got) != 2 || got[1] != "https://draw.example.com" {
		t.Errorf("Origins = %v", got)
	}
	hosts := cfg.OriginHosts()
	if len(hosts) != 2 || hosts[0] != "localhost:5173" || hosts[1] != "draw.example.com" {
		t.Errorf("OriginHosts = %v", hosts)
	}
}

func TestParseDefaults(t *testing.T) {
	def, err := ParseDefaults([]byte(`
kind: star
fill: "#ffcc00"
edge: ""
lineType: dashed
lineWidth: 3
`))
	if err != nil {
		t.Fatal(err)
	}
	if def.Kind != figure.KindStar {
		t.Errorf("kind = %s", def.Kind)
	}
	if def.Style.Fill == nil || *def.Style.Fill != figure.RGB(0xff, 0xcc, 0) {
		t.Errorf("fill = %v", def.Style.Fill)
	}
	if def.Style.Edge != nil {
		t.Errorf("edge = %v, want none", def.Style.Edge)
	}
}

func TestParseDefaultsErrors(t *testing.T) {
	tests := map[string]struct {
		yaml string
		err  error
	}{
		"bad kind":  {"kind: blob", figure.ErrUnknownKind},
		"bad color": {`fill: "#zzz"`, figure.ErrInvalidColor},
		"no paint":  {"fill: \"\"\nedge: \"\"", figure.ErrNoPaint},
		"bad line":  {"lineType: dotted", figure.ErrUnknownLineType},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDefaults([]byte(tt.yaml)); !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	if err := os.WriteFile(path, []byte("kind: ellipse\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{DefaultsFile: path}
	def, err := cfg.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if def.Kind != figure.KindEllipse {
		t.Errorf("kind = %s", def.Kind)
	}

	cfg.DefaultsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.Defaults(); err == nil {
		t.Error("missing file accepted")
	}
}

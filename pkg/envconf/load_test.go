package envconf

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

type nested struct {
	Timeout time.Duration `env:"NESTED_TIMEOUT" default:"3s"`
}

type sample struct {
	Name    string     `env:"NAME"`
	Port    uint16     `env:"PORT" default:"8080"`
	Level   slog.Level `env:"LEVEL" default:"info"`
	Debug   bool       `env:"DEBUG" default:"false"`
	Secret  string     `env:"SECRET" default:""`
	Ratio   *float64   `env:"RATIO" default:"0.5"`
	Nested  nested
	Ptr     *nested
	skipped string `env:"SKIPPED"`
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFrom_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	var cfg sample

	err := LoadFrom(&cfg, mapLookup(map[string]string{
		"NAME":           "ledger",
		"LEVEL":          "debug",
		"NESTED_TIMEOUT": "250ms",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Name != "ledger" {
		t.Fatalf("name: got %q", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port default: got %d", cfg.Port)
	}
	if cfg.Level != slog.LevelDebug {
		t.Fatalf("level: got %v", cfg.Level)
	}
	if cfg.Debug {
		t.Fatalf("debug: want false")
	}
	if cfg.Secret != "" {
		t.Fatalf("secret: want empty, got %q", cfg.Secret)
	}
	if cfg.Ratio == nil || *cfg.Ratio != 0.5 {
		t.Fatalf("ratio: got %v", cfg.Ratio)
	}
	if cfg.Nested.Timeout != 250*time.Millisecond {
		t.Fatalf("nested timeout: got %v", cfg.Nested.Timeout)
	}
	if cfg.Ptr == nil || cfg.Ptr.Timeout != 250*time.Millisecond {
		t.Fatalf("pointer struct not loaded: %+v", cfg.Ptr)
	}
	if cfg.skipped != "" {
		t.Fatalf("unexported field must be ignored")
	}
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	t.Parallel()

	var cfg sample

	err := LoadFrom(&cfg, mapLookup(map[string]string{}))
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("want ErrMissingRequired, got %v", err)
	}
}

func TestLoadFrom_BadValue(t *testing.T) {
	t.Parallel()

	var cfg sample

	err := LoadFrom(&cfg, mapLookup(map[string]string{"NAME": "x", "PORT": "not-a-port"}))
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	if err := Load(sample{}); err == nil {
		t.Fatalf("expected error for non-pointer destination")
	}
	if err := Load(nil); err == nil {
		t.Fatalf("expected error for nil destination")
	}
}

type window struct {
	Min int `env:"WINDOW_MIN" default:"1"`
	Max int `env:"WINDOW_MAX" default:"10"`
}

func (w window) Validate() error {
	if w.Min > w.Max {
		return errors.New("min above max")
	}

	return nil
}

type withWindow struct {
	Name   string `env:"NAME" default:"x"`
	Window window
}

func TestLoadFrom_RunsChecker(t *testing.T) {
	t.Parallel()

	var ok withWindow

	err := LoadFrom(&ok, mapLookup(nil))
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}

	var top window

	err = LoadFrom(&top, mapLookup(map[string]string{"WINDOW_MIN": "5", "WINDOW_MAX": "2"}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("top level: want ErrInvalidConfig, got %v", err)
	}

	var nested withWindow

	err = LoadFrom(&nested, mapLookup(map[string]string{"WINDOW_MIN": "5", "WINDOW_MAX": "2"}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("nested: want ErrInvalidConfig, got %v", err)
	}
}

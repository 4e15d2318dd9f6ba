package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/linkgraph/internal/diffusion"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Graph.ColorPalette() != diffusion.DefaultPalette {
		t.Error("unset palette should fall back to the default")
	}
}

func TestGraphConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GraphConfig)
		wantErr bool
	}{
		{"custom palette", func(c *GraphConfig) { c.Palette = []string{"#111111", "#222222", "#333333", "#444444"} }, false},
		{"short palette", func(c *GraphConfig) { c.Palette = []string{"#111111"} }, true},
		{"bad colour", func(c *GraphConfig) { c.Palette = []string{"#111111", "#222222", "#333333", "nope"} }, true},
		{"zero cache", func(c *GraphConfig) { c.CacheSize = 0 }, true},
		{"zero decay", func(c *GraphConfig) { c.DecayDistance = 0 }, true},
		{"negative debounce", func(c *GraphConfig) { c.ReloadDebounce = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Graph
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGraphConfig_CustomPalette(t *testing.T) {
	cfg := GraphConfig{Palette: []string{"#111111", "#222222", "#333333", "#444444"}}
	p := cfg.ColorPalette()
	if got := p[3].Hex(); got != "#444444" {
		t.Errorf("palette[3] = %s, want #444444", got)
	}
}

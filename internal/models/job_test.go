package models

import (
	"encoding/json"
	"testing"
)

func TestJobConfigPartialDecodeKeepsDefaults(t *testing.T) {
	var cfg JobConfig
	if err := json.Unmarshal([]byte(`{"target_leads":50}`), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	cfg.Normalize()

	if cfg.TargetLeads != 50 {
		t.Errorf("target_leads = %d, want 50", cfg.TargetLeads)
	}
	if !cfg.EmailValidation {
		t.Error("email_validation = false for a config omitting it, want default true")
	}
	if !cfg.UseBrowser {
		t.Error("use_browser = false for a config omitting it, want default true")
	}
	if cfg.DeepValidation {
		t.Error("deep_validation = true for a config omitting it, want default false")
	}
	if cfg.MinScore != 50 || cfg.Concurrency != 5 {
		t.Errorf("min_score/concurrency = %d/%d, want defaults 50/5", cfg.MinScore, cfg.Concurrency)
	}
}

func TestJobConfigExplicitFalseSurvivesDecode(t *testing.T) {
	var cfg JobConfig
	raw := `{"email_validation":false,"use_browser":false}`
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	cfg.Normalize()

	if cfg.EmailValidation {
		t.Error("explicit email_validation=false was overwritten")
	}
	if cfg.UseBrowser {
		t.Error("explicit use_browser=false was overwritten")
	}
}

func TestJobConfigNormalizeZeroValues(t *testing.T) {
	cfg := JobConfig{}
	cfg.Normalize()

	def := DefaultJobConfig()
	if cfg.UseCase != def.UseCase || cfg.TargetLeads != def.TargetLeads ||
		cfg.MinScore != def.MinScore || cfg.Concurrency != def.Concurrency ||
		cfg.MaxResults != def.MaxResults {
		t.Errorf("Normalize() = %+v, want defaults %+v", cfg, def)
	}
}

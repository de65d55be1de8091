package config_test

import (
	"testing"

	"github.com/cliniscribe/cliniscribe/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Corrector: config.CorrectorConfig{
			CustomRules: []config.RuleConfig{
				{Raw: "enter resto", Fix: "Entresto", Confidence: 0.9},
			},
		},
		DomainRules: []config.DomainRuleSet{
			{
				Domain: "renal",
				Rules: []config.RuleConfig{
					{Raw: "creatine", Fix: "creatinine"},
				},
			},
			{
				Domain: "cardiology",
				Rules: []config.RuleConfig{
					{Raw: "my tral", Fix: "mitral"},
				},
			},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	d := config.Diff(old, new)
	if d.LogLevelChanged || d.CustomRulesChanged || d.DomainsChanged {
		t.Errorf("expected empty diff, got %+v", d)
	}
	if len(d.DomainChanges) != 0 {
		t.Errorf("expected no domain changes, got %+v", d.DomainChanges)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug
	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_CustomRulesChanged(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Corrector.CustomRules[0].Fix = "ENTRESTO"
	d := config.Diff(old, new)
	if !d.CustomRulesChanged {
		t.Error("expected CustomRulesChanged=true")
	}
	if d.DomainsChanged {
		t.Error("custom rule edit should not flag domain changes")
	}
}

func TestDiff_DomainRuleEdit(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.DomainRules[0].Rules = append(new.DomainRules[0].Rules, config.RuleConfig{
		Raw: "you rea", Fix: "urea",
	})
	d := config.Diff(old, new)
	if !d.DomainsChanged {
		t.Fatal("expected DomainsChanged=true")
	}
	if len(d.DomainChanges) != 1 {
		t.Fatalf("expected 1 domain change, got %+v", d.DomainChanges)
	}
	dc := d.DomainChanges[0]
	if dc.Domain != "renal" || !dc.RulesChanged || dc.Added || dc.Removed {
		t.Errorf("unexpected domain change: %+v", dc)
	}
}

func TestDiff_DomainAddedAndRemoved(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.DomainRules = []config.DomainRuleSet{
		new.DomainRules[0], // keep renal, drop cardiology
		{Domain: "respiratory", Rules: []config.RuleConfig{{Raw: "new moania", Fix: "pneumonia"}}},
	}
	d := config.Diff(old, new)
	if !d.DomainsChanged {
		t.Fatal("expected DomainsChanged=true")
	}

	var added, removed bool
	for _, dc := range d.DomainChanges {
		switch {
		case dc.Domain == "respiratory" && dc.Added:
			added = true
		case dc.Domain == "cardiology" && dc.Removed:
			removed = true
		}
	}
	if !added {
		t.Error("expected respiratory to be reported as added")
	}
	if !removed {
		t.Error("expected cardiology to be reported as removed")
	}
}

func TestDiff_IgnoresRestartOnlyFields(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9090"
	new.DynamicRules.PostgresDSN = "postgres://other/db"
	d := config.Diff(old, new)
	if d.LogLevelChanged || d.CustomRulesChanged || d.DomainsChanged {
		t.Errorf("restart-only fields should not appear in the diff, got %+v", d)
	}
}

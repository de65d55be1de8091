package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged    bool
	NewLogLevel        LogLevel
	CustomRulesChanged bool            // corrector.custom_rules differ
	DomainsChanged     bool            // true if any domain rule set changed
	DomainChanges      []DomainRuleDiff // per-domain diffs
}

// DomainRuleDiff describes what changed for a single domain rule set.
type DomainRuleDiff struct {
	Domain       string
	RulesChanged bool
	Added        bool
	Removed      bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Corrector.CustomRules, new.Corrector.CustomRules) {
		d.CustomRulesChanged = true
	}

	// Build domain lookup maps keyed by name.
	oldSets := make(map[string]*DomainRuleSet, len(old.DomainRules))
	for i := range old.DomainRules {
		oldSets[old.DomainRules[i].Domain] = &old.DomainRules[i]
	}
	newSets := make(map[string]*DomainRuleSet, len(new.DomainRules))
	for i := range new.DomainRules {
		newSets[new.DomainRules[i].Domain] = &new.DomainRules[i]
	}

	// Detect modified and removed domains.
	for domain, oldSet := range oldSets {
		newSet, exists := newSets[domain]
		if !exists {
			d.DomainChanges = append(d.DomainChanges, DomainRuleDiff{
				Domain:  domain,
				Removed: true,
			})
			d.DomainsChanged = true
			continue
		}
		if !slices.Equal(oldSet.Rules, newSet.Rules) {
			d.DomainChanges = append(d.DomainChanges, DomainRuleDiff{
				Domain:       domain,
				RulesChanged: true,
			})
			d.DomainsChanged = true
		}
	}

	// Detect added domains.
	for domain := range newSets {
		if _, exists := oldSets[domain]; !exists {
			d.DomainChanges = append(d.DomainChanges, DomainRuleDiff{
				Domain: domain,
				Added:  true,
			})
			d.DomainsChanged = true
		}
	}

	return d
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/cliniscribe/cliniscribe/internal/catalog"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the known LLM provider names. [Validate] warns
// about anything else — a typo and a legitimate third-party provider look
// the same from here.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral",
	"groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown fields are rejected so typos fail loudly instead of silently
// configuring nothing.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found; conditions that are
// suspicious but workable are logged at warn level instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	errs = append(errs, validateCategories("corrector.categories", cfg.Corrector.Categories)...)
	errs = append(errs, validateCategories("corrector.warm_categories", cfg.Corrector.WarmCategories)...)
	errs = append(errs, validateRules("corrector.custom_rules", cfg.Corrector.CustomRules)...)

	domainsSeen := make(map[string]int, len(cfg.DomainRules))
	for i, set := range cfg.DomainRules {
		prefix := fmt.Sprintf("domain_rules[%d]", i)
		if set.Domain == "" {
			errs = append(errs, fmt.Errorf("%s.domain is required", prefix))
		} else if prev, ok := domainsSeen[set.Domain]; ok {
			errs = append(errs, fmt.Errorf("%s.domain %q is a duplicate of domain_rules[%d]", prefix, set.Domain, prev))
		} else {
			domainsSeen[set.Domain] = i
		}
		errs = append(errs, validateRules(prefix+".rules", set.Rules)...)
	}

	if cfg.DynamicRules.Enabled && cfg.DynamicRules.PostgresDSN == "" {
		errs = append(errs, errors.New("dynamic_rules.postgres_dsn is required when dynamic_rules.enabled is true"))
	}
	if cfg.DynamicRules.TTL < 0 {
		errs = append(errs, fmt.Errorf("dynamic_rules.ttl %s must not be negative", cfg.DynamicRules.TTL.Std()))
	}

	if cfg.ResultCache.Backend != "" && !cfg.ResultCache.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("result_cache.backend %q is invalid; valid values: memory, redis, none", cfg.ResultCache.Backend))
	}
	if cfg.ResultCache.Backend == CacheRedis && cfg.ResultCache.Redis.Addr == "" {
		errs = append(errs, errors.New("result_cache.redis.addr is required when result_cache.backend is redis"))
	}
	if cfg.ResultCache.TTL < 0 {
		errs = append(errs, fmt.Errorf("result_cache.ttl %s must not be negative", cfg.ResultCache.TTL.Std()))
	}

	if cfg.Semantic.Enabled {
		if cfg.Semantic.Primary.Name == "" {
			errs = append(errs, errors.New("semantic.primary.name is required when semantic.enabled is true"))
		}
		validateProviderName("semantic.primary", cfg.Semantic.Primary.Name)
		for i, fb := range cfg.Semantic.Fallbacks {
			if fb.Name == "" {
				errs = append(errs, fmt.Errorf("semantic.fallbacks[%d].name is required", i))
			}
			validateProviderName(fmt.Sprintf("semantic.fallbacks[%d]", i), fb.Name)
		}
	}

	if cfg.Corrector.PhoneticAssist && !cfg.DynamicRules.Enabled {
		slog.Warn("corrector.phonetic_assist is set but dynamic_rules is disabled; there is no glossary to match against")
	}

	return errors.Join(errs...)
}

// validateCategories rejects unknown pattern category names.
func validateCategories(field string, names []string) []error {
	var errs []error
	for i, name := range names {
		if !catalog.Category(name).IsValid() {
			errs = append(errs, fmt.Errorf("%s[%d] %q is not a known pattern category", field, i, name))
		}
	}
	return errs
}

// validateRules performs the structural checks the loader owns: full safety
// validation happens at registration and is reported there.
func validateRules(field string, rules []RuleConfig) []error {
	var errs []error
	for i, r := range rules {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if r.Raw == "" {
			errs = append(errs, fmt.Errorf("%s.raw is required", prefix))
		}
		if r.Fix == "" {
			errs = append(errs, fmt.Errorf("%s.fix is required", prefix))
		}
		if r.Category != "" && !catalog.Category(r.Category).IsValid() {
			errs = append(errs, fmt.Errorf("%s.category %q is not a known pattern category", prefix, r.Category))
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			errs = append(errs, fmt.Errorf("%s.confidence %.2f is out of range [0, 1]", prefix, r.Confidence))
		}
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}

// Command cliniscribe corrects clinical dictation ASR transcripts.
//
// In one-shot mode it reads text from stdin (or -file), runs the correction
// pipeline and prints the corrected text to stdout. With -serve it exposes
// the correction API over HTTP together with /metrics, /healthz and /readyz.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/cliniscribe/cliniscribe/internal/cache"
	"github.com/cliniscribe/cliniscribe/internal/config"
	"github.com/cliniscribe/cliniscribe/internal/correction"
	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
	"github.com/cliniscribe/cliniscribe/internal/dynrules"
	"github.com/cliniscribe/cliniscribe/internal/health"
	"github.com/cliniscribe/cliniscribe/internal/investigation"
	"github.com/cliniscribe/cliniscribe/internal/observe"
	"github.com/cliniscribe/cliniscribe/internal/phonetic"
	"github.com/cliniscribe/cliniscribe/internal/resilience"
	"github.com/cliniscribe/cliniscribe/internal/semantic/llmsem"
	"github.com/cliniscribe/cliniscribe/pkg/llm"
	"github.com/cliniscribe/cliniscribe/pkg/llm/anyllm"
	oai "github.com/cliniscribe/cliniscribe/pkg/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("file", "", "read input from this file instead of stdin")
	investigate := flag.Bool("investigation", false, "run the investigation report normalizer instead of plain correction")
	serve := flag.Bool("serve", false, "serve the correction API over HTTP instead of one-shot mode")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "cliniscribe: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "cliniscribe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("cliniscribe starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"dynamic_rules", cfg.DynamicRules.Enabled,
		"semantic", cfg.Semantic.Enabled,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "cliniscribe",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Collaborators + corrector ─────────────────────────────────────────────
	deps, err := buildDependencies(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build collaborators", "err", err)
		return 1
	}
	defer deps.close()

	corrector := buildCorrector(cfg, deps, metrics)
	registerConfiguredRules(cfg, corrector)

	if err := corrector.WarmUp(ctx, cfg.Corrector.CatalogWarmCategories()...); err != nil {
		// Warm-up failures cost latency on first use, not correctness.
		slog.Warn("warm-up incomplete", "err", err)
	}

	normalizer := investigation.NewNormalizer(corrector, investigation.WithLogger(logger))

	// ── Serve mode ────────────────────────────────────────────────────────────
	if *serve {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			applyReload(config.Diff(old, new), new, corrector, logLevel)
		})
		if err != nil {
			slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
		} else {
			defer watcher.Stop()
		}
		return serveHTTP(ctx, cfg, corrector, normalizer, deps, metrics)
	}

	// ── One-shot mode ─────────────────────────────────────────────────────────
	text, err := readInput(*inputPath)
	if err != nil {
		slog.Error("failed to read input", "err", err)
		return 1
	}

	if *investigate {
		out := normalizer.Normalize(ctx, text, investigation.Options{
			EnableDynamic: cfg.DynamicRules.Enabled,
		})
		fmt.Println(out)
		return 0
	}

	res := corrector.ApplyCorrections(ctx, text, correctionConfig(cfg))
	if res.Degraded {
		slog.Warn("correction degraded", "reason", res.DegradedReason)
	}
	slog.Info("correction complete",
		"matches", res.MatchCount,
		"confidence", res.Confidence,
		"cache_hit", res.CacheHit,
	)
	fmt.Println(res.Text)
	return 0
}

// dependencies bundles the optional collaborators the corrector is wired
// with, plus the handles that need closing on shutdown.
type dependencies struct {
	dynamic     *dynrules.Cache
	resultCache cache.Cache
	semantic    *llmsem.Service
	pool        *pgxpool.Pool
}

func (d *dependencies) close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// buildDependencies instantiates everything the config enables: the
// Postgres-backed dynamic rule cache, the result cache and the LLM-backed
// semantic services with provider fallback.
func buildDependencies(ctx context.Context, cfg *config.Config, reg *config.Registry) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.DynamicRules.Enabled {
		pool, err := pgxpool.New(ctx, cfg.DynamicRules.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect rules database: %w", err)
		}
		deps.pool = pool

		provider := dynrules.NewPostgresProvider(pool)
		if err := provider.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate rules schema: %w", err)
		}

		var opts []dynrules.CacheOption
		if ttl := cfg.DynamicRules.TTL.Std(); ttl > 0 {
			opts = append(opts, dynrules.WithTTL(ttl))
		}
		deps.dynamic = dynrules.NewCache(provider, opts...)
		slog.Info("dynamic rules enabled", "ttl", cfg.DynamicRules.TTL.Std())
	}

	store, err := reg.CreateCache(ctx, cfg.ResultCache)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	deps.resultCache = store

	if cfg.Semantic.Enabled {
		primary, err := reg.CreateLLM(cfg.Semantic.Primary)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("create semantic provider %q: %w", cfg.Semantic.Primary.Name, err)
		}
		fb := resilience.NewLLMFallback(primary, cfg.Semantic.Primary.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Semantic.Fallbacks {
			p, err := reg.CreateLLM(entry)
			if err != nil {
				slog.Warn("skipping semantic fallback provider", "name", entry.Name, "err", err)
				continue
			}
			fb.AddFallback(entry.Name, p)
		}
		deps.semantic = llmsem.New(fb)
		slog.Info("semantic services enabled",
			"primary", cfg.Semantic.Primary.Name,
			"fallbacks", len(cfg.Semantic.Fallbacks),
		)
	}

	return deps, nil
}

// buildCorrector assembles the corrector from config and collaborators.
func buildCorrector(cfg *config.Config, deps *dependencies, metrics *observe.Metrics) *correction.Corrector {
	opts := []correction.Option{
		correction.WithMetrics(metrics),
	}
	if deps.dynamic != nil {
		opts = append(opts, correction.WithDynamicRules(deps.dynamic))
	}
	if deps.resultCache != nil {
		opts = append(opts, correction.WithResultCache(deps.resultCache))
		if ttl := cfg.ResultCache.TTL.Std(); ttl > 0 {
			opts = append(opts, correction.WithResultTTL(ttl))
		}
	}
	if deps.semantic != nil {
		opts = append(opts, correction.WithSemanticServices(deps.semantic.Services()))
	}
	if cfg.Corrector.PhoneticAssist {
		opts = append(opts, correction.WithPhoneticAssist(phonetic.New()))
	}
	return correction.New(opts...)
}

// registerConfiguredRules loads the custom and domain rule sets from config.
// Rejected rules are logged and skipped, never fatal.
func registerConfiguredRules(cfg *config.Config, c *correction.Corrector) {
	for _, r := range cfg.Corrector.CustomRules {
		if err := c.AddCustomPattern(r.Category, r.Raw, r.Fix, r.Confidence); err != nil {
			slog.Warn("custom rule rejected", "raw", r.Raw, "err", err)
		}
	}
	for _, set := range cfg.DomainRules {
		registerDomainRuleSet(c, set)
	}
}

// registerDomainRuleSet registers one configured domain rule set, logging
// every rejection.
func registerDomainRuleSet(c *correction.Corrector, set config.DomainRuleSet) {
	part := c.RegisterDomainRules(set.Domain, configRules(set.Rules, set.Domain))
	for _, rej := range part.Invalid {
		slog.Warn("domain rule rejected",
			"domain", set.Domain,
			"raw", rej.Rule.Raw,
			"reason", rej.Verdict.Reason,
		)
	}
	slog.Info("domain rules registered",
		"domain", set.Domain,
		"accepted", len(part.Valid),
		"rejected", len(part.Invalid),
	)
}

// configRules converts configured rules into validator rules.
func configRules(in []config.RuleConfig, domain string) []safety.Rule {
	rules := make([]safety.Rule, 0, len(in))
	for _, r := range in {
		rules = append(rules, safety.Rule{
			Raw:        r.Raw,
			Fix:        r.Fix,
			Category:   r.Category,
			Confidence: r.Confidence,
			Domain:     domain,
		})
	}
	return rules
}

// applyReload applies the hot-reloadable parts of a config change to the
// running service. Restart-only fields (listen address, collaborator wiring)
// are left to the diff to ignore; the watcher only delivers configs that
// already passed validation.
func applyReload(diff config.ConfigDiff, cfg *config.Config, c *correction.Corrector, level *slog.LevelVar) {
	if diff.LogLevelChanged {
		level.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}

	if diff.CustomRulesChanged {
		c.ReplaceCustomPatterns(configRules(cfg.Corrector.CustomRules, ""))
	}

	for _, dc := range diff.DomainChanges {
		if dc.Removed {
			c.RegisterDomainRules(dc.Domain, nil)
			slog.Info("domain rules removed", "domain", dc.Domain)
			continue
		}
		for _, set := range cfg.DomainRules {
			if set.Domain == dc.Domain {
				registerDomainRuleSet(c, set)
				break
			}
		}
	}
}

// correctionConfig derives the default per-call config from the file config.
func correctionConfig(cfg *config.Config) correction.Config {
	return correction.Config{
		Categories:     cfg.Corrector.CatalogCategories(),
		EnableDynamic:  cfg.DynamicRules.Enabled,
		MedicalDomain:  cfg.Semantic.MedicalDomain,
		EnableLocale:   cfg.Corrector.EnableLocale,
		EnableSemantic: cfg.Semantic.Enabled,
	}
}

// serveHTTP runs the correction API plus the admin endpoints until ctx is
// cancelled.
func serveHTTP(ctx context.Context, cfg *config.Config, corrector *correction.Corrector, normalizer *investigation.Normalizer, deps *dependencies, metrics *observe.Metrics) int {
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	mux := http.NewServeMux()

	api := &apiServer{
		corrector:  corrector,
		normalizer: normalizer,
		defaults:   correctionConfig(cfg),
		logger:     slog.Default().With("component", "api"),
	}
	api.register(mux)

	var checkers []health.Checker
	if deps.dynamic != nil {
		checkers = append(checkers, health.DynamicRules(deps.dynamic))
	}
	if deps.resultCache != nil {
		checkers = append(checkers, health.ResultCache(deps.resultCache))
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "tls", cfg.Server.TLS != nil)
		if tls := cfg.Server.TLS; tls != nil {
			errCh <- srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in LLM and cache factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai goes through the native SDK client.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oai.Option
		if entry.BaseURL != "" {
			opts = append(opts, oai.WithBaseURL(entry.BaseURL))
		}
		return oai.New(entry.APIKey, entry.Model, opts...)
	})

	// Everything else shares the any-llm pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})

	reg.RegisterCache(config.CacheMemory, func(_ context.Context, _ config.ResultCacheConfig) (cache.Cache, error) {
		return cache.NewMemory(), nil
	})
	reg.RegisterCache(config.CacheRedis, func(ctx context.Context, rc config.ResultCacheConfig) (cache.Cache, error) {
		return cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      rc.Redis.Addr,
			Password:  rc.Redis.Password,
			DB:        rc.Redis.DB,
			KeyPrefix: rc.Redis.KeyPrefix,
		})
	})
}

// ── Input + logger ────────────────────────────────────────────────────────────

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return string(data), nil
}

// newLogger builds the process logger around a LevelVar so the level can be
// adjusted on config reload without replacing handlers.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

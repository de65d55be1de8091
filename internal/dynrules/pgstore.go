package dynrules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliniscribe/cliniscribe/internal/correction/safety"
)

// Schema is the SQL DDL for the dynamic correction state tables. Execute it
// via [PostgresProvider.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS glossary_terms (
    term       TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS correction_rules (
    id         BIGSERIAL PRIMARY KEY,
    raw        TEXT NOT NULL,
    fix        TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '',
    confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    attributes JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (raw, category)
);
CREATE INDEX IF NOT EXISTS idx_correction_rules_category ON correction_rules(category);
`

// DB is the database interface used by [PostgresProvider]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresProvider is a [Provider] backed by a PostgreSQL database. Rule
// attributes beyond the fixed columns (e.g. clinical domain) are kept in a
// JSONB column so sites can extend rules without schema changes.
type PostgresProvider struct {
	db DB
}

var _ Provider = (*PostgresProvider)(nil)

// NewPostgresProvider creates a provider over the given connection or pool.
// The caller is responsible for calling [PostgresProvider.Migrate] to ensure
// the schema exists before issuing queries.
func NewPostgresProvider(db DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables and indexes if they
// do not already exist.
func (p *PostgresProvider) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("dynrules: migrate: %w", err)
	}
	return nil
}

// FetchState reads all glossary terms and rules in one round trip each.
func (p *PostgresProvider) FetchState(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{FetchedAt: time.Now()}

	terms, err := p.fetchGlossary(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.GlossaryTerms = terms

	rules, err := p.fetchRules(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Rules = rules
	return snap, nil
}

func (p *PostgresProvider) fetchGlossary(ctx context.Context) ([]string, error) {
	const query = `SELECT term FROM glossary_terms ORDER BY term`
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dynrules: fetch glossary: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("dynrules: fetch glossary scan: %w", err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dynrules: fetch glossary: %w", err)
	}
	return terms, nil
}

func (p *PostgresProvider) fetchRules(ctx context.Context) ([]safety.Rule, error) {
	const query = `
		SELECT raw, fix, category, confidence, attributes
		FROM correction_rules
		ORDER BY category, raw`
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dynrules: fetch rules: %w", err)
	}
	defer rows.Close()

	var rules []safety.Rule
	for rows.Next() {
		var (
			rule     safety.Rule
			attrJSON []byte
		)
		if err := rows.Scan(&rule.Raw, &rule.Fix, &rule.Category, &rule.Confidence, &attrJSON); err != nil {
			return nil, fmt.Errorf("dynrules: fetch rules scan: %w", err)
		}
		var attrs struct {
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal(attrJSON, &attrs); err != nil {
			return nil, fmt.Errorf("dynrules: unmarshal rule attributes (raw %q): %w", rule.Raw, err)
		}
		rule.Domain = attrs.Domain
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dynrules: fetch rules: %w", err)
	}
	return rules, nil
}

// UpsertRule creates or replaces a rule, keyed by (raw, category). Useful for
// importing rules from review tooling.
func (p *PostgresProvider) UpsertRule(ctx context.Context, rule safety.Rule) error {
	attrJSON, err := json.Marshal(map[string]string{"domain": rule.Domain})
	if err != nil {
		return fmt.Errorf("dynrules: marshal rule attributes: %w", err)
	}
	const query = `
		INSERT INTO correction_rules (raw, fix, category, confidence, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (raw, category) DO UPDATE SET
			fix = EXCLUDED.fix,
			confidence = EXCLUDED.confidence,
			attributes = EXCLUDED.attributes,
			updated_at = now()`
	if _, err := p.db.Exec(ctx, query, rule.Raw, rule.Fix, rule.Category, rule.Confidence, attrJSON); err != nil {
		return fmt.Errorf("dynrules: upsert rule %q: %w", rule.Raw, err)
	}
	return nil
}

// AddGlossaryTerm inserts a glossary term. Adding an existing term is not an
// error.
func (p *PostgresProvider) AddGlossaryTerm(ctx context.Context, term string) error {
	const query = `INSERT INTO glossary_terms (term) VALUES ($1) ON CONFLICT (term) DO NOTHING`
	if _, err := p.db.Exec(ctx, query, term); err != nil {
		return fmt.Errorf("dynrules: add glossary term %q: %w", term, err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/confecoes-lanca/prospector/internal/db"
	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/similarity"
)

// PostgresStore implements Store using pgxpool with the pgvector extension
// for reference client embeddings.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_prospect":      `SELECT data, status FROM prospects WHERE id = $1`,
	"update_status":     `UPDATE prospects SET status = $1, data = jsonb_set(data, '{status}', to_jsonb($1::text)), updated_at = $2 WHERE id = $3`,
	"city_count":        `SELECT count(*) FROM prospects WHERE city = $1`,
	"count_embeddings":  `SELECT count(*) FROM reference_embeddings`,
	"insert_email_log":  `INSERT INTO email_logs (id, prospect_id, recipient, status, error, sent_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"suppress_domain":   `INSERT INTO suppressed_domains (domain, reason, created_at) VALUES ($1, $2, $3) ON CONFLICT (domain) DO NOTHING`,
	"get_checkpoint":    `SELECT id, city, state, data, updated_at FROM run_checkpoints WHERE id = $1`,
	"delete_checkpoint": `DELETE FROM run_checkpoints WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS prospects (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	website_url      TEXT NOT NULL,
	domain           TEXT NOT NULL,
	city             TEXT NOT NULL,
	data             JSONB NOT NULL,
	final_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	location_quality TEXT NOT NULL DEFAULT 'unknown',
	status           TEXT NOT NULL DEFAULT 'new',
	discovered_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (domain, city)
);

CREATE INDEX IF NOT EXISTS idx_prospects_city ON prospects(city);
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);
CREATE INDEX IF NOT EXISTS idx_prospects_score ON prospects(final_score DESC);

CREATE TABLE IF NOT EXISTS reference_embeddings (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	country      TEXT NOT NULL,
	metadata     JSONB NOT NULL,
	profile_text TEXT NOT NULL,
	embedding    vector(1536) NOT NULL
);

CREATE TABLE IF NOT EXISTS suppressed_domains (
	domain     TEXT PRIMARY KEY,
	reason     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_checkpoints (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS email_logs (
	id          TEXT PRIMARY KEY,
	prospect_id TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT,
	sent_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_logs_prospect ON email_logs(prospect_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveProspect(ctx context.Context, p *model.Prospect) (*SaveOutcome, error) {
	p.Domain = ExtractDomain(p.WebsiteURL)
	p.City = NormalizeCity(p.City)
	if p.ID == "" {
		p.ID = ProspectID(p.WebsiteURL, p.City)
	}
	if p.Status == "" {
		p.Status = model.StatusNew
	}
	if p.LocationQuality == "" {
		p.LocationQuality = model.LocationUnknown
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = time.Now().UTC()
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal prospect")
	}

	var finalScore float64
	if p.Breakdown != nil {
		finalScore = p.Breakdown.FinalScore
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO prospects (id, name, website_url, domain, city, data, final_score, location_quality, status, discovered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (domain, city) DO NOTHING`,
		p.ID, p.Name, p.WebsiteURL, p.Domain, p.City, doc, finalScore,
		string(p.LocationQuality), string(p.Status), p.DiscoveredAt, p.DiscoveredAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert prospect %s", p.Name)
	}
	if tag.RowsAffected() == 0 {
		return &SaveOutcome{ID: p.ID, Duplicate: true}, nil
	}
	return &SaveOutcome{ID: p.ID, Inserted: true}, nil
}

func (s *PostgresStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	var doc []byte
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT data, status FROM prospects WHERE id = $1`, id,
	).Scan(&doc, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("prospect not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get prospect %s", id)
	}

	var p model.Prospect
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal prospect")
	}
	p.Status = model.ProspectStatus(status)
	return &p, nil
}

// ListProspects returns prospects ordered by score. A domain discovered in
// several cities appears once, with its highest-scoring row.
func (s *PostgresStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT data, status FROM (
		SELECT DISTINCT ON (domain) data, status, final_score FROM prospects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.City != "" {
		query += fmt.Sprintf(` AND city = $%d`, argIdx)
		args = append(args, NormalizeCity(filter.City))
		argIdx++
	}
	if filter.Country != "" {
		query += fmt.Sprintf(` AND lower(data->>'country') LIKE $%d`, argIdx)
		args = append(args, "%"+strings.ToLower(filter.Country)+"%")
		argIdx++
	}
	if filter.CountryCode != "" {
		query += fmt.Sprintf(` AND upper(data->>'country_code') = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.CountryCode))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND final_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	if filter.MaxScore > 0 {
		query += fmt.Sprintf(` AND final_score <= $%d`, argIdx)
		args = append(args, filter.MaxScore)
		argIdx++
	}
	if filter.MinStores > 0 {
		query += fmt.Sprintf(` AND (data->>'store_count')::int >= $%d`, argIdx)
		args = append(args, filter.MinStores)
		argIdx++
	}
	if filter.MaxStores > 0 {
		query += fmt.Sprintf(` AND (data->>'store_count')::int <= $%d`, argIdx)
		args = append(args, filter.MaxStores)
		argIdx++
	}
	if filter.MinPrice > 0 {
		query += fmt.Sprintf(` AND (data->>'avg_price_eur')::float >= $%d`, argIdx)
		args = append(args, filter.MinPrice)
		argIdx++
	}
	if filter.MaxPrice > 0 {
		query += fmt.Sprintf(` AND (data->>'avg_price_eur')::float <= $%d`, argIdx)
		args = append(args, filter.MaxPrice)
		argIdx++
	}
	query += ` ORDER BY domain, final_score DESC
	) best ORDER BY final_score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list prospects")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		var doc []byte
		var status string
		if err := rows.Scan(&doc, &status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan prospect")
		}
		var p model.Prospect
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal prospect")
		}
		p.Status = model.ProspectStatus(status)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list prospects iterate")
}

func (s *PostgresStore) UpdateProspectStatus(ctx context.Context, id string, status model.ProspectStatus) error {
	if !model.ValidStatus(status) {
		return eris.Errorf("invalid status: %s", status)
	}

	var current string
	err := s.pool.QueryRow(ctx,
		`SELECT status FROM prospects WHERE id = $1`, id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Errorf("prospect not found: %s", id)
		}
		return eris.Wrapf(err, "postgres: get prospect status %s", id)
	}
	if !model.CanTransition(model.ProspectStatus(current), status) {
		return eris.Errorf("invalid status transition: %s -> %s", current, status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET status = $1, data = jsonb_set(data, '{status}', to_jsonb($1::text)), updated_at = $2 WHERE id = $3 AND status = $4`,
		string(status), time.Now().UTC(), id, current,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("status changed concurrently: %s", id)
	}
	return nil
}

func (s *PostgresStore) CityProspectCount(ctx context.Context, city string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM prospects WHERE city = $1`, NormalizeCity(city),
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count prospects for %s", city)
}

func (s *PostgresStore) DeleteCityProspects(ctx context.Context, city string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM prospects WHERE city = $1`, NormalizeCity(city),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete prospects for %s", city)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) SuppressDomain(ctx context.Context, domain, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO suppressed_domains (domain, reason, created_at) VALUES ($1, $2, $3) ON CONFLICT (domain) DO NOTHING`,
		ExtractDomain(domain), reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: suppress domain %s", domain)
}

func (s *PostgresStore) SuppressedDomains(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT domain FROM suppressed_domains ORDER BY domain`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suppressed domains")
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "postgres: scan suppressed domain")
		}
		domains = append(domains, d)
	}
	return domains, eris.Wrap(rows.Err(), "postgres: list suppressed domains iterate")
}

func (s *PostgresStore) CountReferenceEmbeddings(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM reference_embeddings`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count reference embeddings")
}

func (s *PostgresStore) ReplaceReferenceEmbeddings(ctx context.Context, refs []model.ReferenceEmbedding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace embeddings")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM reference_embeddings`); err != nil {
		return eris.Wrap(err, "postgres: clear reference embeddings")
	}
	for _, ref := range refs {
		meta, err := json.Marshal(ref)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal embedding %s", ref.ID)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO reference_embeddings (id, name, country, metadata, profile_text, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			ref.ID, ref.Name, ref.Country, meta, ref.ProfileText, encodeVector(ref.Vector),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert embedding %s", ref.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace embeddings")
}

func (s *PostgresStore) NearestReferenceClients(ctx context.Context, vec []float32, n int) ([]similarity.Neighbor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT metadata, embedding <=> $1::vector AS distance
		 FROM reference_embeddings
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		encodeVector(vec), n,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: nearest reference clients")
	}
	defer rows.Close()

	var out []similarity.Neighbor
	for rows.Next() {
		var meta []byte
		var dist float64
		if err := rows.Scan(&meta, &dist); err != nil {
			return nil, eris.Wrap(err, "postgres: scan neighbor")
		}
		var ref model.ReferenceEmbedding
		if err := json.Unmarshal(meta, &ref); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal embedding metadata")
		}
		out = append(out, similarity.Neighbor{Ref: ref, CosineDistance: dist})
	}
	return out, eris.Wrap(rows.Err(), "postgres: nearest iterate")
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *model.RunCheckpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_checkpoints (id, city, state, data, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET city = EXCLUDED.city, state = EXCLUDED.state, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		cp.ID, cp.City, string(cp.State), cp.Data, cp.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save checkpoint %s", cp.ID)
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context, id string) (*model.RunCheckpoint, error) {
	var cp model.RunCheckpoint
	var state string
	err := s.pool.QueryRow(ctx,
		`SELECT id, city, state, data, updated_at FROM run_checkpoints WHERE id = $1`, id,
	).Scan(&cp.ID, &cp.City, &state, &cp.Data, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("checkpoint not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get checkpoint %s", id)
	}
	cp.State = model.RunState(state)
	return &cp, nil
}

func (s *PostgresStore) DeleteCheckpoint(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM run_checkpoints WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete checkpoint %s", id)
}

func (s *PostgresStore) LogEmail(ctx context.Context, entry model.EmailLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO email_logs (id, prospect_id, recipient, status, error, sent_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), entry.ProspectID, entry.To, entry.Status, entry.Error, entry.SentAt,
	)
	return eris.Wrapf(err, "postgres: log email for %s", entry.ProspectID)
}

func (s *PostgresStore) EmailLogs(ctx context.Context, prospectID string) ([]model.EmailLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT prospect_id, recipient, status, COALESCE(error, ''), sent_at FROM email_logs WHERE prospect_id = $1 ORDER BY sent_at DESC`,
		prospectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: email logs for %s", prospectID)
	}
	defer rows.Close()

	var logs []model.EmailLog
	for rows.Next() {
		var l model.EmailLog
		if err := rows.Scan(&l.ProspectID, &l.To, &l.Status, &l.Error, &l.SentAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: email logs iterate")
}

func (s *PostgresStore) Summary(ctx context.Context) (*model.AnalyticsSummary, error) {
	sum := &model.AnalyticsSummary{
		ByStatus: map[string]int{},
		ByCity:   map[string]int{},
	}

	err := s.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(avg(final_score), 0), count(*) FILTER (WHERE location_quality = 'premium') FROM prospects`,
	).Scan(&sum.TotalProspects, &sum.AvgFinalScore, &sum.PremiumLocated)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary totals")
	}

	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM prospects GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		sum.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: summary by status iterate")
	}

	cityRows, err := s.pool.Query(ctx, `SELECT city, count(*) FROM prospects GROUP BY city`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary by city")
	}
	defer cityRows.Close()
	for cityRows.Next() {
		var city string
		var n int
		if err := cityRows.Scan(&city, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city count")
		}
		sum.ByCity[city] = n
	}
	return sum, eris.Wrap(cityRows.Err(), "postgres: summary by city iterate")
}

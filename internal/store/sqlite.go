package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/similarity"
)

// SQLiteStore implements Store using modernc.org/sqlite. Vectors are stored
// as text literals and nearest-neighbour search runs in Go, which is fine for
// the catalogue's 18 reference embeddings.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	website_url      TEXT NOT NULL,
	domain           TEXT NOT NULL,
	city             TEXT NOT NULL,
	data             TEXT NOT NULL,
	final_score      REAL NOT NULL DEFAULT 0,
	location_quality TEXT NOT NULL DEFAULT 'unknown',
	status           TEXT NOT NULL DEFAULT 'new',
	discovered_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (domain, city)
);

CREATE INDEX IF NOT EXISTS idx_prospects_city ON prospects(city);
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);

CREATE TABLE IF NOT EXISTS reference_embeddings (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	country      TEXT NOT NULL,
	metadata     TEXT NOT NULL,
	profile_text TEXT NOT NULL,
	embedding    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS suppressed_domains (
	domain     TEXT PRIMARY KEY,
	reason     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_checkpoints (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS email_logs (
	id          TEXT PRIMARY KEY,
	prospect_id TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT,
	sent_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_email_logs_prospect ON email_logs(prospect_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveProspect(ctx context.Context, p *model.Prospect) (*SaveOutcome, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal prospect")
	}

	var finalScore float64
	if p.Breakdown != nil {
		finalScore = p.Breakdown.FinalScore
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prospects (id, name, website_url, domain, city, data, final_score, location_quality, status, discovered_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (domain, city) DO NOTHING`,
		p.ID, p.Name, p.WebsiteURL, p.Domain, p.City, string(doc), finalScore,
		string(p.LocationQuality), string(p.Status), p.DiscoveredAt, p.DiscoveredAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert prospect %s", p.Name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return &SaveOutcome{ID: p.ID, Duplicate: true}, nil
	}
	return &SaveOutcome{ID: p.ID, Inserted: true}, nil
}

func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	var doc, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, status FROM prospects WHERE id = ?`, id,
	).Scan(&doc, &status)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("prospect not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", id)
	}

	var p model.Prospect
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal prospect")
	}
	p.Status = model.ProspectStatus(status)
	return &p, nil
}

func (s *SQLiteStore) ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error) {
	query := `SELECT data, status FROM (
		SELECT data, status, final_score,
		       ROW_NUMBER() OVER (PARTITION BY domain ORDER BY final_score DESC) AS rn
		FROM prospects WHERE true`
	args := []any{}

	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, NormalizeCity(filter.City))
	}
	if filter.Country != "" {
		query += ` AND lower(json_extract(data, '$.country')) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Country)+"%")
	}
	if filter.CountryCode != "" {
		query += ` AND upper(json_extract(data, '$.country_code')) = ?`
		args = append(args, strings.ToUpper(filter.CountryCode))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.MinScore > 0 {
		query += ` AND final_score >= ?`
		args = append(args, filter.MinScore)
	}
	if filter.MaxScore > 0 {
		query += ` AND final_score <= ?`
		args = append(args, filter.MaxScore)
	}
	if filter.MinStores > 0 {
		query += ` AND json_extract(data, '$.store_count') >= ?`
		args = append(args, filter.MinStores)
	}
	if filter.MaxStores > 0 {
		query += ` AND json_extract(data, '$.store_count') <= ?`
		args = append(args, filter.MaxStores)
	}
	if filter.MinPrice > 0 {
		query += ` AND json_extract(data, '$.avg_price_eur') >= ?`
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		query += ` AND json_extract(data, '$.avg_price_eur') <= ?`
		args = append(args, filter.MaxPrice)
	}
	query += `) WHERE rn = 1 ORDER BY final_score DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list prospects")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		var doc, status string
		if err := rows.Scan(&doc, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan prospect")
		}
		var p model.Prospect
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal prospect")
		}
		p.Status = model.ProspectStatus(status)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list prospects iterate")
}

func (s *SQLiteStore) UpdateProspectStatus(ctx context.Context, id string, status model.ProspectStatus) error {
	if !model.ValidStatus(status) {
		return eris.Errorf("invalid status: %s", status)
	}

	var current string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM prospects WHERE id = ?`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return eris.Errorf("prospect not found: %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get prospect status %s", id)
	}
	if !model.CanTransition(model.ProspectStatus(current), status) {
		return eris.Errorf("invalid status transition: %s -> %s", current, status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET status = ?, data = json_set(data, '$.status', ?), updated_at = ? WHERE id = ? AND status = ?`,
		string(status), string(status), time.Now().UTC(), id, current,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect status %s", id)
	}
	return checkRowsAffected(res, "prospect", id)
}

func (s *SQLiteStore) CityProspectCount(ctx context.Context, city string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM prospects WHERE city = ?`, NormalizeCity(city),
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count prospects for %s", city)
}

func (s *SQLiteStore) DeleteCityProspects(ctx context.Context, city string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM prospects WHERE city = ?`, NormalizeCity(city),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete prospects for %s", city)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) SuppressDomain(ctx context.Context, domain, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suppressed_domains (domain, reason, created_at) VALUES (?, ?, ?) ON CONFLICT (domain) DO NOTHING`,
		ExtractDomain(domain), reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: suppress domain %s", domain)
}

func (s *SQLiteStore) SuppressedDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain FROM suppressed_domains ORDER BY domain`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suppressed domains")
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suppressed domain")
		}
		domains = append(domains, d)
	}
	return domains, eris.Wrap(rows.Err(), "sqlite: list suppressed domains iterate")
}

func (s *SQLiteStore) CountReferenceEmbeddings(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM reference_embeddings`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count reference embeddings")
}

func (s *SQLiteStore) ReplaceReferenceEmbeddings(ctx context.Context, refs []model.ReferenceEmbedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace embeddings")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_embeddings`); err != nil {
		return eris.Wrap(err, "sqlite: clear reference embeddings")
	}
	for _, ref := range refs {
		meta, err := json.Marshal(ref)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal embedding %s", ref.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reference_embeddings (id, name, country, metadata, profile_text, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			ref.ID, ref.Name, ref.Country, string(meta), ref.ProfileText, encodeVector(ref.Vector),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert embedding %s", ref.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace embeddings")
}

func (s *SQLiteStore) NearestReferenceClients(ctx context.Context, vec []float32, n int) ([]similarity.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metadata, embedding FROM reference_embeddings`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load reference embeddings")
	}
	defer rows.Close()

	var neighbors []similarity.Neighbor
	for rows.Next() {
		var meta, embedding string
		if err := rows.Scan(&meta, &embedding); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan embedding")
		}
		var ref model.ReferenceEmbedding
		if err := json.Unmarshal([]byte(meta), &ref); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal embedding metadata")
		}
		ref.Vector, err = decodeVector(embedding)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode embedding %s", ref.ID)
		}
		neighbors = append(neighbors, similarity.Neighbor{
			Ref:            ref,
			CosineDistance: similarity.CosineDistance(vec, ref.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: embeddings iterate")
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].CosineDistance < neighbors[j].CosineDistance
	})
	if n > 0 && len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors, nil
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *model.RunCheckpoint) error {
	cp.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_checkpoints (id, city, state, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET city = excluded.city, state = excluded.state, data = excluded.data, updated_at = excluded.updated_at`,
		cp.ID, cp.City, string(cp.State), string(cp.Data), cp.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save checkpoint %s", cp.ID)
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, id string) (*model.RunCheckpoint, error) {
	var cp model.RunCheckpoint
	var state, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, city, state, data, updated_at FROM run_checkpoints WHERE id = ?`, id,
	).Scan(&cp.ID, &cp.City, &state, &data, &cp.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("checkpoint not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get checkpoint %s", id)
	}
	cp.State = model.RunState(state)
	cp.Data = []byte(data)
	return &cp, nil
}

func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM run_checkpoints WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete checkpoint %s", id)
}

func (s *SQLiteStore) LogEmail(ctx context.Context, entry model.EmailLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_logs (id, prospect_id, recipient, status, error, sent_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), entry.ProspectID, entry.To, entry.Status, entry.Error, entry.SentAt,
	)
	return eris.Wrapf(err, "sqlite: log email for %s", entry.ProspectID)
}

func (s *SQLiteStore) EmailLogs(ctx context.Context, prospectID string) ([]model.EmailLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT prospect_id, recipient, status, COALESCE(error, ''), sent_at FROM email_logs WHERE prospect_id = ? ORDER BY sent_at DESC`,
		prospectID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: email logs for %s", prospectID)
	}
	defer rows.Close()

	var logs []model.EmailLog
	for rows.Next() {
		var l model.EmailLog
		if err := rows.Scan(&l.ProspectID, &l.To, &l.Status, &l.Error, &l.SentAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: email logs iterate")
}

func (s *SQLiteStore) Summary(ctx context.Context) (*model.AnalyticsSummary, error) {
	sum := &model.AnalyticsSummary{
		ByStatus: map[string]int{},
		ByCity:   map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(avg(final_score), 0),
		        count(CASE WHEN location_quality = 'premium' THEN 1 END)
		 FROM prospects`,
	).Scan(&sum.TotalProspects, &sum.AvgFinalScore, &sum.PremiumLocated)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summary totals")
	}

	for _, group := range []struct {
		col  string
		dest map[string]int
	}{
		{"status", sum.ByStatus},
		{"city", sum.ByCity},
	} {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s, count(*) FROM prospects GROUP BY %s`, group.col, group.col),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: summary by %s", group.col)
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, eris.Wrapf(err, "sqlite: scan %s count", group.col)
			}
			group.dest[key] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrapf(err, "sqlite: summary by %s iterate", group.col)
		}
		rows.Close()
	}
	return sum, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

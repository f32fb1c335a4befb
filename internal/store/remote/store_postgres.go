package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"certhub/internal/domain"
)

// PostgresStore backs the shared state with PostgreSQL, for deployments that
// already run one and prefer it over Redis.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresStore wraps an established pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) (*PostgresStore, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &PostgresStore{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS certhub_records (
	id          TEXT PRIMARY KEY,
	body        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS certhub_artifacts (
	id          TEXT PRIMARY KEY,
	data        BYTEA NOT NULL,
	stored_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS certhub_sweeps (
	sweep_day   TEXT PRIMARY KEY,
	run_by      TEXT NOT NULL,
	run_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS certhub_configs (
	name        TEXT PRIMARY KEY,
	body        JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS certhub_users (
	username    TEXT PRIMARY KEY,
	body        JSONB NOT NULL
);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertRecord(ctx context.Context, rec domain.IssuanceRecord) error {
	id := rec.Key().String()
	body, err := json.Marshal(rec.WithoutLocalFields())
	if err != nil {
		return fmt.Errorf("encode record %s: %w", id, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO certhub_records (id, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		id, body, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, key domain.RecordKey) (domain.IssuanceRecord, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM certhub_records WHERE id = $1`, key.String()).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IssuanceRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.IssuanceRecord{}, fmt.Errorf("get record %s: %w", key.String(), err)
	}
	var rec domain.IssuanceRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return domain.IssuanceRecord{}, fmt.Errorf("decode record %s: %w", key.String(), err)
	}
	return rec, nil
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, key domain.RecordKey) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM certhub_records WHERE id = $1`, key.String()); err != nil {
		return fmt.Errorf("delete record %s: %w", key.String(), err)
	}
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context) ([]domain.IssuanceRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM certhub_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []domain.IssuanceRecord
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec domain.IssuanceRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutArtifact(ctx context.Context, key domain.RecordKey, data []byte) error {
	if oversized(s.log, key, len(data)) {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO certhub_artifacts (id, data, stored_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, stored_at = now()`,
		key.String(), data)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key.String(), err)
	}
	return nil
}

func (s *PostgresStore) GetArtifact(ctx context.Context, key domain.RecordKey) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM certhub_artifacts WHERE id = $1`, key.String()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key.String(), err)
	}
	return data, nil
}

func (s *PostgresStore) DeleteArtifact(ctx context.Context, key domain.RecordKey) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM certhub_artifacts WHERE id = $1`, key.String()); err != nil {
		return fmt.Errorf("delete artifact %s: %w", key.String(), err)
	}
	return nil
}

func (s *PostgresStore) GetControlFlag(ctx context.Context) (domain.ControlFlag, error) {
	var (
		day   string
		runBy string
		runAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT sweep_day, run_by, run_at FROM certhub_sweeps ORDER BY sweep_day DESC LIMIT 1`).
		Scan(&day, &runBy, &runAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ControlFlag{}, nil
	}
	if err != nil {
		return domain.ControlFlag{}, fmt.Errorf("get control flag: %w", err)
	}
	return domain.ControlFlag{LastSweepDate: day, RunBy: runBy, RunAt: runAt}, nil
}

// TryMarkSweep claims the day via the primary key: the second inserter
// conflicts and does nothing, so exactly one instance wins.
func (s *PostgresStore) TryMarkSweep(ctx context.Context, flag domain.ControlFlag) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO certhub_sweeps (sweep_day, run_by, run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sweep_day) DO NOTHING`,
		flag.LastSweepDate, flag.RunBy, flag.RunAt)
	if err != nil {
		return false, fmt.Errorf("claim sweep day: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetMailConfig(ctx context.Context) (domain.MailConfig, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM certhub_configs WHERE name = 'mail'`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MailConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.MailConfig{}, fmt.Errorf("get mail config: %w", err)
	}
	var cfg domain.MailConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return domain.MailConfig{}, fmt.Errorf("decode mail config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) SaveMailConfig(ctx context.Context, cfg domain.MailConfig) error {
	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode mail config: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO certhub_configs (name, body) VALUES ('mail', $1)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body`, body)
	if err != nil {
		return fmt.Errorf("save mail config: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveMailConfigIfAbsent(ctx context.Context, cfg domain.MailConfig) (bool, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode mail config: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO certhub_configs (name, body) VALUES ('mail', $1)
		ON CONFLICT (name) DO NOTHING`, body)
	if err != nil {
		return false, fmt.Errorf("seed mail config: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (domain.User, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM certhub_users WHERE username = $1`, username).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", username, err)
	}
	return u, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u domain.User) error {
	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.Username, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO certhub_users (username, body) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET body = EXCLUDED.body`, u.Username, body)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.Username, err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, username string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM certhub_users WHERE username = $1`, username); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT body FROM certhub_users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		var u domain.User
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

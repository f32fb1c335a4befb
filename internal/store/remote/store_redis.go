package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"certhub/internal/domain"
)

// Redis key layout. Records and artifacts are keyed by the "<id>_<type>"
// document id; the record index set makes listing cheap without SCAN.
const (
	recordKeyPrefix   = "certhub:rec:"
	artifactKeyPrefix = "certhub:art:"
	recordIndexKey    = "certhub:rec:index"
	controlKey        = "certhub:control"
	mailConfigKey     = "certhub:mail"
	userKeyPrefix     = "certhub:user:"
	userIndexKey      = "certhub:user:index"
	sweepKeyPrefix    = "certhub:sweep:"
)

// RedisStore is the production Store for distributed deployments.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore wraps an established client. Client lifecycle stays with the
// caller; Close only severs this store's use of it.
func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) UpsertRecord(ctx context.Context, rec domain.IssuanceRecord) error {
	id := rec.Key().String()
	data, err := json.Marshal(rec.WithoutLocalFields())
	if err != nil {
		return fmt.Errorf("encode record %s: %w", id, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, recordKeyPrefix+id, data, 0)
	pipe.SAdd(ctx, recordIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetRecord(ctx context.Context, key domain.RecordKey) (domain.IssuanceRecord, error) {
	data, err := s.client.Get(ctx, recordKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.IssuanceRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.IssuanceRecord{}, fmt.Errorf("get record %s: %w", key.String(), err)
	}
	var rec domain.IssuanceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.IssuanceRecord{}, fmt.Errorf("decode record %s: %w", key.String(), err)
	}
	return rec, nil
}

func (s *RedisStore) DeleteRecord(ctx context.Context, key domain.RecordKey) error {
	id := key.String()
	pipe := s.client.Pipeline()
	pipe.Del(ctx, recordKeyPrefix+id)
	pipe.SRem(ctx, recordIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ListRecords(ctx context.Context) ([]domain.IssuanceRecord, error) {
	ids, err := s.client.SMembers(ctx, recordIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list record index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	out := make([]domain.IssuanceRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry whose record was deleted out-of-band; drop it.
			s.client.SRem(ctx, recordIndexKey, ids[i])
			continue
		}
		var rec domain.IssuanceRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", ids[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) PutArtifact(ctx context.Context, key domain.RecordKey, data []byte) error {
	if oversized(s.log, key, len(data)) {
		return nil
	}
	if err := s.client.Set(ctx, artifactKeyPrefix+key.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("put artifact %s: %w", key.String(), err)
	}
	return nil
}

func (s *RedisStore) GetArtifact(ctx context.Context, key domain.RecordKey) ([]byte, error) {
	data, err := s.client.Get(ctx, artifactKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key.String(), err)
	}
	return data, nil
}

func (s *RedisStore) DeleteArtifact(ctx context.Context, key domain.RecordKey) error {
	if err := s.client.Del(ctx, artifactKeyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("delete artifact %s: %w", key.String(), err)
	}
	return nil
}

func (s *RedisStore) GetControlFlag(ctx context.Context) (domain.ControlFlag, error) {
	data, err := s.client.Get(ctx, controlKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ControlFlag{}, nil
	}
	if err != nil {
		return domain.ControlFlag{}, fmt.Errorf("get control flag: %w", err)
	}
	var flag domain.ControlFlag
	if err := json.Unmarshal(data, &flag); err != nil {
		return domain.ControlFlag{}, fmt.Errorf("decode control flag: %w", err)
	}
	return flag, nil
}

// TryMarkSweep claims the sweep for flag's day with a single SET NX, so two
// instances racing past the read-side check still resolve to one winner here.
func (s *RedisStore) TryMarkSweep(ctx context.Context, flag domain.ControlFlag) (bool, error) {
	won, err := s.client.SetNX(ctx, sweepKeyPrefix+flag.LastSweepDate, flag.RunBy, sweepGraceTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim sweep day: %w", err)
	}
	if !won {
		return false, nil
	}

	data, err := json.Marshal(flag)
	if err != nil {
		return false, fmt.Errorf("encode control flag: %w", err)
	}
	if err := s.client.Set(ctx, controlKey, data, 0).Err(); err != nil {
		return false, fmt.Errorf("set control flag: %w", err)
	}
	return true, nil
}

func (s *RedisStore) GetMailConfig(ctx context.Context) (domain.MailConfig, error) {
	data, err := s.client.Get(ctx, mailConfigKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MailConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.MailConfig{}, fmt.Errorf("get mail config: %w", err)
	}
	var cfg domain.MailConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.MailConfig{}, fmt.Errorf("decode mail config: %w", err)
	}
	return cfg, nil
}

func (s *RedisStore) SaveMailConfig(ctx context.Context, cfg domain.MailConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode mail config: %w", err)
	}
	if err := s.client.Set(ctx, mailConfigKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save mail config: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveMailConfigIfAbsent(ctx context.Context, cfg domain.MailConfig) (bool, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode mail config: %w", err)
	}
	saved, err := s.client.SetNX(ctx, mailConfigKey, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("seed mail config: %w", err)
	}
	return saved, nil
}

func (s *RedisStore) GetUser(ctx context.Context, username string) (domain.User, error) {
	data, err := s.client.Get(ctx, userKeyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", username, err)
	}
	return u, nil
}

func (s *RedisStore) SaveUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.Username, err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, userKeyPrefix+u.Username, data, 0)
	pipe.SAdd(ctx, userIndexKey, u.Username)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save user %s: %w", u.Username, err)
	}
	return nil
}

func (s *RedisStore) DeleteUser(ctx context.Context, username string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, userKeyPrefix+username)
	pipe.SRem(ctx, userIndexKey, username)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func (s *RedisStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	names, err := s.client.SMembers(ctx, userIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user index: %w", err)
	}
	out := make([]domain.User, 0, len(names))
	for _, name := range names {
		u, err := s.GetUser(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return nil }

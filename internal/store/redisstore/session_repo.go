// Package redisstore keeps sessions in Redis. Each session is a hash with a
// TTL; a set per identity and a sorted set by expiry support bulk revocation
// and purging.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix    = "portal"
	defaultRetention = 24 * time.Hour

	fieldKind      = "kind"
	fieldKey       = "key"
	fieldExpiresAt = "expires_at"
	fieldActive    = "active"
	fieldCreatedAt = "created_at"
)

// deactivateScript returns -1 for a missing session, otherwise 1 if the
// session was active and 0 if it already was not.
var deactivateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local was = redis.call('HGET', KEYS[1], 'active')
redis.call('HSET', KEYS[1], 'active', '0')
if was == '1' then
	return 1
end
return 0
`)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

type Option func(*SessionRepo)

func WithKeyPrefix(prefix string) Option {
	return func(r *SessionRepo) {
		r.prefix = prefix
	}
}

// WithRetention sets how long a session hash outlives its expiry.
func WithRetention(d time.Duration) Option {
	return func(r *SessionRepo) {
		r.retention = d
	}
}

func NewSessionRepo(client redis.UniversalClient, opts ...Option) *SessionRepo {
	r := &SessionRepo{
		client:    client,
		prefix:    defaultPrefix,
		retention: defaultRetention,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewClient connects and pings.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (r *SessionRepo) sessionKey(token string) string {
	return r.prefix + ":session:" + token
}

func (r *SessionRepo) identityKey(kind identity.Kind, key string) string {
	return r.prefix + ":identity:" + string(kind) + ":" + key
}

func (r *SessionRepo) expiryKey() string {
	return r.prefix + ":sessions:by_expiry"
}

func (r *SessionRepo) Insert(ctx context.Context, s *sessions.Session) error {
	key := r.sessionKey(s.Token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldKind, string(s.Kind),
			fieldKey, s.Key,
			fieldExpiresAt, s.ExpiresAt.UTC().Format(time.RFC3339Nano),
			fieldActive, boolField(s.Active),
			fieldCreatedAt, s.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ExpireAt(ctx, key, s.ExpiresAt.Add(r.retention))
		pipe.SAdd(ctx, r.identityKey(s.Kind, s.Key), s.Token)
		pipe.ZAdd(ctx, r.expiryKey(), redis.Z{Score: float64(s.ExpiresAt.UnixMilli()), Member: s.Token})
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redis SessionRepo.Insert] %w", err)
	}
	return nil
}

func (r *SessionRepo) Deactivate(ctx context.Context, token string) error {
	res, err := deactivateScript.Run(ctx, r.client, []string{r.sessionKey(token)}).Int64()
	if err != nil {
		return fmt.Errorf("[redis SessionRepo.Deactivate] %w", err)
	}
	if res < 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) FindValid(ctx context.Context, token string, now time.Time) (*sessions.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("[redis SessionRepo.FindValid] %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrNotFound
	}

	s, err := decodeSession(token, fields)
	if err != nil {
		return nil, fmt.Errorf("[redis SessionRepo.FindValid] %w", err)
	}
	if !s.ValidAt(now) {
		return nil, apperrors.ErrNotFound
	}
	return s, nil
}

func (r *SessionRepo) DeactivateByIdentity(ctx context.Context, kind identity.Kind, key string) (int64, error) {
	setKey := r.identityKey(kind, key)
	tokens, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("[redis SessionRepo.DeactivateByIdentity] %w", err)
	}

	var count int64
	for _, token := range tokens {
		res, err := deactivateScript.Run(ctx, r.client, []string{r.sessionKey(token)}).Int64()
		if err != nil {
			return count, fmt.Errorf("[redis SessionRepo.DeactivateByIdentity] %w", err)
		}
		switch {
		case res < 0:
			// hash already expired out of Redis
			r.client.SRem(ctx, setKey, token)
		case res == 1:
			count++
		}
	}
	return count, nil
}

func (r *SessionRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tokens, err := r.client.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("[redis SessionRepo.PurgeExpired] %w", err)
	}

	var purged int64
	for _, token := range tokens {
		key := r.sessionKey(token)
		owner, err := r.client.HMGet(ctx, key, fieldKind, fieldKey).Result()
		if err != nil {
			return purged, fmt.Errorf("[redis SessionRepo.PurgeExpired] %w", err)
		}

		var del *redis.IntCmd
		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, key)
			pipe.ZRem(ctx, r.expiryKey(), token)
			if kind, ok := owner[0].(string); ok {
				if idKey, ok := owner[1].(string); ok {
					pipe.SRem(ctx, r.identityKey(identity.Kind(kind), idKey), token)
				}
			}
			return nil
		})
		if err != nil {
			return purged, fmt.Errorf("[redis SessionRepo.PurgeExpired] %w", err)
		}
		if del.Val() > 0 {
			purged++
		}
	}
	return purged, nil
}

func decodeSession(token string, fields map[string]string) (*sessions.Session, error) {
	expiresAt, err := time.Parse(time.RFC3339Nano, fields[fieldExpiresAt])
	if err != nil {
		return nil, errors.Join(apperrors.ErrDataIntegrity, fmt.Errorf("expires_at: %w", err))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return nil, errors.Join(apperrors.ErrDataIntegrity, fmt.Errorf("created_at: %w", err))
	}
	return &sessions.Session{
		Token:     token,
		Kind:      identity.Kind(fields[fieldKind]),
		Key:       fields[fieldKey],
		ExpiresAt: expiresAt,
		Active:    fields[fieldActive] == "1",
		CreatedAt: createdAt,
	}, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

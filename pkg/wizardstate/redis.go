package wizardstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// DefaultKeyPrefix namespaces wizard sessions in Redis.
const DefaultKeyPrefix = "formwizard:session:"

// Redis keeps states as JSON strings with an optional expiry.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithTTL expires sessions ttl after their last save. Zero keeps them.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// NewRedis wraps client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) Load(ctx context.Context, key string) (wizard.State, error) {
	if err := checkKey(key); err != nil {
		return wizard.State{}, err
	}
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return wizard.State{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("wizardstate: redis get %s: %w", key, err)
	}
	var state wizard.State
	if err := json.Unmarshal(data, &state); err != nil {
		return wizard.State{}, fmt.Errorf("wizardstate: decode %s: %w", key, err)
	}
	return state, nil
}

func (r *Redis) Save(ctx context.Context, key string, state wizard.State) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("wizardstate: encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("wizardstate: redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("wizardstate: redis del %s: %w", key, err)
	}
	return nil
}

package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptTTL bounds how long a pending authorization survives between the
// redirect to the provider and the callback.
const AttemptTTL = 10 * time.Minute

const attemptKeyPrefix = "oauth:attempt:"

// Attempt is one pending authorization: the state parameter that keys it and
// the PKCE verifier that must accompany the code exchange.
type Attempt struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// StateStore persists pending authorization attempts between the authorize
// and callback legs. Claim is single use: a second claim of the same state
// misses, which is what makes replayed callbacks fail.
type StateStore interface {
	Save(ctx context.Context, attempt Attempt) error
	Claim(ctx context.Context, state string) (*Attempt, error)
}

// RedisStateStore keeps attempts in Redis under a TTL so abandoned flows
// clean themselves up.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore wraps client with the default attempt TTL.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: AttemptTTL}
}

// Save stores the attempt keyed by its state value.
func (s *RedisStateStore) Save(ctx context.Context, attempt Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode oauth attempt: %w", err)
	}
	if err := s.client.Set(ctx, attemptKeyPrefix+attempt.State, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store oauth attempt: %w", err)
	}
	return nil
}

// Claim atomically fetches and deletes the attempt for state. Returns nil
// when the state is unknown, expired, or already claimed.
func (s *RedisStateStore) Claim(ctx context.Context, state string) (*Attempt, error) {
	payload, err := s.client.GetDel(ctx, attemptKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim oauth attempt: %w", err)
	}
	var attempt Attempt
	if err := json.Unmarshal(payload, &attempt); err != nil {
		return nil, fmt.Errorf("decode oauth attempt: %w", err)
	}
	return &attempt, nil
}

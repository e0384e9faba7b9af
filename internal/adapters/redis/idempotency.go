package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency stores the first response to a booking write so retries of
// the same Idempotency-Key replay it instead of reaching the handler path
// again. Entries expire with the key's TTL; a missing entry means the key
// was never seen (or aged out) and the write proceeds normally.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// IdempResponse is the replayable part of a response: the status code and
// the already-encoded JSON body.
type IdempResponse struct {
	Status int
	Result []byte
}

func idempKey(key string) string {
	return "booking:idemp:" + key
}

func (i *Idempotency) Get(ctx context.Context, key string) (*IdempResponse, error) {
	val, err := i.client.Get(ctx, idempKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp IdempResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp IdempResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return i.client.Set(ctx, idempKey(key), data, ttl).Err()
}

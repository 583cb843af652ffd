package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps client state in Redis. Useful for kiosk-style
// deployments where several thin clients share one identity host; the
// single-writer-on-first-use discipline lives in the device store, this
// layer is plain keyed storage.
//
// Keys:
//
//	quizclient:device-id                     the device identifier
//	quizclient:participated:{quizID}         participation marker, with TTL
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) LoadDeviceID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, deviceKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

func (s *StateStore) SaveDeviceID(ctx context.Context, id string) error {
	// The device identifier never expires; it is the device's identity.
	return s.client.Set(ctx, deviceKey, id, 0).Err()
}

func (s *StateStore) LoadParticipation(ctx context.Context, quizID string) (bool, error) {
	n, err := s.client.Exists(ctx, participationKey(quizID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *StateStore) SaveParticipation(ctx context.Context, quizID string) error {
	return s.client.Set(ctx, participationKey(quizID), "1", s.ttl).Err()
}

const deviceKey = "quizclient:device-id"

func participationKey(quizID string) string {
	return "quizclient:participated:" + quizID
}

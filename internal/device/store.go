package device

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// StateStore persists the small amount of durable client-side state the
// coordinator owns: the device identifier and per-quiz participation marks.
type StateStore interface {
	LoadDeviceID(ctx context.Context) (string, error)
	SaveDeviceID(ctx context.Context, id string) error
	LoadParticipation(ctx context.Context, quizID string) (bool, error)
	SaveParticipation(ctx context.Context, quizID string) error
}

// Store hands out the stable per-device identifier that distinguishes
// concurrent logins of the same account. The identifier is generated once
// and persisted; a failing backend degrades to an in-memory value for the
// current process lifetime only.
type Store struct {
	backend StateStore
	clock   clockwork.Clock
	log     zerolog.Logger

	sf singleflight.Group
	mu sync.RWMutex
	id string
}

func NewStore(backend StateStore, clock clockwork.Clock, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		clock:   clock,
		log:     log.With().Str("component", "device").Logger(),
	}
}

// GetOrCreate returns the device identifier, generating and persisting it on
// first use. Concurrent first calls collapse into a single generation.
func (s *Store) GetOrCreate(ctx context.Context) string {
	s.mu.RLock()
	if s.id != "" {
		defer s.mu.RUnlock()
		return s.id
	}
	s.mu.RUnlock()

	id, _, _ := s.sf.Do("device-id", func() (any, error) {
		s.mu.RLock()
		cached := s.id
		s.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		id, err := s.backend.LoadDeviceID(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("device id load failed, using in-memory identity")
		}
		if id == "" {
			id = s.generate()
			if err := s.backend.SaveDeviceID(ctx, id); err != nil {
				// Not fatal: the id survives for this process only.
				s.log.Warn().Err(err).Msg("device id persist failed")
			} else {
				s.log.Debug().Str("deviceId", id).Msg("generated new device id")
			}
		}

		s.mu.Lock()
		s.id = id
		s.mu.Unlock()
		return id, nil
	})
	return id.(string)
}

func (s *Store) generate() string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("device_%s_%d", rand, s.clock.Now().UnixMilli())
}

package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type memBackend struct {
	mu           sync.Mutex
	id           string
	saves        int
	failAll      bool
	participated map[string]bool
}

func (m *memBackend) LoadDeviceID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return "", errors.New("storage unavailable")
	}
	return m.id, nil
}

func (m *memBackend) SaveDeviceID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("storage unavailable")
	}
	m.id = id
	m.saves++
	return nil
}

func (m *memBackend) LoadParticipation(_ context.Context, quizID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participated[quizID], nil
}

func (m *memBackend) SaveParticipation(_ context.Context, quizID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.participated == nil {
		m.participated = make(map[string]bool)
	}
	m.participated[quizID] = true
	return nil
}

func TestGetOrCreateGeneratesOnceAndPersists(t *testing.T) {
	backend := &memBackend{}
	store := NewStore(backend, clockwork.NewFakeClock(), zerolog.Nop())

	first := store.GetOrCreate(context.Background())
	if !strings.HasPrefix(first, "device_") {
		t.Fatalf("expected device_ prefix, got %q", first)
	}
	second := store.GetOrCreate(context.Background())
	if second != first {
		t.Fatalf("expected stable id, got %q then %q", first, second)
	}
	if backend.saves != 1 {
		t.Fatalf("expected exactly one persist, got %d", backend.saves)
	}
}

func TestGetOrCreateReturnsExistingID(t *testing.T) {
	backend := &memBackend{id: "device_existing_1"}
	store := NewStore(backend, clockwork.NewFakeClock(), zerolog.Nop())

	if got := store.GetOrCreate(context.Background()); got != "device_existing_1" {
		t.Fatalf("expected stored id, got %q", got)
	}
	if backend.saves != 0 {
		t.Fatalf("expected no persist for existing id, got %d", backend.saves)
	}
}

func TestStorageFailureDegradesToInMemory(t *testing.T) {
	backend := &memBackend{failAll: true}
	store := NewStore(backend, clockwork.NewFakeClock(), zerolog.Nop())

	first := store.GetOrCreate(context.Background())
	if first == "" {
		t.Fatalf("expected in-memory id despite storage failure")
	}
	if second := store.GetOrCreate(context.Background()); second != first {
		t.Fatalf("expected process-stable id, got %q then %q", first, second)
	}
}

func TestConcurrentFirstUseSingleWriter(t *testing.T) {
	backend := &memBackend{}
	store := NewStore(backend, clockwork.NewFakeClock(), zerolog.Nop())

	const workers = 16
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- store.GetOrCreate(context.Background())
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("concurrent callers saw different ids: %q vs %q", first, id)
		}
	}
	if backend.saves != 1 {
		t.Fatalf("expected one writer, got %d saves", backend.saves)
	}
}

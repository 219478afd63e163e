package presence

import (
	"context"
	"sync"
)

// MemoryRegistry maps participant ids to the connection currently
// representing them. It lives only as long as the process.
type MemoryRegistry struct {
	mu            sync.RWMutex
	byParticipant map[string]string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byParticipant: make(map[string]string)}
}

// Register records connID for participantID, overwriting any previous
// mapping. The replaced connection id is returned so the caller can close it.
func (r *MemoryRegistry) Register(ctx context.Context, participantID, connID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.byParticipant[participantID]
	r.byParticipant[participantID] = connID
	return previous, nil
}

// Unregister removes the entry pointing at connID. The map is keyed by
// participant, so this is a linear scan.
func (r *MemoryRegistry) Unregister(ctx context.Context, connID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for participantID, current := range r.byParticipant {
		if current == connID {
			delete(r.byParticipant, participantID)
			return participantID, true, nil
		}
	}
	return "", false, nil
}

func (r *MemoryRegistry) Lookup(ctx context.Context, participantID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byParticipant[participantID]
	return connID, ok, nil
}

// Refresh is a no-op: memory entries do not expire.
func (r *MemoryRegistry) Refresh(ctx context.Context, participantID, connID string) error {
	return nil
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParticipant)
}

package memory

import (
	"context"
	"sync"
)

// StateRepo keeps the last organizer in process memory; it is lost on restart.
type StateRepo struct {
	mu   sync.RWMutex
	last string
	set  bool
}

func NewStateRepo() *StateRepo {
	return &StateRepo{}
}

func (r *StateRepo) LastOrganizer(context.Context) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.set, nil
}

func (r *StateRepo) SetLastOrganizer(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last, r.set = userID, true
	return nil
}

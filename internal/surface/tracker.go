// Package surface remembers what each chat message currently shows so that
// adapters can skip edits that would not change anything.
package surface

import "sync"

type Tracker struct {
	mu   sync.Mutex
	last map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]string)}
}

func key(chatID, messageID string) string { return chatID + "/" + messageID }

// Changed records content for the message and reports whether it differs
// from what was recorded before.
func (t *Tracker) Changed(chatID, messageID, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(chatID, messageID)
	if prev, ok := t.last[k]; ok && prev == content {
		return false
	}
	t.last[k] = content
	return true
}

// Forget drops a message, e.g. once its session is finished.
func (t *Tracker) Forget(chatID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, key(chatID, messageID))
}

package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerChanged(t *testing.T) {
	tr := NewTracker()
	assert.True(t, tr.Changed("c", "1", "a"))
	assert.False(t, tr.Changed("c", "1", "a"))
	assert.True(t, tr.Changed("c", "1", "b"))
	assert.True(t, tr.Changed("c", "2", "b"))

	tr.Forget("c", "1")
	assert.True(t, tr.Changed("c", "1", "b"))
}

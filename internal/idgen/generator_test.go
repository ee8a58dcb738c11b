package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	g := NewUUIDGenerator()

	a, err := g.NewRequestID()
	require.NoError(t, err)
	b, err := g.NewRequestID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, RequestPrefix))
	assert.NotEqual(t, a, b)

	_, err = uuid.Parse(strings.TrimPrefix(a, RequestPrefix))
	assert.NoError(t, err)
}

func TestSessionIDs_Deterministic(t *testing.T) {
	g := NewUUIDGenerator()

	a, err := g.SessionIDs("user-1", "summarize")
	require.NoError(t, err)
	b, err := g.SessionIDs("user-1", "summarize")
	require.NoError(t, err)

	assert.Equal(t, a.ThreadID, b.ThreadID)
	assert.Equal(t, a.RunID, b.RunID)
	// Request ids stay unique per call even for the same tuple.
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestSessionIDs_DistinctTuplesNeverCollide(t *testing.T) {
	g := NewUUIDGenerator()

	seen := map[string]string{}
	tuples := [][2]string{
		{"user-1", "summarize"},
		{"user-1", "classify"},
		{"user-2", "summarize"},
		{"user-2", "classify"},
	}
	for _, tuple := range tuples {
		ids, err := g.SessionIDs(tuple[0], tuple[1])
		require.NoError(t, err)
		key := tuple[0] + "/" + tuple[1]
		for prev, prevKey := range seen {
			assert.NotEqual(t, prev, ids.ThreadID, "thread collision between %s and %s", prevKey, key)
		}
		seen[ids.ThreadID] = key
	}
}

func TestSessionIDs_RunEncodesThread(t *testing.T) {
	g := NewUUIDGenerator()

	ids, err := g.SessionIDs("user-1", "summarize")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ids.ThreadID, ThreadPrefix))
	assert.True(t, strings.HasPrefix(ids.RunID, RunPrefix))
	assert.Contains(t, ids.RunID, ThreadCore(ids.ThreadID))
}

func TestSessionIDs_RejectsEmptyInputs(t *testing.T) {
	g := NewUUIDGenerator()

	_, err := g.SessionIDs("", "summarize")
	require.Error(t, err)
	_, err = g.SessionIDs("user-1", "")
	require.Error(t, err)
}

func TestThreadCore(t *testing.T) {
	assert.Equal(t, "abc", ThreadCore("thread_abc"))
	assert.Equal(t, "no-prefix", ThreadCore("no-prefix"))
}

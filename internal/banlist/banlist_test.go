package banlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContainsRemove(t *testing.T) {
	l := New()

	assert.False(t, l.Contains("10.0.0.1"))

	l.Add("10.0.0.1", "banned by host")
	assert.True(t, l.Contains("10.0.0.1"))

	require.NoError(t, l.Remove("10.0.0.1"))
	assert.False(t, l.Contains("10.0.0.1"))
}

func TestRemoveAbsent(t *testing.T) {
	l := New()
	assert.ErrorIs(t, l.Remove("192.168.1.50"), ErrNotBanned)
}

func TestNormalizedLookup(t *testing.T) {
	l := New()
	l.Add("::ffff:10.0.0.1", "banned by host")

	// Same address spelled differently still matches.
	assert.True(t, l.Contains("::ffff:10.0.0.1"))

	_, err := Normalize("not-an-ip")
	assert.ErrorIs(t, err, ErrInvalidIP)
}

func TestAllSorted(t *testing.T) {
	l := New()
	l.Add("10.0.0.9", "a")
	l.Add("10.0.0.1", "b")
	l.Add("10.0.0.5", "c")

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, "10.0.0.1", all[0].IP)
	assert.Equal(t, "10.0.0.5", all[1].IP)
	assert.Equal(t, "10.0.0.9", all[2].IP)
}

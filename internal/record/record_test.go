package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("Completed")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("completed")
	assert.Error(t, err)
}

func TestValidateUpdate(t *testing.T) {
	prev := testRecord()

	t.Run("complete with artifacts", func(t *testing.T) {
		next := prev.Clone()
		next.Status = StatusCompleted
		next.Artifacts = [][]byte{[]byte("d1")}
		assert.NoError(t, ValidateUpdate(prev, next))
	})

	t.Run("complete with empty artifact", func(t *testing.T) {
		next := prev.Clone()
		next.Status = StatusCompleted
		next.Artifacts = [][]byte{[]byte("d1"), {}}
		assert.NoError(t, ValidateUpdate(prev, next))
	})

	t.Run("fail without artifacts", func(t *testing.T) {
		next := prev.Clone()
		next.Status = StatusFailed
		assert.NoError(t, ValidateUpdate(prev, next))
	})

	t.Run("fail with artifacts", func(t *testing.T) {
		next := prev.Clone()
		next.Status = StatusFailed
		next.Artifacts = [][]byte{[]byte("d1")}
		assert.Error(t, ValidateUpdate(prev, next))
	})

	t.Run("created_at immutable", func(t *testing.T) {
		next := prev.Clone()
		next.CreatedAt++
		assert.Error(t, ValidateUpdate(prev, next))
	})

	t.Run("owner immutable", func(t *testing.T) {
		next := prev.Clone()
		next.Owner = "0xB"
		assert.Error(t, ValidateUpdate(prev, next))
	})

	t.Run("leave terminal", func(t *testing.T) {
		done := prev.Clone()
		done.Status = StatusFailed
		next := done.Clone()
		next.Status = StatusProcessing
		assert.Error(t, ValidateUpdate(done, next))
	})
}

func TestClone_DoesNotAlias(t *testing.T) {
	r := testRecord()
	r.Status = StatusCompleted
	r.Artifacts = [][]byte{[]byte("abc")}

	c := r.Clone()
	c.Payload[0] = 0xff
	c.Artifacts[0][0] = 'z'

	assert.Equal(t, byte(0x01), r.Payload[0])
	assert.Equal(t, byte('a'), r.Artifacts[0][0])
}

func TestClone_KeepsNilAndEmptyDistinct(t *testing.T) {
	r := testRecord()
	r.Payload = []byte{}
	r.Status = StatusCompleted
	r.Artifacts = [][]byte{{}}

	c := r.Clone()
	assert.NotNil(t, c.Payload)
	assert.NotNil(t, c.Artifacts[0])
	assert.Equal(t, r, c)

	r.Artifacts = nil
	assert.Nil(t, r.Clone().Artifacts)
}

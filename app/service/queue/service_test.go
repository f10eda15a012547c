package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUntilFull(t *testing.T) {
	q := NewService(2)

	assert.True(t, q.Add(Job{Bucket: "1", Scope: "a"}))
	assert.True(t, q.Add(Job{Bucket: "1", Scope: "b"}))
	assert.False(t, q.Add(Job{Bucket: "1", Scope: "c"}))

	job := <-q.Channel()
	assert.Equal(t, "a", job.Scope)
}

func TestAddAfterShutdown(t *testing.T) {
	q := NewService(1)
	require.NoError(t, q.Shutdown())

	assert.False(t, q.Add(Job{Bucket: "1", Scope: "a"}))

	_, ok := <-q.Channel()
	assert.False(t, ok)
}

package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 32*time.Second, cfg.CalculateBackoff(5))
	// 超过上限后封顶
	assert.Equal(t, time.Minute, cfg.CalculateBackoff(10))
	assert.Equal(t, time.Minute, cfg.CalculateBackoff(100))
}

func TestNewMessageMarshalsPayload(t *testing.T) {
	payload := &BookGenerationMessage{
		JobID:      "job-1",
		Category:   "informational",
		Subject:    "a field guide",
		WordTarget: 15000,
	}

	msg, err := NewMessage("job-1", MessageTypeBookGen, payload.Category, payload)
	require.NoError(t, err)
	assert.Equal(t, "job-1", msg.ID)
	assert.Equal(t, MessageTypeBookGen, msg.Type)

	var decoded BookGenerationMessage
	require.NoError(t, msg.UnmarshalPayload(&decoded))
	assert.Equal(t, *payload, decoded)
}

func TestMessageMetadata(t *testing.T) {
	msg := &Message{}

	assert.Empty(t, msg.GetMetadata("absent"))

	msg.SetMetadata("idempotency_key", "abc")
	assert.Equal(t, "abc", msg.GetMetadata("idempotency_key"))
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:book:gen", StreamBookGen.DLQStream())
}

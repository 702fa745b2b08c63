package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStreamPublisher_Publish(t *testing.T) {
	_, client := setupTestRedis(t)
	p := NewRedisStreamPublisher(client, "risk-console:audit", zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	p.Publish(ctx, Event{Type: EventPatientDeleted, PatientID: "P1"})

	msgs, err := client.XRange(ctx, "risk-console:audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, EventPatientDeleted, msgs[0].Values["type"])
	assert.Equal(t, "1792051200", msgs[0].Values["timestamp"])

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded))
	assert.Equal(t, "P1", decoded.PatientID)
	assert.True(t, decoded.OccurredAt.Equal(p.now()))
}

func TestRedisStreamPublisher_FailureIsSwallowed(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	p := NewRedisStreamPublisher(client, "risk-console:audit", zap.NewNop())
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), Event{Type: EventPatientsCleared})
	})
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NotPanics(t, func() { p.Publish(context.Background(), Event{Type: EventDemoLoaded}) })
}

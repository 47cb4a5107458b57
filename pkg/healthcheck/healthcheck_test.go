package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func healthy() *CheckerFunc {
	return NewChecker(StatusUnhealthy, func(context.Context) error { return nil })
}

func failing(status Status, msg string) *CheckerFunc {
	return NewChecker(status, func(context.Context) error { return errors.New(msg) })
}

func TestHealthCheck_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_AllHealthy(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("api", healthy())
	hc.Register("storage", healthy())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	require.Len(t, response.Checks, 2)
	assert.Equal(t, "api", response.Checks[0].Name)
	assert.Equal(t, "storage", response.Checks[1].Name)
}

func TestHealthCheck_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Checker
		expected Status
	}{
		{
			name:     "degraded",
			checkers: map[string]Checker{"a": healthy(), "b": failing(StatusDegraded, "slow")},
			expected: StatusDegraded,
		},
		{
			name: "unhealthy beats degraded",
			checkers: map[string]Checker{
				"a": failing(StatusDegraded, "slow"),
				"b": failing(StatusUnhealthy, "down"),
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, c := range tt.checkers {
				hc.Register(name, c)
			}
			assert.Equal(t, tt.expected, hc.Check(context.Background()).Status)
		})
	}
}

func TestHealthCheck_FailureMessage(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("api", failing(StatusUnhealthy, "connection refused"))

	response := hc.Check(context.Background())

	require.Len(t, response.Checks, 1)
	assert.Equal(t, "connection refused", response.Checks[0].Message)
}

func TestHealthCheck_Timeout(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.SetTimeout(20 * time.Millisecond)
	hc.Register("slow", NewChecker(StatusUnhealthy, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	response := hc.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Less(t, response.TotalDuration, time.Second)
}

func TestHealthCheck_RegisterReplaces(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("api", failing(StatusUnhealthy, "down"))
	hc.Register("api", healthy())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Len(t, response.Checks, 1)
}

func TestResponse_MarshalJSON(t *testing.T) {
	response := Response{
		Status:        StatusHealthy,
		Version:       "1.0.0",
		TotalDuration: 1500 * time.Millisecond,
		Checks:        []Check{{Name: "api", Status: StatusHealthy, Duration: 20 * time.Millisecond}},
	}

	data, err := json.Marshal(response)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1500), decoded["total_duration_ms"])
	checks := decoded["checks"].([]any)
	assert.Equal(t, float64(20), checks[0].(map[string]any)["duration_ms"])
}

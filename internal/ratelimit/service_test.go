package ratelimit

import (
	"context"
	"testing"
	"time"

	"receptionist-server/internal/observability"
)

func TestCheckFailsOpenWithoutRedis(t *testing.T) {
	svc := NewService(nil, 10, time.Minute, observability.NewLogger())

	for i := 0; i < 25; i++ {
		result, err := svc.Check(context.Background(), "+15550100")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d blocked with Redis disabled", i)
		}
	}
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(nil, 0, 0, observability.NewLogger())
	if svc.limit != 100 {
		t.Errorf("default limit = %d, want 100", svc.limit)
	}
	if svc.window != time.Minute {
		t.Errorf("default window = %v, want 1m", svc.window)
	}
}

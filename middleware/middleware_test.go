package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/BX-D/bridge/message"
	"go.uber.org/zap"
)

func echoHandler(ctx context.Context, req *message.Envelope) *message.Envelope {
	return message.NewResponse(req.ID, message.Inline("ok"))
}

func slowHandler(ctx context.Context, req *message.Envelope) *message.Envelope {
	time.Sleep(200 * time.Millisecond)
	return message.NewResponse(req.ID, message.Inline("ok"))
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestLogging(t *testing.T) {
	handler := Logging(testLogger())(echoHandler)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp == nil {
		t.Fatal("expect non-nil response")
	}
	if resp.Error != "" {
		t.Fatalf("expect no error, got '%s'", resp.Error)
	}
}

func TestTimeoutPass(t *testing.T) {
	handler := Timeout(500 * time.Millisecond)(echoHandler)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp.Error != "" {
		t.Fatalf("expect no error, got '%s'", resp.Error)
	}
}

func TestTimeoutExceeded(t *testing.T) {
	handler := Timeout(50 * time.Millisecond)(slowHandler)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp.Error != "request timed out" {
		t.Fatalf("expect timeout error, got '%s'", resp.Error)
	}
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(1, 2)(echoHandler)
	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)

	for i := 0; i < 2; i++ {
		resp := handler(context.Background(), req)
		if resp.Error != "" {
			t.Fatalf("request %d should pass, got error: %s", i, resp.Error)
		}
	}

	resp := handler(context.Background(), req)
	if resp.Error != "rate limit exceeded" {
		t.Fatalf("request 3 should be rate limited, got: '%s'", resp.Error)
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	attempts := 0
	flaky := func(ctx context.Context, req *message.Envelope) *message.Envelope {
		attempts++
		if attempts < 3 {
			return message.NewError(req.ID, "connection refused")
		}
		return message.NewResponse(req.ID, message.Inline("ok"))
	}
	handler := Retry(5, time.Millisecond, testLogger())(flaky)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp.Error != "" {
		t.Fatalf("expect eventual success, got error: %s", resp.Error)
	}
	if attempts != 3 {
		t.Fatalf("expect 3 attempts, got %d", attempts)
	}
}

func TestRetryDoesNotRetryUserError(t *testing.T) {
	attempts := 0
	failing := func(ctx context.Context, req *message.Envelope) *message.Envelope {
		attempts++
		return message.NewError(req.ID, "boom: bad argument")
	}
	handler := Retry(5, time.Millisecond, testLogger())(failing)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp.Error != "boom: bad argument" {
		t.Fatalf("expect original error preserved, got '%s'", resp.Error)
	}
	if attempts != 1 {
		t.Fatalf("expect no retries for non-transient error, got %d attempts", attempts)
	}
}

func TestChain(t *testing.T) {
	chained := Chain(Logging(testLogger()), Timeout(500*time.Millisecond))
	handler := chained(echoHandler)

	req := message.NewRequest("1", message.TypeCall, []string{"add"}, nil)
	resp := handler(context.Background(), req)

	if resp == nil {
		t.Fatal("expect non-nil response")
	}
	if resp.Error != "" {
		t.Fatalf("expect no error, got '%s'", resp.Error)
	}
}

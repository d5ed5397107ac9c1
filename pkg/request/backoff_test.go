package request

import (
	"context"
	"testing"
	"time"
)

func TestProviderBackoff_ExponentialDelay(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		baseDelay time.Duration
		maxDelay  time.Duration
		wantMinMs int64
		wantMaxMs int64
	}{
		{"First failure", 1, 1 * time.Second, 60 * time.Second, 1000, 1200},
		{"Second failure", 2, 1 * time.Second, 60 * time.Second, 2000, 2400},
		{"Third failure", 3, 1 * time.Second, 60 * time.Second, 4000, 4800},
		{"Max cap hit", 10, 1 * time.Second, 60 * time.Second, 60000, 66000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewProviderBackoff(tt.baseDelay, tt.maxDelay)

			// Simulate failures
			for i := 0; i < tt.failures; i++ {
				b.RecordFailure("test-provider")
			}

			fc, nextAllowed := b.GetState("test-provider")
			if fc != tt.failures {
				t.Errorf("failureCount = %d, want %d", fc, tt.failures)
			}

			delay := time.Until(nextAllowed)
			delayMs := delay.Milliseconds()

			// Allow some tolerance for jitter and timing
			if delayMs < tt.wantMinMs || delayMs > tt.wantMaxMs {
				t.Errorf("delay = %dms, want between %dms and %dms", delayMs, tt.wantMinMs, tt.wantMaxMs)
			}
		})
	}
}

func TestProviderBackoff_GradualRecovery(t *testing.T) {
	b := NewProviderBackoff(1*time.Second, 60*time.Second)

	// Build up failures
	b.RecordFailure("provider")
	b.RecordFailure("provider")
	b.RecordFailure("provider")

	fc, _ := b.GetState("provider")
	if fc != 3 {
		t.Errorf("after 3 failures, count = %d, want 3", fc)
	}

	// Gradual recovery
	b.RecordSuccess("provider")
	fc, _ = b.GetState("provider")
	if fc != 2 {
		t.Errorf("after 1 success, count = %d, want 2", fc)
	}

	b.RecordSuccess("provider")
	b.RecordSuccess("provider")
	fc, _ = b.GetState("provider")
	if fc != 0 {
		t.Errorf("after full recovery, count = %d, want 0", fc)
	}
}

func TestProviderBackoff_IsolatedProviders(t *testing.T) {
	b := NewProviderBackoff(1*time.Second, 60*time.Second)

	b.RecordFailure("sim.primary")
	b.RecordFailure("sim.primary")

	fc1, _ := b.GetState("sim.primary")
	fc2, _ := b.GetState("sim.landing")

	if fc1 != 2 {
		t.Errorf("primary failures = %d, want 2", fc1)
	}
	if fc2 != 0 {
		t.Errorf("landing failures = %d, want 0 (isolated)", fc2)
	}
}

func TestProviderBackoff_ReadyAndWait(t *testing.T) {
	b := NewProviderBackoff(50*time.Millisecond, time.Second)
	if !b.Ready("report") {
		t.Error("unknown provider should be ready")
	}

	b.RecordFailure("report")
	if b.Ready("report") {
		t.Error("provider should not be ready right after a failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx, "report"); err == nil {
		t.Error("Wait should return the context error")
	}

	start := time.Now()
	if err := b.Wait(context.Background(), "report"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("Wait returned before the backoff elapsed")
	}
	if !b.Ready("report") {
		t.Error("provider should be ready after waiting")
	}

	b.Reset("report")
	if fc, _ := b.GetState("report"); fc != 0 {
		t.Errorf("Reset left failureCount = %d", fc)
	}
}

func TestProviderBackoff_WaitWakesOnCancel(t *testing.T) {
	b := NewProviderBackoff(time.Minute, time.Minute)
	b.RecordFailure("report")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := b.Wait(ctx, "report"); err == nil {
		t.Error("Wait should return the context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait blocked for %v after cancellation", elapsed)
	}
}

package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: CheckLogin = %v", i, err)
		}
		if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: IncrementLogin = %v", i, err)
		}
	}

	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("4th increment = %v, want ErrRateLimited", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check after exhaustion = %v, want ErrRateLimited", err)
	}

	// Another identifier is unaffected.
	if err := limiter.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("CheckLogin(bob) = %v", err)
	}
}

func TestLoginBudgetPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      2,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	// Different identifiers from the same IP share the IP budget.
	for i, user := range []string{"alice", "bob"} {
		if err := limiter.IncrementLogin(ctx, user, "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: IncrementLogin = %v", i, err)
		}
	}
	if err := limiter.IncrementLogin(ctx, "carol", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("3rd IP attempt = %v, want ErrRateLimited", err)
	}

	if err := limiter.CheckLogin(ctx, "dave", "10.0.0.2"); err != nil {
		t.Fatalf("other IP = %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("IncrementLogin = %v", err)
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("2nd increment = %v, want ErrRateLimited", err)
	}

	if err := limiter.ResetLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("ResetLogin = %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("CheckLogin after reset = %v", err)
	}

	attempts, err := limiter.GetLoginAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("GetLoginAttempts = %v", err)
	}
	if attempts != 0 {
		t.Fatalf("attempts = %d, want 0", attempts)
	}
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("IncrementLogin = %v", err)
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("2nd increment = %v, want ErrRateLimited", err)
	}

	mr.FastForward(time.Minute + time.Second)

	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("CheckLogin after window = %v", err)
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("IncrementLogin after window = %v", err)
	}
}

func TestRedisDownSurfacesBackendError(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	mr.Close()

	err := limiter.IncrementLogin(context.Background(), "alice", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("IncrementLogin with dead backend = %v, want ErrRedisUnavailable", err)
	}
}

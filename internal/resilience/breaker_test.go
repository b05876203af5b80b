package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("service unavailable")

func TestClosedAllowsCalls(t *testing.T) {
	b := New(3, time.Second)
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := New(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Do(func() error { return errTest })
	}

	if !b.Tripped() {
		t.Fatal("expected breaker tripped")
	}
	err := b.Do(func() error { return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(3, time.Second)

	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })

	if b.Tripped() {
		t.Fatal("breaker must not trip when failures are not consecutive")
	}
}

func TestProbeAfterCooldown(t *testing.T) {
	now := time.Now()
	b := New(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return errTest })
	}

	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen within cooldown, got %v", err)
	}

	now = now.Add(2 * time.Second)

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected probe to run, got %v", err)
	}
	if !called {
		t.Fatal("expected probe fn to be called")
	}
	if b.Tripped() {
		t.Fatal("expected breaker closed after successful probe")
	}
}

func TestFailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := New(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Do(func() error { return errTest })
	}
	now = now.Add(2 * time.Second)

	if err := b.Do(func() error { return errTest }); !errors.Is(err, errTest) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if !b.Tripped() {
		t.Fatal("expected breaker re-opened after failed probe")
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen after failed probe, got %v", err)
	}
}

package auth

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToMax(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("attempt over the limit should be rejected")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if !l.Allow("1.1.1.1") {
		t.Fatal("first attempt for key A should be allowed")
	}
	if !l.Allow("2.2.2.2") {
		t.Error("first attempt for key B should be allowed")
	}
	if l.Allow("1.1.1.1") {
		t.Error("second attempt for key A should be rejected")
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }

	l.Allow("ip")
	l.Allow("ip")
	if l.Allow("ip") {
		t.Fatal("third attempt inside the window should be rejected")
	}

	// Past the window, old attempts fall away.
	current = current.Add(61 * time.Second)
	if !l.Allow("ip") {
		t.Error("attempt after the window expired should be allowed")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		if !l.Allow("ip") {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

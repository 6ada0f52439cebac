package redis

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateWindowsCacheKeyBucketsToMinute(t *testing.T) {
	base := time.Date(2026, 2, 7, 12, 30, 0, 0, time.UTC)

	a := GenerateWindowsCacheKey("node-a", 5, 24, base.Add(5*time.Second))
	b := GenerateWindowsCacheKey("node-a", 5, 24, base.Add(55*time.Second))
	c := GenerateWindowsCacheKey("node-a", 5, 24, base.Add(65*time.Second))

	if a != b {
		t.Fatalf("keys within one minute must match: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("keys in different minutes must differ: %q", a)
	}
	if other := GenerateWindowsCacheKey("node-a", 10, 24, base); other == a {
		t.Fatal("window length must be part of the key")
	}
}

func TestWindowsCacheKeyIsScopedToInstance(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 30, 0, 0, time.UTC)

	a := GenerateWindowsCacheKey("node-a", 5, 24, now)
	b := GenerateWindowsCacheKey("node-b", 5, 24, now)
	if a == b {
		t.Fatalf("instances must not share cache keys: %q", a)
	}

	pattern := WindowsCachePattern("node-a")
	prefix := strings.TrimSuffix(pattern, "*")
	if !strings.HasPrefix(a, prefix) {
		t.Fatalf("pattern %q must match own key %q", pattern, a)
	}
	if strings.HasPrefix(b, prefix) {
		t.Fatalf("pattern %q must not match foreign key %q", pattern, b)
	}
}

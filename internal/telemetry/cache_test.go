package telemetry_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

func TestTTLCacheGetSet(t *testing.T) {
	cache := telemetry.NewTTLCache[string]("reports", 10, time.Minute)

	if _, ok := cache.Get("42"); ok {
		t.Error("Get on empty cache returned a value")
	}

	cache.Set("42", "report body")
	got, ok := cache.Get("42")
	if !ok || got != "report body" {
		t.Errorf("Get = %q, %v", got, ok)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HitRate != "50.0%" {
		t.Errorf("HitRate = %q, want 50.0%%", stats.HitRate)
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := telemetry.NewTTLCache[string]("reports", 10, 10*time.Millisecond)

	cache.Set("42", "report body")
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("42"); ok {
		t.Error("expired entry still served")
	}
	if stats := cache.Stats(); stats.Size != 0 {
		t.Errorf("expired entry not removed on read: %+v", stats)
	}
}

func TestTTLCacheEviction(t *testing.T) {
	cache := telemetry.NewTTLCache[string]("reports", 3, time.Minute)

	for i := 0; i < 4; i++ {
		cache.Set(fmt.Sprintf("key%d", i), "body")
		// Distinct insertion times so eviction order is deterministic.
		time.Sleep(2 * time.Millisecond)
	}

	if stats := cache.Stats(); stats.Size != 3 {
		t.Errorf("Size = %d, want capped at 3", stats.Size)
	}
	if _, ok := cache.Get("key0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := cache.Get("key3"); !ok {
		t.Error("newest entry was evicted")
	}
}

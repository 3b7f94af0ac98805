package cache

import (
	"context"
	"testing"
	"time"
)

type record struct {
	Score float64 `json:"score"`
	Notes []string
}

func TestMemoryStoreJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := GetJSON[record](ctx, s, "k"); ok || err != nil {
		t.Fatalf("Expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := SetJSON(ctx, s, "k", record{Score: 91, Notes: []string{"crop"}}, 0); err != nil {
		t.Fatal(err)
	}
	got, ok, err := GetJSON[record](ctx, s, "k")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Score != 91 || len(got.Notes) != 1 {
		t.Errorf("Unexpected record %+v", got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("Expected hit before expiry")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Expected miss at expiry")
	}
	if s.Len() != 0 {
		t.Errorf("Expected expired entry to be evicted, got %d", s.Len())
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v := []byte("abc")
	s.Set(ctx, "k", v, 0)
	v[0] = 'x'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Expected stored copy, got %q", got)
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "k", []byte("{not json"), 0)
	if _, _, err := GetJSON[record](ctx, s, "k"); err == nil {
		t.Error("Expected decode error")
	}
}

func TestKey(t *testing.T) {
	if got := Key("pg:", "abc", "etsy", "small_jewelry"); got != "pg:abc:etsy:small_jewelry" {
		t.Errorf("Unexpected key %q", got)
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	s := NewRedisStore("127.0.0.1:1")
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		t.Skip("something is listening on 127.0.0.1:1")
	}
	if _, ok, err := s.Get(ctx, "k"); err == nil || ok {
		t.Errorf("Expected error from unreachable redis, got ok=%v err=%v", ok, err)
	}
}

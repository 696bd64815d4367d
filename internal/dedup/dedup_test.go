package dedup

import (
	"context"
	"testing"
	"time"
)

func TestMemory_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })

	if ok, _ := m.Claim(ctx, "m1"); !ok {
		t.Fatalf("first claim refused")
	}
	if ok, _ := m.Claim(ctx, "m1"); ok {
		t.Fatalf("duplicate claimed")
	}
	if ok, _ := m.Claim(ctx, "m2"); !ok {
		t.Fatalf("other id refused")
	}

	now = now.Add(m.ttl)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	if ok, _ := m.Claim(ctx, "m1"); !ok {
		t.Fatalf("expired id should be claimable again")
	}
}

func TestMemory_Reply(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, ok, _ := m.Reply(ctx, "m1"); ok {
		t.Fatalf("reply for unknown id")
	}
	_ = m.SaveReply(ctx, "m1", []byte("ignored"))
	if _, ok, _ := m.Reply(ctx, "m1"); ok {
		t.Fatalf("reply saved without claim")
	}

	_, _ = m.Claim(ctx, "m1")
	body := []byte(`{"reply":"hola"}`)
	_ = m.SaveReply(ctx, "m1", body)
	body[0] = 'x'
	got, ok, err := m.Reply(ctx, "m1")
	if err != nil || !ok || string(got) != `{"reply":"hola"}` {
		t.Fatalf("reply = %q %v %v", got, ok, err)
	}
}

func TestMemory_ReleaseAllowsRedelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if ok, _ := m.Claim(ctx, "m1"); !ok {
		t.Fatalf("first claim refused")
	}
	if err := m.Release(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.Claim(ctx, "m1"); !ok {
		t.Fatalf("released id should be claimable again")
	}
}

package ratelimit

import (
	"testing"
	"time"
)

func TestBucketExhaustsAndRefills(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	b := New(3)
	b.lastTime = clock
	b.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("request %d denied", i)
		}
	}
	if b.Allow() {
		t.Fatal("expected bucket to be empty")
	}

	clock = clock.Add(time.Second / 2)
	if !b.Allow() {
		t.Fatal("expected one token after refill")
	}
	if b.Allow() {
		t.Fatal("expected bucket to be empty again")
	}

	clock = clock.Add(time.Hour)
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatal("refill should cap at max")
		}
	}
	if b.Allow() {
		t.Fatal("bucket exceeded max")
	}
}

func TestDisabledBucketAllowsAll(t *testing.T) {
	b := New(0)
	if b != nil {
		t.Fatal("expected nil bucket for zero rps")
	}
	for i := 0; i < 1000; i++ {
		if !b.Allow() {
			t.Fatal("nil bucket denied a request")
		}
	}
}

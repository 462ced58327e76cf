// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"fmt"
	"testing"
	"time"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
)

var (
	epoch     = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	requester = ref.MustParseUserID("@alice-new:example.org")
	oldActor  = ref.MustParseUserID("@alice:example.org")
	vaultRoom = ref.MustParseRoomID("!recovery:example.org")
)

func TestPendingTakeConsumes(t *testing.T) {
	cache := NewPendingCache(clock.Fake(epoch), 0, 0)

	put := cache.Put(requester, oldActor, vaultRoom)
	if !put.Deadline.Equal(epoch.Add(DefaultWindow)) {
		t.Errorf("Deadline = %v, want %v", put.Deadline, epoch.Add(DefaultWindow))
	}

	got, reason := cache.Take(requester)
	if reason != "" {
		t.Fatalf("Take reason = %q, want none", reason)
	}
	if got != put {
		t.Errorf("Take = %+v, want %+v", got, put)
	}
	if _, reason := cache.Take(requester); reason != ReasonNoPending {
		t.Errorf("second Take reason = %q, want no_pending", reason)
	}
}

func TestPendingLazyExpiry(t *testing.T) {
	fake := clock.Fake(epoch)
	cache := NewPendingCache(fake, time.Minute, 0)
	cache.Put(requester, oldActor, vaultRoom)

	fake.Advance(time.Minute)
	if _, ok := cache.Peek(requester); !ok {
		t.Fatal("record expired at exactly its deadline")
	}

	fake.Advance(time.Millisecond)
	if _, ok := cache.Peek(requester); ok {
		t.Error("Peek returned an expired record")
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1 (expiry is lazy)", cache.Len())
	}
	if _, reason := cache.Take(requester); reason != ReasonExpired {
		t.Errorf("Take reason = %q, want expired", reason)
	}
	if cache.Len() != 0 {
		t.Errorf("Len after Take = %d, want 0", cache.Len())
	}
}

func TestPendingPutRestartsWindow(t *testing.T) {
	fake := clock.Fake(epoch)
	cache := NewPendingCache(fake, time.Minute, 0)
	cache.Put(requester, oldActor, vaultRoom)

	fake.Advance(50 * time.Second)
	cache.Put(requester, oldActor, vaultRoom)
	fake.Advance(50 * time.Second)

	if _, reason := cache.Take(requester); reason != "" {
		t.Errorf("Take after restart reason = %q, want none", reason)
	}
}

func TestPendingBounded(t *testing.T) {
	fake := clock.Fake(epoch)
	cache := NewPendingCache(fake, time.Hour, 3)

	users := make([]ref.UserID, 4)
	for i := range users {
		users[i] = ref.MustParseUserID(fmt.Sprintf("@user%d:example.org", i))
		cache.Put(users[i], oldActor, vaultRoom)
		fake.Advance(time.Second)
	}

	if cache.Len() != 3 {
		t.Fatalf("Len = %d, want 3", cache.Len())
	}
	if _, ok := cache.Peek(users[0]); ok {
		t.Error("oldest record survived eviction")
	}
	for _, user := range users[1:] {
		if _, ok := cache.Peek(user); !ok {
			t.Errorf("record for %s evicted", user)
		}
	}
}

func TestPendingSweepsExpiredBeforeEvicting(t *testing.T) {
	fake := clock.Fake(epoch)
	cache := NewPendingCache(fake, time.Minute, 2)

	stale := ref.MustParseUserID("@stale:example.org")
	cache.Put(stale, oldActor, vaultRoom)
	fake.Advance(30 * time.Second)
	live := ref.MustParseUserID("@live:example.org")
	cache.Put(live, oldActor, vaultRoom)

	fake.Advance(45 * time.Second)
	cache.Put(requester, oldActor, vaultRoom)

	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}
	if _, ok := cache.Peek(live); !ok {
		t.Error("live record evicted while an expired one was available")
	}
}

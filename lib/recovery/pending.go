// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"sync"
	"time"

	"github.com/clovenbradshaw-ctrl/khora/lib/clock"
	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
)

const (
	// DefaultWindow is how long a pending recovery accepts a phrase.
	DefaultWindow = 5 * time.Minute

	// DefaultMaxPending bounds the number of concurrent pending
	// recoveries held in memory.
	DefaultMaxPending = 1024
)

// Pending is an open recovery attempt by Requester to take over
// OldActor's membership, verified against the phrase enrolled in
// TargetRoom.
type Pending struct {
	Requester  ref.UserID
	OldActor   ref.UserID
	TargetRoom ref.RoomID
	Created    time.Time
	Deadline   time.Time
}

// PendingCache holds at most one pending recovery per requester.
// Deadlines are enforced when a record is taken, and expired records
// are swept when room is needed. When the cache is full of live
// records the oldest is evicted.
type PendingCache struct {
	clock    clock.Clock
	window   time.Duration
	capacity int

	mu      sync.Mutex
	entries map[ref.UserID]Pending
}

// NewPendingCache creates a cache. Non-positive window or capacity
// select DefaultWindow and DefaultMaxPending.
func NewPendingCache(c clock.Clock, window time.Duration, capacity int) *PendingCache {
	if c == nil {
		c = clock.Real()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultMaxPending
	}
	return &PendingCache{
		clock:    c,
		window:   window,
		capacity: capacity,
		entries:  make(map[ref.UserID]Pending),
	}
}

// Put opens a pending recovery for requester, replacing any existing
// one and restarting the window.
func (c *PendingCache) Put(requester, oldActor ref.UserID, targetRoom ref.RoomID) Pending {
	now := c.clock.Now()
	pending := Pending{
		Requester:  requester,
		OldActor:   oldActor,
		TargetRoom: targetRoom,
		Created:    now,
		Deadline:   now.Add(c.window),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[requester]; !exists && len(c.entries) >= c.capacity {
		c.sweepLocked(now)
		if len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
	}
	c.entries[requester] = pending
	return pending
}

// Take removes and returns the pending recovery for requester. The
// reason is ReasonNoPending when none exists and ReasonExpired when
// its deadline has passed; in both cases the record is gone afterward.
func (c *PendingCache) Take(requester ref.UserID) (Pending, Reason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending, ok := c.entries[requester]
	if !ok {
		return Pending{}, ReasonNoPending
	}
	delete(c.entries, requester)
	if c.clock.Now().After(pending.Deadline) {
		return Pending{}, ReasonExpired
	}
	return pending, ""
}

// Peek returns the live pending recovery for requester without
// consuming it.
func (c *PendingCache) Peek(requester ref.UserID) (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, ok := c.entries[requester]
	if !ok || c.clock.Now().After(pending.Deadline) {
		return Pending{}, false
	}
	return pending, true
}

// Len returns the number of records held, including expired records
// not yet swept.
func (c *PendingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PendingCache) sweepLocked(now time.Time) {
	for requester, pending := range c.entries {
		if now.After(pending.Deadline) {
			delete(c.entries, requester)
		}
	}
}

func (c *PendingCache) evictOldestLocked() {
	var (
		oldest    ref.UserID
		oldestAt  time.Time
		haveFirst bool
	)
	for requester, pending := range c.entries {
		if !haveFirst || pending.Created.Before(oldestAt) {
			oldest, oldestAt, haveFirst = requester, pending.Created, true
		}
	}
	if haveFirst {
		delete(c.entries, oldest)
	}
}

// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import "sync"

// Registry holds outstanding challenges by ID and validates them one at
// a time. Terminal challenges are removed the next time the registry
// is touched, so a caller that never comes back does not pin memory
// beyond the next Issue or Verify.
type Registry struct {
	engine *Engine

	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewRegistry creates an empty registry issuing through engine.
func NewRegistry(engine *Engine) *Registry {
	return &Registry{
		engine:     engine,
		challenges: make(map[string]*Challenge),
	}
}

// IssueEmail creates an email challenge and tracks it. The returned
// challenge is a copy; the registry owns the tracked instance.
func (r *Registry) IssueEmail(address string) (Challenge, string, error) {
	challenge, code, err := r.engine.CreateEmail(address)
	if err != nil {
		return Challenge{}, "", err
	}
	return r.track(challenge), code, nil
}

// IssueAccount creates an account challenge and tracks it.
func (r *Registry) IssueAccount(actorID string) (Challenge, string, error) {
	challenge, code, err := r.engine.CreateAccount(actorID)
	if err != nil {
		return Challenge{}, "", err
	}
	return r.track(challenge), code, nil
}

func (r *Registry) track(challenge *Challenge) Challenge {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked()
	r.challenges[challenge.ID] = challenge
	return *challenge
}

// Verify validates code against the tracked challenge with the given
// ID. The attempt increment and the comparison happen under one lock.
// An ID the registry does not hold yields ReasonUnknown.
func (r *Registry) Verify(id, code string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	challenge, ok := r.challenges[id]
	if !ok {
		return reject(ReasonUnknown)
	}
	result := r.engine.Validate(challenge, code)
	if challenge.Status.Terminal() {
		delete(r.challenges, id)
	}
	r.reapLocked()
	return result
}

// Get returns a copy of the tracked challenge.
func (r *Registry) Get(id string) (Challenge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	challenge, ok := r.challenges[id]
	if !ok {
		return Challenge{}, false
	}
	return *challenge, true
}

// Len returns the number of tracked challenges.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.challenges)
}

// reapLocked drops challenges that can no longer succeed. Caller must
// hold r.mu.
func (r *Registry) reapLocked() {
	now := r.engine.now()
	limit := r.engine.maxAttempts()
	for id, challenge := range r.challenges {
		if challenge.Status.Terminal() || challenge.Attempts >= limit || now.After(challenge.Expires) {
			delete(r.challenges, id)
		}
	}
}

// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall clock for testability. Production code
// injects Real(); tests inject Fake() and move time explicitly.
//
// Everything in Khora that is time-boxed (challenge expiry, pending
// recovery windows) evaluates deadlines lazily against Now at the
// moment of the check. There are no background timers, so the
// interface only needs Now.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

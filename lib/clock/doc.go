// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Add a Clock field to structs that compare against deadlines:
//
//	engine := &challenge.Engine{Clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine := &challenge.Engine{Clock: c}
//	c.Advance(11 * time.Minute) // challenge is now expired
package clock

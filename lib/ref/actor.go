// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "strings"

// UnknownHomeserver is returned by ParseHomeserver when the input does
// not contain a server part.
const UnknownHomeserver = "unknown"

// ParseHomeserver returns the portion of a Matrix identifier after its
// last ':' ("@alice:matrix.org" and "!room:matrix.org" both yield
// "matrix.org"). Empty input, or input with no ':', yields
// UnknownHomeserver. No other validation is performed; use this for
// grouping and display, not for authorization.
func ParseHomeserver(actorID string) string {
	index := strings.LastIndexByte(actorID, ':')
	if index < 0 {
		return UnknownHomeserver
	}
	return actorID[index+1:]
}

// IsValidActorID reports whether id has the shape @localpart:domain
// with a non-empty localpart and a plausible server name.
func IsValidActorID(id string) bool {
	_, _, err := parseMatrixID(id)
	return err == nil
}

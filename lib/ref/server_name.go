// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// ServerName is a validated Matrix homeserver name ("matrix.org",
// "example.com:8448"), the part of a user or room ID after the first
// colon.
type ServerName struct {
	name string
}

// ParseServerName validates and wraps a raw server name.
func ParseServerName(raw string) (ServerName, error) {
	if err := validateServer(raw); err != nil {
		return ServerName{}, err
	}
	return ServerName{name: raw}, nil
}

// newServerName wraps a server name that has already been validated.
func newServerName(name string) ServerName {
	return ServerName{name: name}
}

// String returns the server name.
func (s ServerName) String() string { return s.name }

// IsZero reports whether the ServerName is the zero value.
func (s ServerName) IsZero() bool { return s.name == "" }

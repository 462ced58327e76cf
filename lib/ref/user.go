// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// UserID is a validated Matrix user ID (e.g., "@alice:matrix.org").
// Khora calls the author of an operation its actor; actors are always
// user IDs.
//
// UserID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type UserID struct {
	id string
}

// ParseUserID validates and wraps a raw Matrix user ID string.
// Returns an error if the string is empty, doesn't start with '@',
// has an empty localpart, or is missing the ':server' suffix.
func ParseUserID(raw string) (UserID, error) {
	_, _, err := parseMatrixID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID{id: raw}, nil
}

// MustParseUserID is like ParseUserID but panics on error. Use in tests
// and static initialization where the input is known-valid.
func MustParseUserID(raw string) UserID {
	u, err := ParseUserID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseUserID(%q): %v", raw, err))
	}
	return u
}

// String returns the full user ID string.
func (u UserID) String() string { return u.id }

// IsZero reports whether the UserID is the zero value (uninitialized).
func (u UserID) IsZero() bool { return u.id == "" }

// Localpart returns the portion between '@' and the first ':'.
// Panics if called on a zero-value UserID.
func (u UserID) Localpart() string {
	localpart, _ := u.split()
	return localpart
}

// Server returns the server name portion of the user ID. Panics if
// called on a zero-value UserID.
func (u UserID) Server() ServerName {
	_, server := u.split()
	return newServerName(server)
}

func (u UserID) split() (localpart, server string) {
	if u.id == "" {
		panic("ref: UserID accessor called on zero value")
	}
	localpart, server, err := parseMatrixID(u.id)
	if err != nil {
		// UserID was validated at construction.
		panic(fmt.Sprintf("ref: internal error parsing %q: %v", u.id, err))
	}
	return localpart, server
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (u *UserID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

// Package fieldpath composes and decomposes the dot-separated paths
// that address fields inside a vault frame ("vault.fields.name"), and
// the scope-qualified composite keys built from them.
//
// All functions are pure and safe for concurrent use.
package fieldpath

import "strings"

const (
	// Separator joins path segments.
	Separator = "."

	// ScopeSeparator joins a scope identifier (usually a room ID) to a
	// path in a composite key.
	ScopeSeparator = "::"

	// RootMarker stands in for the path in a composite key when no path
	// is given, so every scope has at least one addressable key.
	RootMarker = "_root"

	// DesignationSuffix is appended to a field key to form the derived
	// key that DES operations write to.
	DesignationSuffix = "designation"
)

// Dot joins the non-empty segments with ".". Empty segments are dropped,
// not converted to placeholders:
//
//	Dot("vault", "fields", "name") == "vault.fields.name"
//	Dot("", "fields", "", "dob")   == "fields.dob"
func Dot(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment != "" {
			kept = append(kept, segment)
		}
	}
	return strings.Join(kept, Separator)
}

// TargetField returns the final segment of path. The second return is
// false for an empty path, which is how callers holding an optional
// path distinguish "no target" from a real field name.
func TargetField(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	index := strings.LastIndex(path, Separator)
	return path[index+1:], true
}

// Derived returns the derived key for field with the given suffix
// ("name" + "designation" -> "name.designation").
func Derived(field, suffix string) string {
	return field + Separator + suffix
}

// DesignationKey returns the derived key a DES operation writes for
// field.
func DesignationKey(field string) string {
	return Derived(field, DesignationSuffix)
}

// CompositeKey joins scope and path with "::". An empty path becomes
// RootMarker:
//
//	CompositeKey("!room1:test", "") == "!room1:test::_root"
func CompositeKey(scope, path string) string {
	if path == "" {
		path = RootMarker
	}
	return scope + ScopeSeparator + path
}

// SplitCompositeKey reverses CompositeKey, splitting at the last "::"
// since server names may be IPv6 literals. A RootMarker path is
// returned as the empty string. The final return is false when key
// contains no scope separator.
func SplitCompositeKey(key string) (scope, path string, ok bool) {
	index := strings.LastIndex(key, ScopeSeparator)
	if index < 0 {
		return "", "", false
	}
	scope = key[:index]
	path = key[index+len(ScopeSeparator):]
	if path == RootMarker {
		path = ""
	}
	return scope, path, true
}

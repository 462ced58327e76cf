// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"strings"
	"unicode"
)

// IsValidEmailFormat reports whether s has the shape local@domain.tld:
// exactly one '@', a non-empty local part, and a domain of at least two
// non-empty dot-separated labels. Whitespace anywhere is rejected.
// This is a shape check only; deliverability is proven by the
// challenge itself.
func IsValidEmailFormat(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	local, domain, found := strings.Cut(s, "@")
	if !found || local == "" || strings.Contains(domain, "@") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
	}
	return true
}

// ExtractDomain returns the lowercased domain of a well-formed email
// address. The boolean is false for malformed input.
func ExtractDomain(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if !IsValidEmailFormat(email) {
		return "", false
	}
	return strings.ToLower(email[strings.IndexByte(email, '@')+1:]), true
}

// DomainMatches reports whether the email's domain is in allowlist,
// compared case-insensitively. An empty allowlist matches any domain
// of a well-formed address; a malformed address never matches.
func DomainMatches(email string, allowlist []string) bool {
	domain, ok := ExtractDomain(email)
	if !ok {
		return false
	}
	if len(allowlist) == 0 {
		return true
	}
	for _, allowed := range allowlist {
		if strings.EqualFold(strings.TrimSpace(allowed), domain) {
			return true
		}
	}
	return false
}

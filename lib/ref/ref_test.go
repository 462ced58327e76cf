// Copyright 2026 The Khora Authors
// SPDX-License-Identifier: Apache-2.0

package ref_test

import (
	"encoding/json"
	"testing"

	"github.com/clovenbradshaw-ctrl/khora/lib/ref"
)

func TestParseHomeserver(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"@alice:matrix.org", "matrix.org"},
		{"!room:example.com", "example.com"},
		{"@bob:example.com:8448", "8448"},
		{"nocolon", ref.UnknownHomeserver},
		{"", ref.UnknownHomeserver},
	}
	for _, tt := range tests {
		if got := ref.ParseHomeserver(tt.input); got != tt.want {
			t.Errorf("ParseHomeserver(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsValidActorID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"@alice:matrix.org", true},
		{"@a:b", true},
		{"@bob:example.com:8448", true},
		{"alice:matrix.org", false},
		{"@alice", false},
		{"@alice:", false},
		{"@:matrix.org", false},
		{"!room:matrix.org", false},
		{"@alice:bad server", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ref.IsValidActorID(tt.input); got != tt.want {
			t.Errorf("IsValidActorID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseUserID(t *testing.T) {
	user, err := ref.ParseUserID("@alice:matrix.org")
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	if user.Localpart() != "alice" {
		t.Errorf("Localpart() = %q, want %q", user.Localpart(), "alice")
	}
	if user.Server().String() != "matrix.org" {
		t.Errorf("Server() = %q, want %q", user.Server(), "matrix.org")
	}
	if user.IsZero() {
		t.Error("IsZero() = true for parsed user")
	}

	if _, err := ref.ParseUserID("alice:matrix.org"); err == nil {
		t.Error("ParseUserID accepted an ID without '@'")
	}
}

func TestParseRoomID(t *testing.T) {
	room, err := ref.ParseRoomID("!room1:test")
	if err != nil {
		t.Fatalf("ParseRoomID: %v", err)
	}
	if room.String() != "!room1:test" {
		t.Errorf("String() = %q", room.String())
	}
	for _, bad := range []string{"", "room1:test", "!room1", "!:test", "!room1:"} {
		if _, err := ref.ParseRoomID(bad); err == nil {
			t.Errorf("ParseRoomID(%q) succeeded, want error", bad)
		}
	}
}

func TestUserIDJSONRoundTrip(t *testing.T) {
	type record struct {
		Actor ref.UserID `json:"actor"`
		Room  ref.RoomID `json:"room"`
	}
	original := record{
		Actor: ref.MustParseUserID("@alice:matrix.org"),
		Room:  ref.MustParseRoomID("!vault:matrix.org"),
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"actor":"@alice:matrix.org","room":"!vault:matrix.org"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}

	if err := json.Unmarshal([]byte(`{"actor":"alice"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted an invalid actor")
	}
}

func TestParseServerName(t *testing.T) {
	if _, err := ref.ParseServerName("matrix.org"); err != nil {
		t.Errorf("ParseServerName(matrix.org): %v", err)
	}
	for _, bad := range []string{"", "a b", "@host", "#host"} {
		if _, err := ref.ParseServerName(bad); err == nil {
			t.Errorf("ParseServerName(%q) succeeded, want error", bad)
		}
	}
}

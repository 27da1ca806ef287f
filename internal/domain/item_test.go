package domain

import (
	"testing"
	"time"
)

func TestStarID(t *testing.T) {
	t.Parallel()

	if got := StarID("M1", "R1"); got != "M1_R1" {
		t.Errorf("StarID = %q, want M1_R1", got)
	}
}

func TestNewContent_Variants(t *testing.T) {
	t.Parallel()

	f := Fields{Name: "Park Cleanup", Category: "Volunteering"}

	ev := NewContent(ItemKindEvent, f, "2026-05-01")
	if ev.Kind() != ItemKindEvent {
		t.Fatalf("kind = %s, want event", ev.Kind())
	}
	if EventDateOf(ev) != "2026-05-01" {
		t.Errorf("event date = %q", EventDateOf(ev))
	}

	res := NewContent(ItemKindResource, f, "2026-05-01")
	if res.Kind() != ItemKindResource {
		t.Fatalf("kind = %s, want resource", res.Kind())
	}
	if EventDateOf(res) != "" {
		t.Errorf("resource should carry no event date, got %q", EventDateOf(res))
	}
	if res.Base().Name != "Park Cleanup" {
		t.Errorf("base name = %q", res.Base().Name)
	}
}

func TestModerator_IsLeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  Moderator
		want bool
	}{
		{"leader", Moderator{UID: "M1", Role: UserRoleLeader}, true},
		{"resident", Moderator{UID: "U1", Role: UserRoleResident}, false},
		{"leader without uid", Moderator{Role: UserRoleLeader}, false},
		{"unknown role", Moderator{UID: "X", Role: "admin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.mod.IsLeader(); got != tt.want {
				t.Errorf("IsLeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseEventDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-03-14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"2026-03-14T18:30", time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC), true},
		{"2026-03-14T18:30:00Z", time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC), true},
		{"Mar 14, 2026 • 6:30 PM", time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC), true},
		{"March 14, 2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), true},
		{"sometime soon", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseEventDate(tt.in, time.UTC)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseEventDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

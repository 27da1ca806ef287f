package domain

// RosterEntry is a registered user as seen by the moderation pipeline.
type RosterEntry struct {
	UID   string
	Email string
	Role  UserRole
}

// Moderator is the acting identity passed into every moderation operation.
type Moderator struct {
	UID   string
	Email string
	Role  UserRole
}

// IsLeader reports whether the moderator may perform moderation writes.
func (m Moderator) IsLeader() bool { return m.UID != "" && m.Role.IsLeader() }

// Moderator returns the acting identity for this roster entry.
func (r RosterEntry) Moderator() Moderator {
	return Moderator{UID: r.UID, Email: r.Email, Role: r.Role}
}

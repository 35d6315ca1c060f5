package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Source records where an effective permission came from.
type Source string

const (
	SourceNone   Source = "none"
	SourceRole   Source = "role"
	SourceDirect Source = "direct"
)

// RoleAssignment is one role held by a user. Deactivation is a soft flag;
// inactive assignments contribute nothing to the effective set.
type RoleAssignment struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       Role       `json:"role"`
	Active     bool       `json:"active"`
	AssignedBy uuid.UUID  `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Grant is a direct per-user permission grant with its audit trail.
type Grant struct {
	UserID     uuid.UUID  `json:"user_id"`
	Permission Permission `json:"permission"`
	Reason     string     `json:"reason"`
	GrantedBy  uuid.UUID  `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
}

// EffectiveState is the resolved tri-state view of one permission for one
// user. Role-sourced permissions are not independently revocable: the UI
// must route their removal through role management.
type EffectiveState struct {
	Permission Permission `json:"permission"`
	Granted    bool       `json:"granted"`
	Source     Source     `json:"source"`
	GrantedAt  *time.Time `json:"granted_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Revocable  bool       `json:"revocable"`
}

// Resolve merges active role defaults with direct grants into one state per
// known permission. Every permission starts at none, role defaults mark it
// role-sourced, and direct grants override with their timestamp and reason.
func Resolve(assignments []RoleAssignment, grants []Grant) map[Permission]EffectiveState {
	states := make(map[Permission]EffectiveState, len(AllPermissions()))
	for _, p := range AllPermissions() {
		states[p] = EffectiveState{Permission: p, Source: SourceNone}
	}

	for _, a := range assignments {
		if !a.Active {
			continue
		}
		for _, p := range DefaultPermissions(a.Role) {
			states[p] = EffectiveState{
				Permission: p,
				Granted:    true,
				Source:     SourceRole,
			}
		}
	}

	for _, g := range grants {
		if !g.Permission.Valid() {
			continue
		}
		grantedAt := g.GrantedAt
		states[g.Permission] = EffectiveState{
			Permission: g.Permission,
			Granted:    true,
			Source:     SourceDirect,
			GrantedAt:  &grantedAt,
			Reason:     g.Reason,
			Revocable:  true,
		}
	}

	return states
}

// EffectiveList returns the resolved states in stable permission order,
// which is what the console renders.
func EffectiveList(assignments []RoleAssignment, grants []Grant) []EffectiveState {
	states := Resolve(assignments, grants)
	out := make([]EffectiveState, 0, len(states))
	for _, p := range AllPermissions() {
		out = append(out, states[p])
	}
	return out
}

// Has reports whether the resolved set grants the permission.
func Has(states map[Permission]EffectiveState, p Permission) bool {
	return states[p].Granted
}

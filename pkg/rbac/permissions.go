// Package rbac models roles, permissions and the effective-permission
// resolution used by the admin console. Permissions arrive from two inputs:
// role defaults (implicit, revoked only by removing the role) and direct
// per-user grants (explicit, individually revocable).
package rbac

import "sort"

// Permission is the closed set of console capabilities.
type Permission string

const (
	PermApproveUsers      Permission = "users.approve"
	PermManageRoles       Permission = "roles.manage"
	PermManageDepartments Permission = "departments.manage"
	PermManageStaff       Permission = "staff.manage"
	PermViewHealth        Permission = "health.view"
	PermManageHealth      Permission = "health.manage"
	PermSendMessages      Permission = "chat.send"
	PermModerateChat      Permission = "chat.moderate"
	PermUploadMedia       Permission = "media.upload"
)

// AllPermissions returns every known permission in stable order.
func AllPermissions() []Permission {
	return []Permission{
		PermApproveUsers,
		PermManageRoles,
		PermManageDepartments,
		PermManageStaff,
		PermViewHealth,
		PermManageHealth,
		PermSendMessages,
		PermModerateChat,
		PermUploadMedia,
	}
}

func (p Permission) Valid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// Role is the closed set of staff roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoach   Role = "coach"
	RoleMedical Role = "medical"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RoleMedical, RoleStaff:
		return true
	}
	return false
}

// roleDefaults maps each role to its fixed default permission set.
var roleDefaults = map[Role][]Permission{
	RoleAdmin: {
		PermApproveUsers,
		PermManageRoles,
		PermManageDepartments,
		PermManageStaff,
		PermViewHealth,
		PermManageHealth,
		PermSendMessages,
		PermModerateChat,
		PermUploadMedia,
	},
	RoleCoach: {
		PermManageStaff,
		PermViewHealth,
		PermSendMessages,
		PermUploadMedia,
	},
	RoleMedical: {
		PermViewHealth,
		PermManageHealth,
		PermSendMessages,
	},
	RoleStaff: {
		PermSendMessages,
	},
}

// DefaultPermissions returns a copy of the role's default permission set.
func DefaultPermissions(r Role) []Permission {
	defaults := roleDefaults[r]
	out := make([]Permission, len(defaults))
	copy(out, defaults)
	return out
}

// Template is a named bundle of roles plus extra direct grants, applied in
// one step when onboarding a user into a standard position.
type Template struct {
	Name   string
	Roles  []Role
	Grants []Permission
}

var templates = map[string]Template{
	"head-coach": {
		Name:   "head-coach",
		Roles:  []Role{RoleCoach},
		Grants: []Permission{PermManageDepartments, PermModerateChat},
	},
	"team-doctor": {
		Name:  "team-doctor",
		Roles: []Role{RoleMedical},
	},
	"office-admin": {
		Name:  "office-admin",
		Roles: []Role{RoleAdmin},
	},
	"volunteer": {
		Name:  "volunteer",
		Roles: []Role{RoleStaff},
	},
}

// TemplateByName looks up a role template. The second return is false when
// no template with that name exists.
func TemplateByName(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// Templates returns all role templates sorted by name.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

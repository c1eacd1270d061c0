package caps

import "sort"

// Role names.
const (
	RoleKeymaster   = "keymaster"
	RoleModerator   = "moderator"
	RoleParticipant = "participant"
	RoleSpectator   = "spectator"
	RoleBanned      = "banned"
	RoleGuest       = "guest"
)

// Role is a named set of primitive capabilities.
type Role struct {
	Name        string
	DisplayName string
	Caps        map[string]bool
}

func (r *Role) Has(cap string) bool {
	return r != nil && r.Caps[cap]
}

func capSet(caps ...string) map[string]bool {
	m := make(map[string]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

var readCaps = []string{
	Read, ReadForums, ReadTopics, ReadReplies,
	ReadPrivateForums, ReadPrivateTopics,
}

var participantCaps = append([]string{
	CreateTopics, CreateReplies,
	EditTopics, EditReplies,
}, readCaps...)

var roles = map[string]*Role{
	RoleKeymaster: {
		Name:        RoleKeymaster,
		DisplayName: "Keymaster",
		Caps:        capSet(ManageForums, BypassThrottle, Read),
	},
	RoleModerator: {
		Name:        RoleModerator,
		DisplayName: "Moderator",
		Caps: capSet(append([]string{
			BypassThrottle,
			ReadHiddenForums, ReadHiddenTopics,
			EditOthersTopics, EditOthersReplies,
			DeleteTopics, DeleteReplies, DeleteOthersTopics, DeleteOthersReplies,
			ModerateTopics, ModerateReplies,
		}, participantCaps...)...),
	},
	RoleParticipant: {
		Name:        RoleParticipant,
		DisplayName: "Participant",
		Caps:        capSet(participantCaps...),
	},
	RoleSpectator: {
		Name:        RoleSpectator,
		DisplayName: "Spectator",
		Caps:        capSet(readCaps...),
	},
	RoleBanned: {
		Name:        RoleBanned,
		DisplayName: "Banned",
		Caps:        capSet(),
	},
	RoleGuest: {
		Name:        RoleGuest,
		DisplayName: "Guest",
		Caps:        capSet(ReadForums, ReadTopics, ReadReplies),
	},
}

// GetRole looks up a role by name. Unknown names resolve to the guest role.
func GetRole(name string) *Role {
	if r, ok := roles[name]; ok {
		return r
	}
	return roles[RoleGuest]
}

// RoleExists reports whether name is an assignable role.
func RoleExists(name string) bool {
	_, ok := roles[name]
	return ok && name != RoleGuest
}

// AssignableRoles lists the roles users can hold, sorted by name.
func AssignableRoles() []*Role {
	out := make([]*Role, 0, len(roles))
	for name, r := range roles {
		if name != RoleGuest {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

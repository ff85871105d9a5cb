// Package authz holds the role-level and object-level rules that gate
// access to groups and their events.
package authz

import (
	"errors"

	"github.com/starosta-app/starosta-back/internal/models"
)

var ErrForbidden = errors.New("you do not have permission to perform this action")

// Access is the kind of operation being attempted on a group or its sub-resources.
type Access int

const (
	Read Access = iota
	Write
)

// IsStarosta reports whether the user may use roster and event management
// actions at all: group leaders, admins and superusers.
func IsStarosta(u *models.User) bool {
	if u == nil {
		return false
	}
	return u.Role == models.RoleStarosta || u.Role == models.RoleAdmin || u.IsSuperuser
}

// IsStarostaOrMemberOfGroup reports whether the user is a superuser or the
// target is the user's current group. current may be nil when the user
// belongs to no group.
func IsStarostaOrMemberOfGroup(u *models.User, current, target *models.Group) bool {
	if u == nil || target == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	return current != nil && current.ID == target.ID
}

// CanManageGroup is the combined rule for writes: the object-level check is
// evaluated first, then the role-level one.
func CanManageGroup(u *models.User, current, target *models.Group) bool {
	return IsStarostaOrMemberOfGroup(u, current, target) && IsStarosta(u)
}

// Check returns ErrForbidden when the user may not perform access on target.
// The target must already have been loaded; callers report a missing group
// before calling Check.
func Check(access Access, u *models.User, current, target *models.Group) error {
	allowed := IsStarostaOrMemberOfGroup(u, current, target)
	if access == Write {
		allowed = CanManageGroup(u, current, target)
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

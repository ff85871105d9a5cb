package models

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleStarosta Role = "Starosta"
	RoleStudent  Role = "Student"
)

func Roles() []Role {
	return []Role{RoleAdmin, RoleStarosta, RoleStudent}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStarosta, RoleStudent:
		return true
	}
	return false
}

package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
	Deleted   bool      `gorm:"not null;default:false" json:"-"`

	Name       string `gorm:"size:255" json:"name"`
	StarostaID uint   `gorm:"uniqueIndex;not null" json:"-"`
	Starosta   *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"starosta"`

	Students []User  `gorm:"many2many:group_students;constraint:OnDelete:CASCADE;" json:"students"`
	Events   []Event `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeSave fills in a default name from the leader when one is loaded.
func (g *Group) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(g.Name) == "" && g.Starosta != nil {
		g.Name = DefaultGroupName(g.Starosta.FirstName)
	}
	return nil
}

func DefaultGroupName(firstName string) string {
	return fmt.Sprintf("Group of %s", firstName)
}

func (g *Group) HasStudent(userID uint) bool {
	for _, s := range g.Students {
		if s.ID == userID {
			return true
		}
	}
	return false
}

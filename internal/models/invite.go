package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserInvite pairs an inactive placeholder user with a single-use code.
type UserInvite struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"-"`
	Deleted   bool      `gorm:"not null;default:false" json:"-"`

	UserID uint   `gorm:"not null;index" json:"-"`
	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Code   string `gorm:"uniqueIndex;size:36;not null" json:"code"`
}

func (i *UserInvite) BeforeCreate(tx *gorm.DB) error {
	if i.Code == "" {
		i.Code = uuid.NewString()
	}
	return nil
}

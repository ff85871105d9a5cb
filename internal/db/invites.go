package db

import (
	"context"
	"fmt"
	"time"

	"github.com/starosta-app/starosta-back/internal/models"
)

type InviteInput struct {
	Email     string
	GroupID   uint
	FirstName string
	LastName  string
	Role      models.Role
}

// CreateInvite creates an inactive placeholder user, adds them to the group
// and issues an invite code for them, all in one transaction.
func (s *Store) CreateInvite(ctx context.Context, in InviteInput) (*models.UserInvite, error) {
	var invite models.UserInvite

	err := s.Tx(ctx, func(tx *Store) error {
		var group models.Group
		if err := tx.db.Where("deleted = ?", false).First(&group, in.GroupID).Error; err != nil {
			return notFound(err)
		}

		taken, err := tx.EmailTaken(ctx, in.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		role := in.Role
		if role == "" {
			role = models.RoleStudent
		}
		if !role.Valid() {
			return fmt.Errorf("invite: unknown role %q", role)
		}
		user := models.User{
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Role:      role,
			IsActive:  false,
		}
		if err := tx.db.Create(&user).Error; err != nil {
			return err
		}

		if err := tx.db.Model(&group).Association("Students").Append(&user); err != nil {
			return err
		}

		invite = models.UserInvite{UserID: user.ID}
		if err := tx.db.Omit("User").Create(&invite).Error; err != nil {
			return err
		}
		invite.User = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// ExpireStaleInvites soft-deletes invites created before cutoff whose user
// never became active.
func (s *Store) ExpireStaleInvites(ctx context.Context, cutoff time.Time) (int64, error) {
	inactive := s.db.Model(&models.User{}).Select("id").Where("is_active = ?", false)
	res := s.db.WithContext(ctx).Model(&models.UserInvite{}).
		Where("deleted = ? AND created_at < ?", false, cutoff).
		Where("user_id IN (?)", inactive).
		UpdateColumn("deleted", true)
	return res.RowsAffected, res.Error
}

package db

import (
	"context"
	"errors"
	"time"

	"github.com/starosta-app/starosta-back/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail matches the address case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", models.NormalizeEmail(email)).
		Order("id").
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// EmailTaken reports whether another user already uses email. exceptID
// excludes the caller's own record on profile updates.
func (s *Store) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", models.NormalizeEmail(email))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string, exceptID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (s *Store) FindUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// AvailableStudents lists active students who are not a member of any group.
func (s *Store) AvailableStudents(ctx context.Context) ([]models.User, error) {
	var users []models.User
	members := s.db.Table("group_students").Select("user_id")
	err := s.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleStudent, true).
		Where("id NOT IN (?)", members).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes the user together with the group they lead (and its
// events), their memberships and their invites.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.Tx(ctx, func(tx *Store) error {
		var led []models.Group
		if err := tx.db.Where("starosta_id = ?", id).Find(&led).Error; err != nil {
			return err
		}
		for _, g := range led {
			if err := tx.deleteGroup(g.ID); err != nil {
				return err
			}
		}
		if err := tx.db.Exec("DELETE FROM group_students WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.db.Where("user_id = ?", id).Delete(&models.UserInvite{}).Error; err != nil {
			return err
		}
		res := tx.db.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// EnsureSuperuser promotes the user with email to superuser, creating an
// active account with password when none exists. created reports which
// happened.
func (s *Store) EnsureSuperuser(ctx context.Context, email, password string) (user *models.User, created bool, err error) {
	err = s.Tx(ctx, func(tx *Store) error {
		existing, err := tx.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
			if user.IsSuperuser && user.Role == models.RoleAdmin {
				return nil
			}
		case errors.Is(err, ErrNotFound):
			user = &models.User{Email: email, IsActive: true}
			if err := user.SetPassword(password); err != nil {
				return err
			}
			created = true
		default:
			return err
		}
		user.PromoteToSuperuser()
		return tx.SaveUser(ctx, user)
	})
	return user, created, err
}

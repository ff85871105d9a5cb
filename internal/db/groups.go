package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/starosta-app/starosta-back/internal/models"
)

func (s *Store) withMembers() *gorm.DB {
	return s.db.Preload("Starosta").Preload("Students", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id")
	})
}

// GetGroup loads a group with its leader and students. Soft-deleted groups
// are reported as missing.
func (s *Store) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	err := s.withMembers().WithContext(ctx).
		Where("deleted = ?", false).
		First(&g, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

// GetOrCreateStarostaGroup returns the group led by u, creating it on first
// access. The insert is a single ON CONFLICT DO NOTHING against the unique
// starosta_id index, so concurrent callers converge on one row.
func (s *Store) GetOrCreateStarostaGroup(ctx context.Context, u *models.User) (*models.Group, error) {
	g := models.Group{
		StarostaID: u.ID,
		Name:       models.DefaultGroupName(u.FirstName),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "starosta_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(&g).Error
	if err != nil {
		return nil, err
	}

	var out models.Group
	if err := s.withMembers().WithContext(ctx).Where("starosta_id = ?", u.ID).First(&out).Error; err != nil {
		return nil, notFound(err)
	}
	if out.Deleted {
		if err := s.db.WithContext(ctx).Model(&out).UpdateColumn("deleted", false).Error; err != nil {
			return nil, err
		}
		out.Deleted = false
	}
	return &out, nil
}

// CurrentGroup resolves the group a user acts in: the one they lead when
// they are a starosta, otherwise the first group listing them as a student.
// It returns nil, nil when there is none.
func (s *Store) CurrentGroup(ctx context.Context, u *models.User) (*models.Group, error) {
	if u.IsStarosta() {
		return s.GetOrCreateStarostaGroup(ctx, u)
	}

	var g models.Group
	err := s.withMembers().WithContext(ctx).
		Joins("JOIN group_students ON group_students.group_id = groups.id").
		Where("group_students.user_id = ? AND groups.deleted = ?", u.ID, false).
		Order("groups.id").
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupUpdate is a partial update; nil fields are left untouched.
// StudentIDs, when set, replaces the whole member set.
type GroupUpdate struct {
	Name       *string
	StudentIDs *[]uint
}

func (s *Store) UpdateGroup(ctx context.Context, g *models.Group, upd GroupUpdate) error {
	db := s.db.WithContext(ctx)

	if upd.Name != nil {
		g.Name = *upd.Name
		if strings.TrimSpace(g.Name) == "" {
			if g.Starosta == nil {
				lead, err := s.GetUserByID(ctx, g.StarostaID)
				if err != nil {
					return err
				}
				g.Starosta = lead
			}
			g.Name = models.DefaultGroupName(g.Starosta.FirstName)
		}
		if err := db.Model(g).Omit(clause.Associations).Update("name", g.Name).Error; err != nil {
			return err
		}
	}

	if upd.StudentIDs != nil {
		ids := uniqueIDs(*upd.StudentIDs)
		users, err := s.FindUsersByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(users) != len(ids) {
			return &UnknownUserError{ID: firstMissing(ids, users)}
		}

		assoc := db.Model(g).Association("Students")
		if len(users) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(users)
		}
		if err != nil {
			return err
		}
		g.Students = users
	}
	return nil
}

// DeleteGroup removes a group, its memberships and all of its events.
func (s *Store) DeleteGroup(ctx context.Context, id uint) error {
	return s.Tx(ctx, func(tx *Store) error {
		return tx.deleteGroup(id)
	})
}

func (s *Store) deleteGroup(id uint) error {
	if err := s.db.Where("group_id = ?", id).Delete(&models.Event{}).Error; err != nil {
		return err
	}
	if err := s.db.Exec("DELETE FROM group_students WHERE group_id = ?", id).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.Group{}, id).Error
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func firstMissing(ids []uint, users []models.User) uint {
	found := make(map[uint]struct{}, len(users))
	for _, u := range users {
		found[u.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return id
		}
	}
	return 0
}

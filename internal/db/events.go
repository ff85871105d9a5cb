package db

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/starosta-app/starosta-back/internal/models"
)

func (s *Store) ListActiveEvents(ctx context.Context, groupID uint) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("date, time, id").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent loads an event only if it belongs to groupID.
func (s *Store) GetEvent(ctx context.Context, groupID, eventID uint) (*models.Event, error) {
	var e models.Event
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		First(&e, eventID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error
}

func (s *Store) CreateEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(&events).Error
}

func (s *Store) SaveEvent(ctx context.Context, e *models.Event) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(e).Error
}

func (s *Store) DeleteEvent(ctx context.Context, e *models.Event) error {
	return s.db.WithContext(ctx).Delete(e).Error
}

// DeactivateFinishedEvents switches off events whose last occurrence is
// before today and returns how many rows changed.
func (s *Store) DeactivateFinishedEvents(ctx context.Context, today time.Time) (int64, error) {
	today = models.DateOnly(today)
	res := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("is_active = ? AND date < ?", true, today).
		Where("(recurring = ? OR recurring_until IS NULL OR recurring_until < ?)", false, today).
		UpdateColumn("is_active", false)
	return res.RowsAffected, res.Error
}

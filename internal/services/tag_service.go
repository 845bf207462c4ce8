package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
)

// TagService manages the tag catalogue: partner-level tags shared by everyone
// plus per-user custom tags.
type TagService struct {
	db *gorm.DB
}

// NewTagService constructs a TagService.
func NewTagService(db *gorm.DB) (*TagService, error) {
	if db == nil {
		return nil, errors.New("tag service: db is required")
	}
	return &TagService{db: db}, nil
}

// ListPartner returns the partner-level tags visible to every user.
func (s *TagService) ListPartner(ctx context.Context) ([]models.Tag, error) {
	ctx = ensureContext(ctx)

	var rows []models.Tag
	err := s.db.WithContext(ctx).
		Where("user_id IS NULL").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tag service: list partner tags: %w", err)
	}
	return rows, nil
}

// ListForUser returns the user's custom tags together with the partner tags.
func (s *TagService) ListForUser(ctx context.Context, userID uint) ([]models.Tag, error) {
	ctx = ensureContext(ctx)

	var rows []models.Tag
	err := s.db.WithContext(ctx).
		Where("user_id = ? OR user_id IS NULL", userID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tag service: list tags: %w", err)
	}
	return rows, nil
}

// ReplaceForUser swaps the user's custom tag set for the supplied names,
// matching the vendor's whole-list PUT. Partner tags are untouched.
func (s *TagService) ReplaceForUser(ctx context.Context, userID uint, names []string) ([]models.Tag, error) {
	ctx = ensureContext(ctx)

	cleaned := normaliseTagNames(names)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("user_id = ?", userID).
			Delete(&models.Tag{}).Error; err != nil {
			return err
		}
		for _, name := range cleaned {
			uid := userID
			if err := tx.Create(&models.Tag{UserID: &uid, Name: name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tag service: replace tags: %w", err)
	}

	return s.ListForUser(ctx, userID)
}

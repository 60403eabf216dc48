package repository

import (
	"context"

	"talentpassport/internal/models"

	"gorm.io/gorm"
)

// XPEventRepo appends to the XP audit log. Append-only: no update or delete
// methods exist, corrections are compensating entries.
type XPEventRepo struct {
	db *gorm.DB
}

func NewXPEventRepo(db *gorm.DB) *XPEventRepo {
	return &XPEventRepo{db: db}
}

// Append records one applied XP delta.
func (r *XPEventRepo) Append(ctx context.Context, event *models.XPEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// History returns the audit trail for a progression record, oldest first.
func (r *XPEventRepo) History(ctx context.Context, skillProgressID uint) ([]models.XPEvent, error) {
	var events []models.XPEvent
	result := r.db.WithContext(ctx).
		Where("skill_progress_id = ?", skillProgressID).
		Order("created_at ASC, id ASC").
		Find(&events)
	return events, result.Error
}

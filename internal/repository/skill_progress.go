package repository

import (
	"context"
	"errors"
	"time"

	"talentpassport/internal/models"

	"gorm.io/gorm"
)

// ErrConcurrentUpdate is returned when the optimistic write loop exhausts its
// retries because another writer kept winning the race on the same row.
var ErrConcurrentUpdate = errors.New("repository: concurrent skill progress update, retries exhausted")

const maxUpdateRetries = 5

// SkillProgressRepo persists per-(user, skill) progression records.
type SkillProgressRepo struct {
	db *gorm.DB
}

func NewSkillProgressRepo(db *gorm.DB) *SkillProgressRepo {
	return &SkillProgressRepo{db: db}
}

// Get fetches an existing progression record, gorm.ErrRecordNotFound if none.
func (r *SkillProgressRepo) Get(ctx context.Context, userID uint, skillName string) (*models.SkillProgress, error) {
	var sp models.SkillProgress
	result := r.db.WithContext(ctx).
		First(&sp, "user_id = ? AND skill_name = ?", userID, models.NormalizeSkillName(skillName))
	return &sp, result.Error
}

// GetOrCreate fetches the progression record for (user, skill), creating the
// zero-state row on first skill detection. A create losing the unique-index
// race to a concurrent writer falls back to reading the winner's row.
func (r *SkillProgressRepo) GetOrCreate(ctx context.Context, userID uint, skillName string) (*models.SkillProgress, error) {
	sp, err := r.Get(ctx, userID, skillName)
	if err == nil {
		return sp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.SkillProgress{
		UserID:         userID,
		SkillName:      models.NormalizeSkillName(skillName),
		VerifiedStatus: "not_verified",
	}
	if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
		if existing, getErr := r.Get(ctx, userID, skillName); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return fresh, nil
}

// UpdateOptimistic applies mutate to the current row state and writes it back
// guarded by the version column, retrying on conflict. This is the per-record
// serialization contract: two concurrent XP applications to the same skill
// cannot lose an update, while independent rows proceed without coordination.
func (r *SkillProgressRepo) UpdateOptimistic(ctx context.Context, userID uint, skillName string, mutate func(*models.SkillProgress) error) (*models.SkillProgress, error) {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		sp, err := r.GetOrCreate(ctx, userID, skillName)
		if err != nil {
			return nil, err
		}

		if err := mutate(sp); err != nil {
			return nil, err
		}

		result := r.db.WithContext(ctx).
			Model(&models.SkillProgress{}).
			Where("id = ? AND version = ?", sp.ID, sp.Version).
			Updates(map[string]interface{}{
				"xp":                      sp.XP,
				"level":                   sp.Level,
				"highest_level_completed": sp.HighestLevelCompleted,
				"verified_status":         sp.VerifiedStatus,
				"risk_score":              sp.RiskScore,
				"version":                 sp.Version + 1,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			sp.Version++
			return sp, nil
		}
		// Lost the version race; reload and retry.
	}
	return nil, ErrConcurrentUpdate
}

// ListStale returns progression records not touched since the cutoff, for
// the periodic risk refresh job.
func (r *SkillProgressRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.SkillProgress, error) {
	var stale []models.SkillProgress
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Find(&stale)
	return stale, result.Error
}

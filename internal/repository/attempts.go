package repository

import (
	"context"

	"talentpassport/internal/models"
	"talentpassport/internal/risk"

	"gorm.io/gorm"
)

// AttemptRepo persists scored attempts. Rows are insert-only; the table is
// the audit trail behind skill-risk aggregation.
type AttemptRepo struct {
	db *gorm.DB
}

func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Save writes one completed attempt. There is deliberately no update or
// delete counterpart.
func (r *AttemptRepo) Save(ctx context.Context, rec *models.AttemptRecord) error {
	rec.SkillName = models.NormalizeSkillName(rec.SkillName)
	return r.db.WithContext(ctx).Create(rec).Error
}

// RiskHistory returns every attempt risk observation for a (user, skill)
// pair, newest first, in the shape the aggregator consumes.
func (r *AttemptRepo) RiskHistory(ctx context.Context, userID uint, skillName string) ([]risk.RiskObservation, error) {
	query := `SELECT risk_index, created_at FROM attempt_records WHERE user_id = ? AND skill_name = ? ORDER BY created_at DESC`

	rows, err := r.db.WithContext(ctx).
		Raw(query, userID, models.NormalizeSkillName(skillName)).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []risk.RiskObservation
	for rows.Next() {
		var obs risk.RiskObservation
		if err := rows.Scan(&obs.RiskIndex, &obs.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, obs)
	}
	return history, rows.Err()
}

package services

import (
	"context"
	"time"

	"talentpassport/internal/repository"

	"go.uber.org/zap"
)

// Recalculator periodically re-aggregates skill risk for progression records
// that have not been touched recently, so old violations keep decaying even
// for users who stop attempting.
type Recalculator struct {
	log        *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
	progress   *repository.SkillProgressRepo
	passport   *PassportService
}

func NewRecalculator(log *zap.Logger, interval, staleAfter time.Duration, progress *repository.SkillProgressRepo, passport *PassportService) *Recalculator {
	return &Recalculator{
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		progress:   progress,
		passport:   passport,
	}
}

// Start runs the recalculator in a goroutine until ctx is cancelled.
func (r *Recalculator) Start(ctx context.Context) {
	r.log.Info("Starting skill risk recalculator...",
		zap.Duration("interval", r.interval),
		zap.Duration("staleAfter", r.staleAfter),
	)
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.log.Info("Skill risk recalculator stopped")
				return
			case <-ticker.C:
				r.runRefresh(ctx)
			}
		}
	}()
}

func (r *Recalculator) runRefresh(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)
	r.log.Debug("Running skill risk refresh", zap.Time("cutoff", cutoff))

	stale, err := r.progress.ListStale(ctx, cutoff)
	if err != nil {
		r.log.Error("Failed to list stale skill records", zap.Error(err))
		return
	}

	for _, sp := range stale {
		if _, err := r.passport.RefreshSkillRisk(ctx, sp.UserID, sp.SkillName); err != nil {
			r.log.Error("Failed to refresh skill risk",
				zap.Uint("userID", sp.UserID),
				zap.String("skill", sp.SkillName),
				zap.Error(err),
			)
			continue
		}
	}

	if len(stale) > 0 {
		r.log.Info("Skill risk refresh complete", zap.Int("records", len(stale)))
	}
}

package engine

import (
	"context"
	"math"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/domain"
)

// Ratio thresholds for early/on-time/late completion are fixed; only
// the bonus and penalty percentages are configurable.
const (
	earlyRatio = 0.9
	lateRatio  = 1.1
	// Cap for the wall-clock fallback when no time logs exist, so an
	// ancient backlog item doesn't register as months of work.
	maxFallbackHours = 720
)

// CalculateLevel derives a participant's level from cumulative
// experience. Monotonically non-decreasing, floored at level 1.
func CalculateLevel(experience int) int {
	if experience <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(experience)/100))) + 1
}

func tableScore(table map[string]int, key string, fallback int) int {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

// scoreTask computes the experience award for a completed task. The
// task must already carry its completion timestamp.
func (e Engine) scoreTask(ctx context.Context, t domain.Task, g config.Gamification) int {
	xp := float64(g.BaseXP + tableScore(g.TypeScores, t.Type, g.DefaultScore) + tableScore(g.PriorityScores, t.Priority, g.DefaultScore))

	if g.TimeBased && t.EstimatedHours > 0 {
		actual := e.actualHours(ctx, t)
		if actual > 0 {
			ratio := actual / t.EstimatedHours
			var pct float64
			switch {
			case ratio <= earlyRatio:
				pct = math.Min(g.EarlyBonusPercent, g.MaxBonusPercent)
			case ratio <= lateRatio:
				pct = g.OnTimeBonusPercent
			default:
				pct = -math.Min(g.LatePenaltyPercent, g.MaxPenaltyPercent)
			}
			xp += math.Round(xp * pct / 100)
		}
	}
	if xp < 1 {
		return 1
	}
	return int(math.Round(xp))
}

// actualHours prefers durable time logs; without any it falls back to
// wall-clock creation-to-completion, clamped.
func (e Engine) actualHours(ctx context.Context, t domain.Task) float64 {
	sum, ok, err := e.Repo.SumTimeLogHours(ctx, t.ID)
	if err != nil {
		e.logger().Printf("time log sum failed for task %s: %v", t.ID, err)
	}
	if ok && sum > 0 {
		return sum
	}
	if t.CompletedAt == nil {
		return 0
	}
	created, err1 := time.Parse(time.RFC3339, t.CreatedAt)
	completed, err2 := time.Parse(time.RFC3339, *t.CompletedAt)
	if err1 != nil || err2 != nil {
		return 0
	}
	hours := completed.Sub(created).Hours()
	if hours < 0 {
		return 0
	}
	if hours > maxFallbackHours {
		return maxFallbackHours
	}
	return hours
}

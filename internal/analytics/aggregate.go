// Package analytics derives dashboard statistics, history views and
// progress rollups from persisted sessions. Aggregate and Query are pure
// functions over already-fetched records.
package analytics

import (
	"math"
	"time"

	"github.com/ashureev/confido/internal/domain"
)

// Dashboard is the summary shown on the user's home screen.
type Dashboard struct {
	TotalSessions     int     `json:"totalSessions"`
	TotalMinutes      float64 `json:"totalMinutes"`
	ThisWeekSessions  int     `json:"thisWeekSessions"`
	AverageConfidence int     `json:"averageConfidence"`
}

// Aggregate summarizes records as of now. Every record counts toward the
// totals regardless of status. The confidence average covers records whose
// first analytics row carries a confidence score, zero included, and is
// reported as a rounded percentage; with no such records it is 0.
func Aggregate(records []domain.SessionRecord, now time.Time) Dashboard {
	weekAgo := now.AddDate(0, 0, -7)

	var (
		d            Dashboard
		totalSeconds int
		confSum      float64
		confCount    int
	)
	for i := range records {
		rec := &records[i]
		d.TotalSessions++
		totalSeconds += rec.DurationSeconds
		if !rec.CreatedAt.Before(weekAgo) {
			d.ThisWeekSessions++
		}
		if c, ok := rec.Confidence(); ok {
			confSum += c
			confCount++
		}
	}

	d.TotalMinutes = round2(float64(totalSeconds) / 60)
	if confCount > 0 {
		d.AverageConfidence = int(math.Round(confSum / float64(confCount) * 100))
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

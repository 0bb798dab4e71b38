package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// csvSafe stops spreadsheet programs from evaluating user text as a formula.
func csvSafe(v string) string {
	if v != "" && strings.ContainsAny(v[:1], "=+-@\t\r") {
		return "'" + v
	}
	return v
}

// ExportUsersCSV writes one row per user after a header row.
func (a *AnalyticsService) ExportUsersCSV(ctx context.Context, w io.Writer) error {
	users, err := a.store.AllUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "load users")
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "email", "name", "role", "blocked", "created_at", "last_login_at"})
	for _, u := range users {
		created := u.CreatedAt
		_ = cw.Write([]string{
			u.ID, csvSafe(u.Email), csvSafe(u.Name), string(u.Role),
			strconv.FormatBool(u.Blocked),
			formatTime(&created),
			formatTime(u.LastLoginAt),
		})
	}
	cw.Flush()
	return cw.Error()
}

// ExportProgressCSV writes one row per (user, roadmap) progress record.
func (a *AnalyticsService) ExportProgressCSV(ctx context.Context, w io.Writer) error {
	rows, err := a.store.AllProgress(ctx)
	if err != nil {
		return errors.Wrap(err, "load progress")
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"user_id", "roadmap_id", "completed", "total", "percentage", "quiz_attempts", "quiz_passes", "best_score", "mastered", "mastered_at"})
	for _, p := range rows {
		_ = cw.Write([]string{
			p.UserID, p.RoadmapID,
			strconv.Itoa(p.CompletedCount),
			strconv.Itoa(p.TotalCount),
			strconv.Itoa(p.Percentage),
			strconv.Itoa(p.QuizAttempts),
			strconv.Itoa(p.QuizPasses),
			strconv.Itoa(p.BestScore),
			strconv.FormatBool(p.Mastered),
			formatTime(p.MasteredAt),
		})
	}
	cw.Flush()
	return cw.Error()
}

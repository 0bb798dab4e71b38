// Package storetest opens an isolated in-memory SQLite store for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

const Secret = "test-secret"

// New returns a migrated store backed by a private in-memory database.
func New(t testing.TB) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), store.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	s := store.New(db, config.Default(Secret))
	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// User inserts a user with the given role and password "password123".
func User(t testing.TB, s *store.Store, role models.Role) *models.User {
	t.Helper()
	id, err := utils.GenerateUserID()
	require.NoError(t, err)
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	u := &models.User{
		ID:           id,
		Email:        strings.ToLower(id) + "@example.com",
		PasswordHash: hash,
		Name:         "User " + id,
		Role:         role,
	}
	require.NoError(t, s.CreateUser(context.Background(), u, &models.UserDetails{UserID: id}))
	return u
}

// Roadmap inserts a published roadmap with one node per subtopic group.
func Roadmap(t testing.TB, s *store.Store, slug string, groups ...[]string) *models.Roadmap {
	t.Helper()
	ctx := context.Background()
	r := &models.Roadmap{ID: utils.GenerateID(), Slug: slug, Title: slug, Published: true}
	require.NoError(t, s.CreateRoadmap(ctx, r))
	for i, g := range groups {
		subs := make([]models.Subtopic, 0, len(g))
		for _, id := range g {
			subs = append(subs, models.Subtopic{ID: id, Title: id})
		}
		require.NoError(t, s.CreateRoadmapNode(ctx, &models.RoadmapNode{
			ID:        utils.GenerateID(),
			RoadmapID: r.ID,
			Title:     fmt.Sprintf("node %d", i+1),
			Position:  i,
			Subtopics: utils.DatatypesJSONFrom(subs),
		}))
	}
	return r
}

// Questions inserts n questions whose correct option is always index 0.
func Questions(t testing.TB, s *store.Store, roadmapID string, n int) []*models.QuizQuestion {
	t.Helper()
	out := make([]*models.QuizQuestion, 0, n)
	for i := 0; i < n; i++ {
		q := &models.QuizQuestion{
			ID:           utils.GenerateID(),
			RoadmapID:    roadmapID,
			Prompt:       fmt.Sprintf("question %d", i+1),
			Options:      utils.DatatypesJSONFromStrings([]string{"right", "wrong"}),
			CorrectIndex: 0,
			Explanation:  "first option",
			Position:     i,
		}
		require.NoError(t, s.CreateQuestion(context.Background(), q))
		out = append(out, q)
	}
	return out
}

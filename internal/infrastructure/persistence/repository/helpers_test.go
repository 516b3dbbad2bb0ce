package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/mission-orders/pkg/database"
)

type testStores struct {
	db           *sqlite.DB
	missions     *MissionRepository
	expenses     *ExpenseRepository
	signatures   *SignatureRepository
	participants *ParticipantRepository
	comments     *CommentRepository
	projects     *ProjectRepository
	users        *UserRepository
	notification *NotificationRepository
}

func newTestStores(t *testing.T) *testStores {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "missions.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Migrate())

	return &testStores{
		db:           sqlite.NewDB(db.DB, logger),
		missions:     NewMissionRepository(db.DB, logger).(*MissionRepository),
		expenses:     NewExpenseRepository(db.DB, logger).(*ExpenseRepository),
		signatures:   NewSignatureRepository(db.DB, logger).(*SignatureRepository),
		participants: NewParticipantRepository(db.DB, logger).(*ParticipantRepository),
		comments:     NewCommentRepository(db.DB, logger).(*CommentRepository),
		projects:     NewProjectRepository(db.DB, logger).(*ProjectRepository),
		users:        NewUserRepository(db.DB, logger),
		notification: NewNotificationRepository(db.DB, logger).(*NotificationRepository),
	}
}

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func seedMission(t *testing.T, s *testStores, id string, mutate func(m *entity.MissionOrder)) *entity.MissionOrder {
	t.Helper()
	m := &entity.MissionOrder{
		ID:              id,
		Reference:       "OM-2025-" + id,
		AgentID:         "agent-1",
		Title:           "Field visit " + id,
		Destination:     "Bouake",
		StartDate:       baseTime,
		EndDate:         baseTime.AddDate(0, 0, 2),
		EstimatedAmount: 60000,
		Status:          workflow.StateDraft,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
	if mutate != nil {
		mutate(m)
	}
	require.NoError(t, s.missions.Create(context.Background(), m))
	return m
}

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

func TestMissionRepository_CreateAndGet(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	project := &entity.Project{ID: "p1", Code: "P1", Name: "Health", TotalBudget: 100000, Status: entity.ProjectStatusActive}
	require.NoError(t, s.projects.Create(ctx, project))

	seeded := seedMission(t, s, "m1", func(m *entity.MissionOrder) {
		m.ProjectID = &project.ID
		m.Description = "Quarterly supervision"
	})

	got, err := s.missions.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, seeded.Reference, got.Reference)
	assert.Equal(t, workflow.StateDraft, got.Status)
	assert.True(t, got.StartDate.Equal(seeded.StartDate))
	assert.Equal(t, 60000.0, got.EstimatedAmount)
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, "p1", *got.ProjectID)
	assert.Nil(t, got.ActualAmount)
	assert.Nil(t, got.PaymentDate)

	byRef, err := s.missions.GetByReference(ctx, seeded.Reference)
	require.NoError(t, err)
	assert.Equal(t, "m1", byRef.ID)

	_, err = s.missions.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestMissionRepository_ReferenceIsUnique(t *testing.T) {
	s := newTestStores(t)
	seedMission(t, s, "m1", nil)

	err := s.missions.Create(context.Background(), &entity.MissionOrder{
		ID: "m2", Reference: "OM-2025-m1", AgentID: "a", Title: "t", Destination: "d",
		StartDate: baseTime, EndDate: baseTime, Status: workflow.StateDraft,
	})
	assert.Error(t, err)
}

func TestMissionRepository_RejectsInvalidRows(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	err := s.missions.Create(ctx, &entity.MissionOrder{
		ID: "bad-dates", Reference: "R1", AgentID: "a", Title: "t", Destination: "d",
		StartDate: baseTime, EndDate: baseTime.AddDate(0, 0, -1), Status: workflow.StateDraft,
	})
	assert.Error(t, err, "end before start")

	err = s.missions.Create(ctx, &entity.MissionOrder{
		ID: "bad-status", Reference: "R2", AgentID: "a", Title: "t", Destination: "d",
		StartDate: baseTime, EndDate: baseTime, Status: "archived",
	})
	assert.Error(t, err, "unknown status")
}

func TestMissionRepository_UpdateStatusIsConditioned(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingService })

	require.NoError(t, s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingService, workflow.StatePendingDirector, ""))

	err := s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingService, workflow.StatePendingDirector, "")
	assert.ErrorIs(t, err, workflow.ErrConflict)

	err = s.missions.UpdateStatus(ctx, "missing", workflow.StatePendingService, workflow.StatePendingDirector, "")
	assert.ErrorIs(t, err, port.ErrNotFound)

	got, err := s.missions.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingDirector, got.Status)
}

func TestMissionRepository_RejectionReasonInvariant(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingDirector })

	err := s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingDirector, workflow.StateRejected, "")
	assert.Error(t, err, "rejected without reason must violate the check constraint")

	require.NoError(t, s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingDirector, workflow.StateRejected, "Budget insuffisant"))

	got, err := s.missions.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, got.Status)
	assert.Equal(t, "Budget insuffisant", got.RejectionReason)
}

func TestMissionRepository_ConcurrentConditionedUpdates(t *testing.T) {
	s := newTestStores(t)
	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingDirector })

	const workers = 8
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		errs      = make([]error, workers)
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.db.WithTransaction(context.Background(), func(ctx context.Context) error {
				return s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingDirector, workflow.StatePendingFinance, "")
			})
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, workflow.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestMissionRepository_TransactionRollsBackStatus(t *testing.T) {
	s := newTestStores(t)
	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingService })

	err := s.db.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingService, workflow.StatePendingDirector, ""); err != nil {
			return err
		}
		// invalid action violates the signature check constraint
		return s.signatures.Create(ctx, &entity.MissionSignature{
			MissionID: "m1", SignerID: "chef-1", SignerRole: workflow.RoleChefService,
			Action: "maybe", SignedAt: time.Now(),
		})
	})
	require.Error(t, err)

	got, err := s.missions.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingService, got.Status)

	sigs, err := s.signatures.ListByMissionID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestMissionRepository_UpdateDraft(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	m := seedMission(t, s, "m1", nil)

	m.Title = "Updated title"
	m.EstimatedAmount = 42000
	require.NoError(t, s.missions.UpdateDraft(ctx, m))

	got, err := s.missions.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Updated title", got.Title)
	assert.Equal(t, 42000.0, got.EstimatedAmount)

	require.NoError(t, s.missions.UpdateStatus(ctx, "m1", workflow.StateDraft, workflow.StatePendingService, ""))
	assert.ErrorIs(t, s.missions.UpdateDraft(ctx, m), workflow.ErrConflict)
}

func TestMissionRepository_MarkPaid(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingFinance })

	payment := port.PaymentUpdate{ActualAmount: 58000, Method: "transfer", ProofURL: "https://files/proof.pdf", PaidAt: baseTime.AddDate(0, 0, 5)}
	assert.ErrorIs(t, s.missions.MarkPaid(ctx, "m1", payment), workflow.ErrConflict)

	require.NoError(t, s.missions.UpdateStatus(ctx, "m1", workflow.StatePendingFinance, workflow.StateApproved, ""))
	require.NoError(t, s.missions.MarkPaid(ctx, "m1", payment))

	got, err := s.missions.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePaid, got.Status)
	require.NotNil(t, got.ActualAmount)
	assert.Equal(t, 58000.0, *got.ActualAmount)
	assert.Equal(t, "transfer", got.PaymentMethod)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, got.PaymentDate.Equal(payment.PaidAt))
}

func TestMissionRepository_DeleteDraftCascades(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	seedMission(t, s, "m1", nil)
	seedMission(t, s, "m2", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingService })

	require.NoError(t, s.expenses.Upsert(ctx, &entity.MissionExpense{MissionID: "m1", PerDiemTotal: 30000}))
	require.NoError(t, s.participants.Replace(ctx, "m1", []*entity.MissionParticipant{{AgentID: "agent-1", IsPrimary: true}}))

	require.NoError(t, s.missions.DeleteDraft(ctx, "m1"))
	_, err := s.missions.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, port.ErrNotFound)
	_, err = s.expenses.GetByMissionID(ctx, "m1")
	assert.ErrorIs(t, err, port.ErrNotFound)
	ps, err := s.participants.ListByMissionID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, ps)

	assert.ErrorIs(t, s.missions.DeleteDraft(ctx, "m2"), workflow.ErrConflict)
	assert.ErrorIs(t, s.missions.DeleteDraft(ctx, "m1"), port.ErrNotFound)
}

func TestMissionRepository_List(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.Title = "Atelier Yamoussoukro" })
	seedMission(t, s, "m2", func(m *entity.MissionOrder) {
		m.Status = workflow.StatePendingService
		m.CreatedAt = baseTime.Add(time.Hour)
	})
	seedMission(t, s, "m3", func(m *entity.MissionOrder) {
		m.Status = workflow.StatePendingFinance
		m.AgentID = "agent-2"
		m.Destination = "San Pedro"
		m.CreatedAt = baseTime.Add(2 * time.Hour)
	})
	seedMission(t, s, "m4", func(m *entity.MissionOrder) {
		m.Status = workflow.StateApproved
		m.CreatedAt = baseTime.Add(3 * time.Hour)
	})

	ids := func(list []*entity.MissionOrder) []string {
		out := make([]string, len(list))
		for i, m := range list {
			out[i] = m.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter port.MissionFilter
		want   []string
	}{
		{"all newest first", port.MissionFilter{}, []string{"m4", "m3", "m2", "m1"}},
		{"pending stages", port.MissionFilter{Status: port.StatusFilterPending}, []string{"m3", "m2"}},
		{"single status", port.MissionFilter{Status: "approved"}, []string{"m4"}},
		{"by agent", port.MissionFilter{AgentID: "agent-2"}, []string{"m3"}},
		{"search title case-insensitive", port.MissionFilter{Query: "yamoussoukro"}, []string{"m1"}},
		{"search destination", port.MissionFilter{Query: "PEDRO"}, []string{"m3"}},
		{"search reference", port.MissionFilter{Query: "om-2025-m2"}, []string{"m2"}},
		{"paged", port.MissionFilter{Limit: 2, Offset: 1}, []string{"m3", "m2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.missions.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(list))
		})
	}
}

func TestMissionRepository_Stats(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	seedMission(t, s, "m1", func(m *entity.MissionOrder) { m.EstimatedAmount = 10000 })
	seedMission(t, s, "m2", func(m *entity.MissionOrder) { m.Status = workflow.StatePendingDirector; m.EstimatedAmount = 20000 })
	seedMission(t, s, "m3", func(m *entity.MissionOrder) {
		m.Status = workflow.StateRejected
		m.RejectionReason = "no"
		m.StartDate = baseTime.AddDate(0, 1, 0)
		m.EndDate = m.StartDate
	})
	seedMission(t, s, "m4", func(m *entity.MissionOrder) { m.Status = workflow.StatePaid; m.EstimatedAmount = 5000 })

	require.NoError(t, s.expenses.Upsert(ctx, &entity.MissionExpense{MissionID: "m1", PerDiemTotal: 30000, AccommodationTotal: 30000}))
	require.NoError(t, s.expenses.Upsert(ctx, &entity.MissionExpense{MissionID: "m2", FuelTotal: 7000, OtherExpenses: 500}))

	stats, err := s.missions.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Draft)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Paid)
	assert.Equal(t, 95000.0, stats.TotalEstimated)
	assert.Equal(t, entity.ExpenseTotals{Accommodation: 30000, PerDiem: 30000, Fuel: 7000, Other: 500}, stats.ByCategory)
	assert.Equal(t, []port.MonthlyTotal{
		{Month: "2025-03", Count: 3, Amount: 35000},
		{Month: "2025-04", Count: 1, Amount: 60000},
	}, stats.Monthly)
}

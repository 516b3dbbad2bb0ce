package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/mission-orders/internal/application/port"
	appwf "github.com/garyjia/mission-orders/internal/application/workflow"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// Mock repositories

type mockMissionRepo struct {
	createFunc      func(ctx context.Context, m *entity.MissionOrder) error
	getByIDFunc     func(ctx context.Context, id string) (*entity.MissionOrder, error)
	updateDraftFunc func(ctx context.Context, m *entity.MissionOrder) error
	deleteDraftFunc func(ctx context.Context, id string) error
	listFunc        func(ctx context.Context, f port.MissionFilter) ([]*entity.MissionOrder, error)
	statsFunc       func(ctx context.Context) (*port.MissionStats, error)
}

func (m *mockMissionRepo) Create(ctx context.Context, mission *entity.MissionOrder) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, mission)
	}
	return nil
}

func (m *mockMissionRepo) GetByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockMissionRepo) GetByReference(ctx context.Context, reference string) (*entity.MissionOrder, error) {
	return nil, port.ErrNotFound
}

func (m *mockMissionRepo) UpdateDraft(ctx context.Context, mission *entity.MissionOrder) error {
	if m.updateDraftFunc != nil {
		return m.updateDraftFunc(ctx, mission)
	}
	return nil
}

func (m *mockMissionRepo) UpdateStatus(ctx context.Context, id string, from, to workflow.State, reason string) error {
	return nil
}

func (m *mockMissionRepo) MarkPaid(ctx context.Context, id string, payment port.PaymentUpdate) error {
	return nil
}

func (m *mockMissionRepo) DeleteDraft(ctx context.Context, id string) error {
	if m.deleteDraftFunc != nil {
		return m.deleteDraftFunc(ctx, id)
	}
	return nil
}

func (m *mockMissionRepo) List(ctx context.Context, f port.MissionFilter) ([]*entity.MissionOrder, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	return []*entity.MissionOrder{}, nil
}

func (m *mockMissionRepo) Stats(ctx context.Context) (*port.MissionStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return &port.MissionStats{}, nil
}

type mockExpenseRepo struct {
	saved []*entity.MissionExpense
	rows  map[string]*entity.MissionExpense
}

func (m *mockExpenseRepo) Upsert(ctx context.Context, e *entity.MissionExpense) error {
	m.saved = append(m.saved, e)
	return nil
}

func (m *mockExpenseRepo) GetByMissionID(ctx context.Context, missionID string) (*entity.MissionExpense, error) {
	if e, ok := m.rows[missionID]; ok {
		return e, nil
	}
	return nil, port.ErrNotFound
}

type mockParticipantRepo struct {
	replaced map[string][]*entity.MissionParticipant
	err      error
}

func (m *mockParticipantRepo) Replace(ctx context.Context, missionID string, ps []*entity.MissionParticipant) error {
	if m.err != nil {
		return m.err
	}
	if m.replaced == nil {
		m.replaced = make(map[string][]*entity.MissionParticipant)
	}
	m.replaced[missionID] = ps
	return nil
}

func (m *mockParticipantRepo) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionParticipant, error) {
	return m.replaced[missionID], nil
}

type mockSignatureRepo struct {
	signatures []*entity.MissionSignature
}

func (m *mockSignatureRepo) Create(ctx context.Context, s *entity.MissionSignature) error {
	m.signatures = append(m.signatures, s)
	return nil
}

func (m *mockSignatureRepo) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionSignature, error) {
	var out []*entity.MissionSignature
	for _, s := range m.signatures {
		if s.MissionID == missionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockCommentRepo struct {
	comments []*entity.MissionComment
}

func (m *mockCommentRepo) Create(ctx context.Context, c *entity.MissionComment) error {
	m.comments = append(m.comments, c)
	return nil
}

func (m *mockCommentRepo) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionComment, error) {
	return m.comments, nil
}

type mockProjectRepo struct {
	projects  map[string]*entity.Project
	createErr error
}

func (m *mockProjectRepo) Create(ctx context.Context, p *entity.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.projects == nil {
		m.projects = make(map[string]*entity.Project)
	}
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*entity.Project, error) {
	out := []*entity.Project{}
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProjectRepo) AddSpent(ctx context.Context, id string, amount float64) error {
	return nil
}

type mockUserRepo struct {
	users map[string]*entity.User
}

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, p port.ProfileUpdate) error {
	return port.ErrNotFound
}

type mockRoleRepo struct {
	holders map[workflow.Role][]string
}

func (m *mockRoleRepo) RolesFor(ctx context.Context, userID string) (workflow.RoleSet, error) {
	set := workflow.NewRoleSet()
	for role, users := range m.holders {
		for _, u := range users {
			if u == userID {
				set[role] = struct{}{}
			}
		}
	}
	return set, nil
}

func (m *mockRoleRepo) Assign(ctx context.Context, userID string, role workflow.Role) error { return nil }

func (m *mockRoleRepo) Revoke(ctx context.Context, userID string, role workflow.Role) error { return nil }

func (m *mockRoleRepo) UsersWithRole(ctx context.Context, role workflow.Role) ([]string, error) {
	return m.holders[role], nil
}

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListByUserID(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.created {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.created {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return port.ErrNotFound
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Mock collaborators

type mockReferences struct{ n int }

func (m *mockReferences) Generate(ctx context.Context, createdAt time.Time) (string, error) {
	m.n++
	return createdAt.Format("OM-2006-") + string(rune('A'+m.n-1)), nil
}

type mockEngine struct {
	submitFunc func(ctx context.Context, id string, actor workflow.Actor) (*entity.MissionOrder, error)
	submitted  []string
}

func (m *mockEngine) Submit(ctx context.Context, id string, actor workflow.Actor) (*entity.MissionOrder, error) {
	m.submitted = append(m.submitted, id)
	if m.submitFunc != nil {
		return m.submitFunc(ctx, id, actor)
	}
	return &entity.MissionOrder{ID: id, Status: workflow.StatePendingService}, nil
}

func (m *mockEngine) Approve(ctx context.Context, id string, actor workflow.Actor, in appwf.ActionInput) (*entity.MissionOrder, error) {
	return nil, nil
}

func (m *mockEngine) Reject(ctx context.Context, id string, actor workflow.Actor, in appwf.ActionInput) (*entity.MissionOrder, error) {
	return nil, nil
}

func (m *mockEngine) MarkPaid(ctx context.Context, id string, actor workflow.Actor, in appwf.PaymentInput) (*entity.MissionOrder, error) {
	return nil, nil
}

func (m *mockEngine) CanAct(mission *entity.MissionOrder, actor workflow.Actor) bool { return false }

func (m *mockEngine) AvailableActions(mission *entity.MissionOrder, actor workflow.Actor) []workflow.Trigger {
	return nil
}

func (m *mockEngine) History(ctx context.Context, id string) ([]*entity.MissionSignature, error) {
	return nil, nil
}

type mockRenderer struct {
	got *port.MissionDocument
	err error
}

func (m *mockRenderer) Render(ctx context.Context, doc *port.MissionDocument) ([]byte, error) {
	m.got = doc
	if m.err != nil {
		return nil, m.err
	}
	return []byte("xlsx"), nil
}

func (m *mockRenderer) ContentType() string   { return "application/test" }
func (m *mockRenderer) FileExtension() string { return ".xlsx" }

type mockNotifier struct {
	mu   sync.Mutex
	sent []port.Recipient
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, to port.Recipient, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

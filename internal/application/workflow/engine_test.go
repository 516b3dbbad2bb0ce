package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/event"
	domainwf "github.com/garyjia/mission-orders/internal/domain/workflow"
)

// Mock implementations

// memStore backs the mock repositories and supports tx rollback via snapshots
type memStore struct {
	mu         sync.Mutex
	missions   map[string]entity.MissionOrder
	signatures []*entity.MissionSignature
	spent      map[string]float64

	// unconditioned makes UpdateStatus ignore the expected status
	unconditioned bool
	// onGet runs after every GetByID read
	onGet        func()
	signatureErr error
}

func newMemStore(missions ...*entity.MissionOrder) *memStore {
	s := &memStore{
		missions: make(map[string]entity.MissionOrder),
		spent:    make(map[string]float64),
	}
	for _, m := range missions {
		s.missions[m.ID] = *m
	}
	return s
}

func (s *memStore) status(id string) domainwf.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missions[id].Status
}

func (s *memStore) signaturesFor(id string) []*entity.MissionSignature {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.MissionSignature
	for _, sig := range s.signatures {
		if sig.MissionID == id {
			out = append(out, sig)
		}
	}
	return out
}

type mockMissionRepo struct{ s *memStore }

func (m *mockMissionRepo) Create(ctx context.Context, mission *entity.MissionOrder) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.missions[mission.ID] = *mission
	return nil
}

func (m *mockMissionRepo) GetByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	m.s.mu.Lock()
	mission, ok := m.s.missions[id]
	hook := m.s.onGet
	m.s.mu.Unlock()

	if !ok {
		return nil, port.ErrNotFound
	}
	if hook != nil {
		hook()
	}
	return &mission, nil
}

func (m *mockMissionRepo) GetByReference(ctx context.Context, reference string) (*entity.MissionOrder, error) {
	return nil, port.ErrNotFound
}

func (m *mockMissionRepo) UpdateDraft(ctx context.Context, mission *entity.MissionOrder) error {
	return errors.New("not used")
}

func (m *mockMissionRepo) UpdateStatus(ctx context.Context, id string, from, to domainwf.State, reason string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mission, ok := m.s.missions[id]
	if !ok || (!m.s.unconditioned && mission.Status != from) {
		return domainwf.ErrConflict
	}
	mission.Status = to
	mission.RejectionReason = reason
	m.s.missions[id] = mission
	return nil
}

func (m *mockMissionRepo) MarkPaid(ctx context.Context, id string, payment port.PaymentUpdate) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mission, ok := m.s.missions[id]
	if !ok || mission.Status != domainwf.StateApproved {
		return domainwf.ErrConflict
	}
	mission.Status = domainwf.StatePaid
	mission.ActualAmount = &payment.ActualAmount
	m.s.missions[id] = mission
	return nil
}

func (m *mockMissionRepo) DeleteDraft(ctx context.Context, id string) error {
	return errors.New("not used")
}

func (m *mockMissionRepo) List(ctx context.Context, filter port.MissionFilter) ([]*entity.MissionOrder, error) {
	return nil, nil
}

func (m *mockMissionRepo) Stats(ctx context.Context) (*port.MissionStats, error) {
	return &port.MissionStats{}, nil
}

type mockSignatureRepo struct{ s *memStore }

func (m *mockSignatureRepo) Create(ctx context.Context, sig *entity.MissionSignature) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.signatureErr != nil {
		return m.s.signatureErr
	}
	m.s.signatures = append(m.s.signatures, sig)
	return nil
}

func (m *mockSignatureRepo) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionSignature, error) {
	out := m.s.signaturesFor(missionID)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SignedAt.Before(out[j].SignedAt) })
	return out, nil
}

type mockProjectRepo struct{ s *memStore }

func (m *mockProjectRepo) Create(ctx context.Context, p *entity.Project) error { return nil }

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	return nil, port.ErrNotFound
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*entity.Project, error) { return nil, nil }

func (m *mockProjectRepo) AddSpent(ctx context.Context, id string, amount float64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.spent[id] += amount
	return nil
}

// mockTxManager serializes transactions and restores the store when fn fails
type mockTxManager struct {
	s         *memStore
	txMu      sync.Mutex
	commitErr error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.s.mu.Lock()
	missions := make(map[string]entity.MissionOrder, len(m.s.missions))
	for k, v := range m.s.missions {
		missions[k] = v
	}
	signatures := append([]*entity.MissionSignature(nil), m.s.signatures...)
	m.s.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		err = m.commitErr
	}
	if err != nil {
		m.s.mu.Lock()
		m.s.missions = missions
		m.s.signatures = signatures
		m.s.mu.Unlock()
	}
	return err
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) SubscribeMany(eventTypes []event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

// Fixtures

type fixture struct {
	store      *memStore
	tx         *mockTxManager
	dispatcher *mockDispatcher
	engine     WorkflowEngine
}

func newMission(id string, status domainwf.State) *entity.MissionOrder {
	start := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	m := &entity.MissionOrder{
		ID:              id,
		Reference:       "OM-2025-" + id,
		AgentID:         "agent-1",
		Title:           "Site visit",
		Destination:     "Yamoussoukro",
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 3),
		EstimatedAmount: 60000,
		Status:          status,
	}
	return m
}

// tickingClock returns strictly increasing timestamps
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func newFixture(missions ...*entity.MissionOrder) *fixture {
	store := newMemStore(missions...)
	tx := &mockTxManager{s: store}
	d := &mockDispatcher{}
	engine := NewEngine(
		&mockMissionRepo{s: store},
		&mockSignatureRepo{s: store},
		&mockProjectRepo{s: store},
		tx,
		WithDispatcher(d),
		WithClock(tickingClock()),
	)
	return &fixture{store: store, tx: tx, dispatcher: d, engine: engine}
}

var (
	chef      = domainwf.NewActor("chef-1", domainwf.RoleChefService)
	director  = domainwf.NewActor("dir-1", domainwf.RoleDirecteur)
	director2 = domainwf.NewActor("dir-2", domainwf.RoleDirecteur)
	financier = domainwf.NewActor("fin-1", domainwf.RoleFinance)
	owner     = domainwf.NewActor("agent-1", domainwf.RoleAgent)
	superuser = domainwf.NewActor("agent-1", domainwf.RoleAgent, domainwf.RoleChefService,
		domainwf.RoleDirecteur, domainwf.RoleFinance, domainwf.RoleAdmin)
)

// Test factory

func TestBuildMissionStateMachine(t *testing.T) {
	tests := []struct {
		name      string
		initial   domainwf.State
		trigger   domainwf.Trigger
		wantState domainwf.State
		wantError bool
	}{
		{"draft -> pending_service on submit", domainwf.StateDraft, domainwf.TriggerSubmit, domainwf.StatePendingService, false},
		{"draft stays draft on delete", domainwf.StateDraft, domainwf.TriggerDelete, domainwf.StateDraft, false},
		{"pending_service -> pending_director on approve", domainwf.StatePendingService, domainwf.TriggerApprove, domainwf.StatePendingDirector, false},
		{"pending_director -> pending_finance on approve", domainwf.StatePendingDirector, domainwf.TriggerApprove, domainwf.StatePendingFinance, false},
		{"pending_finance -> approved on approve", domainwf.StatePendingFinance, domainwf.TriggerApprove, domainwf.StateApproved, false},
		{"pending_director -> rejected on reject", domainwf.StatePendingDirector, domainwf.TriggerReject, domainwf.StateRejected, false},
		{"approved -> paid on mark_paid", domainwf.StateApproved, domainwf.TriggerMarkPaid, domainwf.StatePaid, false},
		{"draft cannot be approved", domainwf.StateDraft, domainwf.TriggerApprove, "", true},
		{"submitted mission cannot be deleted", domainwf.StatePendingService, domainwf.TriggerDelete, "", true},
		{"pending cannot be paid", domainwf.StatePendingFinance, domainwf.TriggerMarkPaid, "", true},
		{"rejected is terminal", domainwf.StateRejected, domainwf.TriggerSubmit, "", true},
		{"paid is terminal", domainwf.StatePaid, domainwf.TriggerApprove, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildMissionStateMachine(newMission("m1", tt.initial), superuser)
			err := machine.Fire(context.Background(), tt.trigger)

			if tt.wantError {
				if !errors.Is(err, domainwf.ErrInvalidTransition) {
					t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fire() error = %v", err)
			}
			if machine.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", machine.State(), tt.wantState)
			}
		})
	}
}

func TestStateMachineGuards(t *testing.T) {
	tests := []struct {
		name    string
		status  domainwf.State
		actor   domainwf.Actor
		trigger domainwf.Trigger
	}{
		{"stranger submits", domainwf.StateDraft, domainwf.NewActor("agent-2", domainwf.RoleAgent, domainwf.RoleAdmin), domainwf.TriggerSubmit},
		{"stranger deletes", domainwf.StateDraft, chef, domainwf.TriggerDelete},
		{"director approves at service stage", domainwf.StatePendingService, director, domainwf.TriggerApprove},
		{"chef rejects at finance stage", domainwf.StatePendingFinance, chef, domainwf.TriggerReject},
		{"agent pays", domainwf.StateApproved, owner, domainwf.TriggerMarkPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildMissionStateMachine(newMission("m1", tt.status), tt.actor)
			if !machine.CanFire(tt.trigger) {
				t.Fatalf("%s should be configured from %s", tt.trigger, tt.status)
			}
			err := machine.Fire(context.Background(), tt.trigger)
			if !errors.Is(err, domainwf.ErrGuardFailed) || !errors.Is(err, domainwf.ErrUnauthorized) {
				t.Errorf("Fire() error = %v, want ErrGuardFailed matching ErrUnauthorized", err)
			}
			if machine.State() != tt.status {
				t.Errorf("State() = %v, want %v", machine.State(), tt.status)
			}
		})
	}
}

func TestStateMachineAgreesWithDecide(t *testing.T) {
	roleSets := []domainwf.RoleSet{
		superuser.Roles,
		domainwf.NewRoleSet(domainwf.RoleChefService),
		domainwf.NewRoleSet(domainwf.RoleDirecteur),
		domainwf.NewRoleSet(domainwf.RoleFinance),
		domainwf.NewRoleSet(domainwf.RoleAgent),
	}

	for _, status := range domainwf.AllStates() {
		for _, roles := range roleSets {
			actor := domainwf.Actor{ID: "someone", Roles: roles}
			for _, trigger := range []domainwf.Trigger{domainwf.TriggerApprove, domainwf.TriggerReject} {
				target, machineErr := BuildMissionStateMachine(newMission("m1", status), actor).Target(context.Background(), trigger)
				decision, decideErr := domainwf.Decide(status, trigger, roles)

				if (machineErr == nil) != (decideErr == nil) {
					t.Errorf("%s/%s/%v: machine err %v, decide err %v", status, trigger, roles, machineErr, decideErr)
					continue
				}
				if decideErr == nil && target != decision.To {
					t.Errorf("%s/%s: machine -> %s, decide -> %s", status, trigger, target, decision.To)
				}
				if errors.Is(decideErr, domainwf.ErrUnauthorized) != errors.Is(machineErr, domainwf.ErrUnauthorized) {
					t.Errorf("%s/%s/%v: machine err %v, decide err %v", status, trigger, roles, machineErr, decideErr)
				}
			}
		}
	}
}

// Test engine

func TestEngine_Submit(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StateDraft))

	mission, err := f.engine.Submit(context.Background(), "m1", owner)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if mission.Status != domainwf.StatePendingService || f.store.status("m1") != domainwf.StatePendingService {
		t.Errorf("status = %v / %v, want pending_service", mission.Status, f.store.status("m1"))
	}
	if got := len(f.store.signaturesFor("m1")); got != 0 {
		t.Errorf("submit should not sign, got %d signatures", got)
	}
	types := f.dispatcher.types()
	if len(types) != 2 || types[0] != event.TypeMissionSubmitted || types[1] != event.TypeStatusChanged {
		t.Errorf("events = %v", types)
	}
}

func TestEngine_SubmitRequiresOwner(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StateDraft))

	_, err := f.engine.Submit(context.Background(), "m1", domainwf.NewActor("agent-2", domainwf.RoleAgent, domainwf.RoleAdmin))
	if !errors.Is(err, domainwf.ErrUnauthorized) {
		t.Errorf("Submit() error = %v, want ErrUnauthorized", err)
	}
	if f.store.status("m1") != domainwf.StateDraft {
		t.Error("status should remain draft")
	}
}

func TestEngine_SubmitTwice(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingService))

	_, err := f.engine.Submit(context.Background(), "m1", owner)
	if !errors.Is(err, domainwf.ErrInvalidTransition) {
		t.Errorf("Submit() error = %v, want ErrInvalidTransition", err)
	}
}

func TestEngine_FullApprovalChain(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingService))
	ctx := context.Background()

	steps := []struct {
		actor domainwf.Actor
		want  domainwf.State
	}{
		{chef, domainwf.StatePendingDirector},
		{director, domainwf.StatePendingFinance},
		{financier, domainwf.StateApproved},
	}
	for _, step := range steps {
		mission, err := f.engine.Approve(ctx, "m1", step.actor, ActionInput{Comment: "ok"})
		if err != nil {
			t.Fatalf("Approve() by %s error = %v", step.actor.ID, err)
		}
		if mission.Status != step.want {
			t.Fatalf("status = %v, want %v", mission.Status, step.want)
		}
	}

	history, err := f.engine.History(ctx, "m1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	wantRoles := []domainwf.Role{domainwf.RoleChefService, domainwf.RoleDirecteur, domainwf.RoleFinance}
	if len(history) != 3 {
		t.Fatalf("expected 3 signatures, got %d", len(history))
	}
	for i, sig := range history {
		if sig.SignerRole != wantRoles[i] || sig.Action != domainwf.ActionApproved {
			t.Errorf("signature %d = %s/%s, want %s/approved", i, sig.SignerRole, sig.Action, wantRoles[i])
		}
		if i > 0 && !history[i-1].SignedAt.Before(sig.SignedAt) {
			t.Errorf("signatures not in timestamp order at %d", i)
		}
	}

	types := f.dispatcher.types()
	if types[len(types)-2] != event.TypeMissionApproved {
		t.Errorf("final event = %v, want %v", types[len(types)-2], event.TypeMissionApproved)
	}
}

func TestEngine_ApproveWrongRole(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingDirector))

	_, err := f.engine.Approve(context.Background(), "m1", chef, ActionInput{})
	if !errors.Is(err, domainwf.ErrUnauthorized) {
		t.Fatalf("Approve() error = %v, want ErrUnauthorized", err)
	}
	if f.store.status("m1") != domainwf.StatePendingDirector {
		t.Error("status should remain pending_director")
	}
	if len(f.store.signaturesFor("m1")) != 0 {
		t.Error("no signature should be recorded")
	}
	if len(f.dispatcher.types()) != 0 {
		t.Error("no event should be emitted")
	}
}

func TestEngine_OnlyStageRoleCanActAtPendingService(t *testing.T) {
	others := []domainwf.Role{domainwf.RoleAgent, domainwf.RoleDirecteur, domainwf.RoleFinance, domainwf.RoleAdmin}

	for _, role := range others {
		for _, act := range []string{"approve", "reject"} {
			t.Run(fmt.Sprintf("%s_%s", role, act), func(t *testing.T) {
				f := newFixture(newMission("m1", domainwf.StatePendingService))
				actor := domainwf.NewActor("u-"+string(role), role)
				in := ActionInput{Comment: "because"}

				var err error
				if act == "approve" {
					_, err = f.engine.Approve(context.Background(), "m1", actor, in)
				} else {
					_, err = f.engine.Reject(context.Background(), "m1", actor, in)
				}
				if !errors.Is(err, domainwf.ErrUnauthorized) {
					t.Errorf("error = %v, want ErrUnauthorized", err)
				}
				if len(f.store.signaturesFor("m1")) != 0 {
					t.Error("no signature should be recorded")
				}
			})
		}
	}
}

func TestEngine_SignatureUsesStageRole(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingDirector))
	multi := domainwf.NewActor("boss", domainwf.RoleChefService, domainwf.RoleDirecteur, domainwf.RoleFinance)

	if _, err := f.engine.Approve(context.Background(), "m1", multi, ActionInput{}); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	sigs := f.store.signaturesFor("m1")
	if len(sigs) != 1 || sigs[0].SignerRole != domainwf.RoleDirecteur || sigs[0].SignerID != "boss" {
		t.Errorf("signature = %+v", sigs[0])
	}
}

func TestEngine_ApproveNotPending(t *testing.T) {
	for _, status := range []domainwf.State{domainwf.StateDraft, domainwf.StateApproved, domainwf.StateRejected, domainwf.StatePaid} {
		t.Run(string(status), func(t *testing.T) {
			m := newMission("m1", status)
			if status == domainwf.StateRejected {
				m.RejectionReason = "no"
			}
			f := newFixture(m)
			superUser := domainwf.NewActor("x", domainwf.RoleChefService, domainwf.RoleDirecteur, domainwf.RoleFinance)

			_, err := f.engine.Approve(context.Background(), "m1", superUser, ActionInput{})
			if !errors.Is(err, domainwf.ErrInvalidTransition) {
				t.Errorf("Approve() error = %v, want ErrInvalidTransition", err)
			}
			if len(f.store.signaturesFor("m1")) != 0 {
				t.Error("no signature should be recorded")
			}
		})
	}
}

func TestEngine_Reject(t *testing.T) {
	tests := []struct {
		status domainwf.State
		actor  domainwf.Actor
	}{
		{domainwf.StatePendingService, chef},
		{domainwf.StatePendingDirector, director},
		{domainwf.StatePendingFinance, financier},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(newMission("m1", tt.status))

			mission, err := f.engine.Reject(context.Background(), "m1", tt.actor, ActionInput{Comment: "  budget insufficient "})
			if err != nil {
				t.Fatalf("Reject() error = %v", err)
			}
			if mission.Status != domainwf.StateRejected || mission.RejectionReason != "budget insufficient" {
				t.Errorf("mission = %s/%q", mission.Status, mission.RejectionReason)
			}
			if err := mission.Validate(); err != nil {
				t.Errorf("rejected mission should be valid: %v", err)
			}

			sigs := f.store.signaturesFor("m1")
			if len(sigs) != 1 || sigs[0].Action != domainwf.ActionRejected || sigs[0].Comment != "budget insufficient" {
				t.Errorf("signatures = %+v", sigs)
			}
			if f.dispatcher.types()[0] != event.TypeMissionRejected {
				t.Errorf("event = %v", f.dispatcher.types()[0])
			}
		})
	}
}

func TestEngine_RejectRequiresComment(t *testing.T) {
	for _, comment := range []string{"", "   ", "\n\t"} {
		f := newFixture(newMission("m1", domainwf.StatePendingService))

		_, err := f.engine.Reject(context.Background(), "m1", chef, ActionInput{Comment: comment})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("Reject(%q) error = %v, want ErrValidation", comment, err)
		}
		if f.store.status("m1") != domainwf.StatePendingService {
			t.Error("status should be unchanged")
		}
		if len(f.store.signaturesFor("m1")) != 0 {
			t.Error("no signature should be recorded")
		}
	}
}

func TestEngine_StaleExpectedStatus(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingFinance))

	_, err := f.engine.Approve(context.Background(), "m1", financier, ActionInput{ExpectedStatus: domainwf.StatePendingDirector})
	if !errors.Is(err, domainwf.ErrConflict) {
		t.Errorf("Approve() error = %v, want ErrConflict", err)
	}
	if f.store.status("m1") != domainwf.StatePendingFinance {
		t.Error("status should be unchanged")
	}
}

func TestEngine_SignatureFailureRollsBack(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingService))
	f.store.signatureErr = errors.New("disk full")

	_, err := f.engine.Approve(context.Background(), "m1", chef, ActionInput{})
	if err == nil {
		t.Fatal("expected error")
	}
	if f.store.status("m1") != domainwf.StatePendingService {
		t.Errorf("status = %v, want rollback to pending_service", f.store.status("m1"))
	}
	if len(f.dispatcher.types()) != 0 {
		t.Error("no event should be emitted on failure")
	}
}

func TestEngine_CommitFailureIsRetryable(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingService))
	f.tx.commitErr = errors.New("database unreachable")

	if _, err := f.engine.Approve(context.Background(), "m1", chef, ActionInput{}); err == nil {
		t.Fatal("expected error")
	}
	if len(f.store.signaturesFor("m1")) != 0 {
		t.Fatal("failed commit should leave no signature")
	}

	f.tx.commitErr = nil
	if _, err := f.engine.Approve(context.Background(), "m1", chef, ActionInput{}); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if got := len(f.store.signaturesFor("m1")); got != 1 {
		t.Errorf("expected exactly one signature after retry, got %d", got)
	}
}

func TestEngine_ConcurrentApprovalsOneWins(t *testing.T) {
	f := newFixture(newMission("m1", domainwf.StatePendingDirector))

	// Both callers read the mission before either writes
	var barrier sync.WaitGroup
	barrier.Add(2)
	f.store.onGet = func() {
		barrier.Done()
		barrier.Wait()
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, actor := range []domainwf.Actor{director, director2} {
		wg.Add(1)
		go func(i int, actor domainwf.Actor) {
			defer wg.Done()
			_, errs[i] = f.engine.Approve(context.Background(), "m1", actor, ActionInput{})
		}(i, actor)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainwf.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Errorf("successes=%d conflicts=%d, want 1/1", successes, conflicts)
	}
	if f.store.status("m1") != domainwf.StatePendingFinance {
		t.Errorf("status = %v, want pending_finance", f.store.status("m1"))
	}
	if got := len(f.store.signaturesFor("m1")); got != 1 {
		t.Errorf("expected 1 signature, got %d", got)
	}
}

func TestEngine_MissionLocksWithoutConditionedWrites(t *testing.T) {
	store := newMemStore(newMission("m1", domainwf.StatePendingDirector))
	store.unconditioned = true
	locks := NewMissionLocks()
	engine := NewEngine(&mockMissionRepo{s: store}, &mockSignatureRepo{s: store}, &mockProjectRepo{s: store},
		&mockTxManager{s: store}, WithMissionLocks(locks), WithClock(tickingClock()))

	in := ActionInput{ExpectedStatus: domainwf.StatePendingDirector}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, actor := range []domainwf.Actor{director, director2} {
		wg.Add(1)
		go func(i int, actor domainwf.Actor) {
			defer wg.Done()
			_, errs[i] = engine.Approve(context.Background(), "m1", actor, in)
		}(i, actor)
	}
	wg.Wait()

	if (errs[0] == nil) == (errs[1] == nil) {
		t.Fatalf("expected exactly one success, got %v / %v", errs[0], errs[1])
	}
	for _, err := range errs {
		if err != nil && !errors.Is(err, domainwf.ErrConflict) {
			t.Errorf("loser error = %v, want ErrConflict", err)
		}
	}
	if got := len(store.signaturesFor("m1")); got != 1 {
		t.Errorf("expected 1 signature, got %d", got)
	}
	if locks.Len() != 0 {
		t.Errorf("lock table should be empty, has %d", locks.Len())
	}
}

func TestEngine_MarkPaid(t *testing.T) {
	m := newMission("m1", domainwf.StateApproved)
	project := "p1"
	m.ProjectID = &project
	f := newFixture(m)

	mission, err := f.engine.MarkPaid(context.Background(), "m1", financier, PaymentInput{ActualAmount: 58000, Method: "transfer"})
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if mission.Status != domainwf.StatePaid || mission.ActualAmount == nil || *mission.ActualAmount != 58000 {
		t.Errorf("mission = %+v", mission)
	}
	if mission.PaymentDate == nil || mission.PaymentMethod != "transfer" {
		t.Error("payment metadata should be set")
	}
	if f.store.spent["p1"] != 58000 {
		t.Errorf("project spent = %v, want 58000", f.store.spent["p1"])
	}
}

func TestEngine_MarkPaidErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  domainwf.State
		actor   domainwf.Actor
		amount  float64
		wantErr error
	}{
		{"agent cannot pay", domainwf.StateApproved, owner, 10, domainwf.ErrUnauthorized},
		{"negative amount", domainwf.StateApproved, financier, -1, domainwf.ErrValidation},
		{"not approved yet", domainwf.StatePendingFinance, financier, 10, domainwf.ErrInvalidTransition},
		{"already paid", domainwf.StatePaid, domainwf.NewActor("adm", domainwf.RoleAdmin), 10, domainwf.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newMission("m1", tt.status))
			_, err := f.engine.MarkPaid(context.Background(), "m1", tt.actor, PaymentInput{ActualAmount: tt.amount})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("MarkPaid() error = %v, want %v", err, tt.wantErr)
			}
			if f.store.status("m1") != tt.status {
				t.Error("status should be unchanged")
			}
		})
	}
}

func TestEngine_NotFound(t *testing.T) {
	f := newFixture()

	if _, err := f.engine.Approve(context.Background(), "missing", chef, ActionInput{}); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("Approve() error = %v, want ErrNotFound", err)
	}
	if _, err := f.engine.History(context.Background(), "missing"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("History() error = %v, want ErrNotFound", err)
	}
}

func TestEngine_AvailableActions(t *testing.T) {
	f := newFixture()
	admin := domainwf.NewActor("adm", domainwf.RoleAdmin)

	tests := []struct {
		name   string
		status domainwf.State
		actor  domainwf.Actor
		want   []domainwf.Trigger
	}{
		{"owner on draft", domainwf.StateDraft, owner, []domainwf.Trigger{domainwf.TriggerDelete, domainwf.TriggerSubmit}},
		{"stranger on draft", domainwf.StateDraft, chef, []domainwf.Trigger{}},
		{"chef on pending_service", domainwf.StatePendingService, chef, []domainwf.Trigger{domainwf.TriggerApprove, domainwf.TriggerReject}},
		{"owner on pending_service", domainwf.StatePendingService, owner, []domainwf.Trigger{}},
		{"admin on approved", domainwf.StateApproved, admin, []domainwf.Trigger{domainwf.TriggerMarkPaid}},
		{"finance on paid", domainwf.StatePaid, financier, []domainwf.Trigger{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.engine.AvailableActions(newMission("m1", tt.status), tt.actor)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("AvailableActions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissionLocks_Serializes(t *testing.T) {
	locks := NewMissionLocks()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("m1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if locks.Len() != 0 {
		t.Errorf("Len() = %d, want 0", locks.Len())
	}
}

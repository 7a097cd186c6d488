package engine_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
	"stakeboard/internal/events"
)

func newTestEngine() engine.Engine {
	seq := 0
	e := engine.New()
	e.Events = events.Writer{
		Now: func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
	return e
}

func strPtr(s string) *string { return &s }

func TestAddTaskAppendsAndLogs(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	next := e.Reduce(prev, engine.AddTask{Title: "Write docs", Priority: domain.PriorityLow})

	if len(next.Tasks) != len(prev.Tasks)+1 {
		t.Fatalf("expected %d tasks, got %d", len(prev.Tasks)+1, len(next.Tasks))
	}
	added := next.Tasks[len(next.Tasks)-1]
	for _, old := range prev.Tasks {
		if old.ID == added.ID {
			t.Fatalf("new task reused id %s", added.ID)
		}
	}
	if added.Status != domain.TaskBacklog {
		t.Fatalf("expected default status backlog, got %s", added.Status)
	}
	if added.CreatedAt != "2024-03-01T12:00:00Z" || added.UpdatedAt != added.CreatedAt {
		t.Fatalf("unexpected timestamps %s / %s", added.CreatedAt, added.UpdatedAt)
	}
	if len(next.Activities) != len(prev.Activities)+1 {
		t.Fatalf("expected exactly one new activity")
	}
	act := next.Activities[0]
	if act.Type != domain.ActivityCreated || act.EntityID != added.ID || act.EntityTitle != "Write docs" {
		t.Fatalf("unexpected activity %+v", act)
	}
	if len(prev.Tasks) != 5 {
		t.Fatalf("input state mutated")
	}
}

func TestUpdateTaskMergesFields(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	next := e.Reduce(prev, engine.UpdateTask{ID: "task-2", Updates: engine.TaskPatch{
		Title:       strPtr("Build SSO"),
		ExecutorIDs: &[]string{"person-2", "person-4"},
	}})
	got, ok := engine.FindTask(next, "task-2")
	if !ok {
		t.Fatalf("task-2 missing")
	}
	if got.Title != "Build SSO" || len(got.ExecutorIDs) != 2 {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Description != "SAML and OIDC login for enterprise tenants." {
		t.Fatalf("unpatched field changed: %q", got.Description)
	}
	if got.UpdatedAt != "2024-03-01T12:00:00Z" {
		t.Fatalf("updated_at not refreshed: %s", got.UpdatedAt)
	}
	if next.Activities[0].Type != domain.ActivityUpdated {
		t.Fatalf("expected updated activity, got %s", next.Activities[0].Type)
	}
	orig, _ := engine.FindTask(prev, "task-2")
	if orig.Title != "Build SSO integration" {
		t.Fatalf("input state mutated: %q", orig.Title)
	}
}

func TestUpdateMissingIsNoop(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	cases := []engine.Action{
		engine.UpdateTask{ID: "nope", Updates: engine.TaskPatch{Title: strPtr("x")}},
		engine.MoveTask{ID: "nope", Status: domain.TaskDone},
		engine.UpdatePerson{ID: "nope", Updates: engine.PersonPatch{Name: strPtr("x")}},
		engine.UpdateRequirement{ID: "nope", Updates: engine.RequirementPatch{Notes: strPtr("x")}},
		engine.DeleteTask{ID: "nope"},
		engine.DeletePerson{ID: "nope"},
		engine.DeleteRequirement{ID: "nope"},
	}
	for _, a := range cases {
		next := e.Reduce(prev, a)
		if !reflect.DeepEqual(prev, next) {
			t.Fatalf("%s on missing id changed state", a.Type())
		}
	}
}

func TestMoveTaskSameStatusIsNoop(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	next := e.Reduce(prev, engine.MoveTask{ID: "task-1", Status: domain.TaskInProgress})
	if !reflect.DeepEqual(prev, next) {
		t.Fatalf("expected unchanged state")
	}
}

func TestMoveTaskRecordsStatusChange(t *testing.T) {
	e := newTestEngine()
	next := e.Reduce(engine.SampleState(), engine.MoveTask{ID: "task-1", Status: domain.TaskReview})
	got, _ := engine.FindTask(next, "task-1")
	if got.Status != domain.TaskReview {
		t.Fatalf("status not moved: %s", got.Status)
	}
	act := next.Activities[0]
	if act.Type != domain.ActivityStatusChanged || !strings.Contains(act.Description, "review") {
		t.Fatalf("unexpected activity %+v", act)
	}
}

func TestDeleteTaskClearsSelection(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.SelectTask{ID: "task-3"})
	activities := len(s.Activities)
	s = e.Reduce(s, engine.DeleteTask{ID: "task-3"})
	if _, ok := engine.FindTask(s, "task-3"); ok {
		t.Fatalf("task not deleted")
	}
	if s.SelectedTaskID != "" {
		t.Fatalf("selection not cleared")
	}
	if len(s.Activities) != activities {
		t.Fatalf("delete must not record activity")
	}
}

func TestDeletePersonPrunesAndCascades(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.SelectPerson{ID: "person-1"})
	activities := len(s.Activities)
	s = e.Reduce(s, engine.DeletePerson{ID: "person-1"})

	if _, ok := engine.FindPerson(s, "person-1"); ok {
		t.Fatalf("person not deleted")
	}
	for _, task := range s.Tasks {
		for _, id := range append(append([]string{}, task.StakeholderIDs...), task.ExecutorIDs...) {
			if id == "person-1" {
				t.Fatalf("task %s still references person-1", task.ID)
			}
		}
		for _, id := range task.RequirementIDs {
			if id == "req-1" || id == "req-2" {
				t.Fatalf("task %s still links cascaded requirement %s", task.ID, id)
			}
		}
	}
	if got := engine.RequirementsByStakeholder(s, "person-1"); len(got) != 0 {
		t.Fatalf("expected owned requirements removed, got %d", len(got))
	}
	if _, ok := engine.FindRequirement(s, "req-3"); !ok {
		t.Fatalf("unrelated requirement removed")
	}
	if s.SelectedPersonID != "" {
		t.Fatalf("selection not cleared")
	}
	if len(s.Activities) != activities {
		t.Fatalf("delete must not record activity")
	}
}

func TestDeleteUnrelatedPersonLeavesTaskRefs(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.AddTask{Title: "Loose", StakeholderIDs: []string{}, ExecutorIDs: []string{}})
	added := s.Tasks[len(s.Tasks)-1]
	s = e.Reduce(s, engine.DeletePerson{ID: "person-4"})
	got, _ := engine.FindTask(s, added.ID)
	if !reflect.DeepEqual(got.StakeholderIDs, added.StakeholderIDs) || !reflect.DeepEqual(got.ExecutorIDs, added.ExecutorIDs) {
		t.Fatalf("reference sets changed: %+v", got)
	}
}

func TestUpdatePersonRecordsNoActivity(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	next := e.Reduce(prev, engine.UpdatePerson{ID: "person-2", Updates: engine.PersonPatch{
		Company:    strPtr("Globex"),
		PersonType: &[]domain.PersonRole{},
	}})
	p, _ := engine.FindPerson(next, "person-2")
	if p.Company != "Globex" {
		t.Fatalf("company not updated")
	}
	if len(p.PersonType) != 1 || p.PersonType[0] != domain.RoleExecutor {
		t.Fatalf("empty role patch must keep roles, got %v", p.PersonType)
	}
	if len(next.Activities) != len(prev.Activities) {
		t.Fatalf("person update must not record activity")
	}
}

func TestAddPersonWithoutRolesIgnored(t *testing.T) {
	e := newTestEngine()
	prev := engine.SampleState()
	next := e.Reduce(prev, engine.AddPerson{Name: "Nobody"})
	if !reflect.DeepEqual(prev, next) {
		t.Fatalf("expected no-op for empty person_type")
	}
}

func TestStakeholderRequirementScenario(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.AddPerson{Name: "Dana", PersonType: []domain.PersonRole{domain.RoleStakeholder}})
	person := s.People[len(s.People)-1]
	s = e.Reduce(s, engine.AddRequirement{Title: "Audit log", StakeholderID: person.ID})

	reqs := engine.RequirementsByStakeholder(s, person.ID)
	if len(reqs) != 1 || reqs[0].Title != "Audit log" {
		t.Fatalf("expected exactly the new requirement, got %+v", reqs)
	}
	if !strings.Contains(s.Activities[0].Description, "Dana") {
		t.Fatalf("expected stakeholder named in activity, got %q", s.Activities[0].Description)
	}
}

func TestUpdateRequirementActivityKinds(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.AddRequirement{Title: "Exports", StakeholderID: "person-3", Status: domain.RequirementDraft})
	req := s.Requirements[len(s.Requirements)-1]

	s = e.Reduce(s, engine.UpdateRequirement{ID: req.ID, Updates: engine.RequirementPatch{Notes: strPtr("CSV first")}})
	if s.Activities[0].Type != domain.ActivityUpdated {
		t.Fatalf("notes-only update: expected updated, got %s", s.Activities[0].Type)
	}

	approved := domain.RequirementApproved
	s = e.Reduce(s, engine.UpdateRequirement{ID: req.ID, Updates: engine.RequirementPatch{Status: &approved}})
	act := s.Activities[0]
	if act.Type != domain.ActivityStatusChanged || !strings.Contains(act.Description, "approved") {
		t.Fatalf("status update: unexpected activity %+v", act)
	}

	count := len(s.Activities)
	s = e.Reduce(s, engine.UpdateRequirement{ID: req.ID, Updates: engine.RequirementPatch{Status: &approved}})
	if len(s.Activities) != count+1 || s.Activities[0].Type != domain.ActivityUpdated {
		t.Fatalf("same-status update should record one updated activity")
	}
}

func TestDeleteRequirementUnlinksTasks(t *testing.T) {
	e := newTestEngine()
	s := e.Reduce(engine.SampleState(), engine.DeleteRequirement{ID: "req-2"})
	task, _ := engine.FindTask(s, "task-2")
	if len(task.RequirementIDs) != 0 {
		t.Fatalf("expected req-2 unlinked, got %v", task.RequirementIDs)
	}
}

func TestLoadStateReplaces(t *testing.T) {
	e := newTestEngine()
	snapshot := domain.State{
		People:       []domain.Person{{ID: "p", Name: "Solo", PersonType: []domain.PersonRole{}}},
		Tasks:        []domain.Task{},
		Requirements: []domain.Requirement{},
		Activities:   []domain.Activity{},
		ActiveView:   domain.ViewPeople,
	}
	store := engine.NewStore(e, engine.SampleState())
	store.Dispatch(engine.LoadState{State: snapshot})
	if !reflect.DeepEqual(store.State(), snapshot) {
		t.Fatalf("load state did not replace tree")
	}
	store.Dispatch(engine.ResetState{})
	if !reflect.DeepEqual(store.State(), engine.SampleState()) {
		t.Fatalf("reset did not restore sample data")
	}
}

func TestStoreNotifiesOnChangeOnly(t *testing.T) {
	store := engine.NewStore(newTestEngine(), engine.SampleState())
	var seen []domain.State
	unsubscribe := store.Subscribe(func(next domain.State) { seen = append(seen, next) })

	if _, changed := store.Dispatch(engine.SetView{View: domain.ViewTasks}); !changed {
		t.Fatalf("expected change")
	}
	if _, changed := store.Dispatch(engine.SetView{View: domain.ViewTasks}); changed {
		t.Fatalf("expected no change")
	}
	if len(seen) != 1 || seen[0].ActiveView != domain.ViewTasks {
		t.Fatalf("unexpected notifications %d", len(seen))
	}
	unsubscribe()
	store.Dispatch(engine.SetView{View: domain.ViewPeople})
	if len(seen) != 1 {
		t.Fatalf("listener called after unsubscribe")
	}
}

func TestDispatchIfChecksUnderLock(t *testing.T) {
	store := engine.NewStore(newTestEngine(), engine.SampleState())
	var notified int
	store.Subscribe(func(domain.State) { notified++ })
	errGone := errors.New("owner gone")
	ownerExists := func(s domain.State) error {
		if _, ok := engine.FindPerson(s, "person-1"); !ok {
			return errGone
		}
		return nil
	}
	add := engine.AddRequirement{Title: "Audit log", StakeholderID: "person-1"}

	next, changed, err := store.DispatchIf(ownerExists, add)
	if err != nil || !changed {
		t.Fatalf("expected accepted dispatch, got changed=%v err=%v", changed, err)
	}
	count := len(next.Requirements)

	store.Dispatch(engine.DeletePerson{ID: "person-1"})
	before := store.State()
	_, changed, err = store.DispatchIf(ownerExists, add)
	if !errors.Is(err, errGone) || changed {
		t.Fatalf("expected rejection, got changed=%v err=%v", changed, err)
	}
	if !reflect.DeepEqual(store.State(), before) {
		t.Fatalf("rejected dispatch changed state")
	}
	for _, r := range store.State().Requirements {
		if r.StakeholderID == "person-1" {
			t.Fatalf("requirement survives its owner: %+v", r)
		}
	}
	if count == 0 || notified != 2 {
		t.Fatalf("unexpected notifications %d", notified)
	}
}

func TestDispatchAllNotifiesOnce(t *testing.T) {
	store := engine.NewStore(newTestEngine(), engine.SampleState())
	var seen []domain.State
	store.Subscribe(func(next domain.State) { seen = append(seen, next) })

	next, changed := store.DispatchAll(engine.SelectPerson{ID: "person-3"}, engine.SelectTask{ID: "task-2"})
	if !changed || next.SelectedPersonID != "person-3" || next.SelectedTaskID != "task-2" {
		t.Fatalf("unexpected batch result %+v", next)
	}
	if len(seen) != 1 || !reflect.DeepEqual(seen[0], next) {
		t.Fatalf("expected one notification with the final state, got %d", len(seen))
	}
	if _, changed := store.DispatchAll(engine.SelectPerson{ID: "person-3"}); changed {
		t.Fatalf("repeating the selection should not change state")
	}
	if _, changed := store.DispatchAll(); changed {
		t.Fatalf("empty batch should not change state")
	}
}

func TestTasksByPersonRole(t *testing.T) {
	s := engine.SampleState()
	asStakeholder := engine.TasksByPerson(s, "person-3", domain.RoleStakeholder)
	asExecutor := engine.TasksByPerson(s, "person-3", domain.RoleExecutor)
	if len(asStakeholder) != 2 {
		t.Fatalf("expected 2 stakeholder tasks, got %d", len(asStakeholder))
	}
	if len(asExecutor) != 1 || asExecutor[0].ID != "task-3" {
		t.Fatalf("unexpected executor tasks %+v", asExecutor)
	}
	board := engine.TasksByStatus(s)
	if len(board) != len(domain.TaskStatuses) || len(board[domain.TaskDone]) != 1 {
		t.Fatalf("unexpected board grouping")
	}
}

func TestActionEnvelopeRoundTrip(t *testing.T) {
	status := domain.TaskReview
	prio := domain.PriorityHigh
	reqStatus := domain.RequirementApproved
	execs := []string{"person-3"}
	roles := []domain.PersonRole{domain.RoleStakeholder, domain.RoleExecutor}
	actions := []engine.Action{
		engine.AddTask{Title: "Ship export", Status: domain.TaskTodo, Priority: domain.PriorityUrgent, StakeholderIDs: []string{"person-1"}, ExecutorIDs: []string{"person-3"}, RequirementIDs: []string{"req-1"}, DueDate: "2024-04-01"},
		engine.UpdateTask{ID: "task-1", Updates: engine.TaskPatch{Title: strPtr("Renamed"), Status: &status, Priority: &prio, ExecutorIDs: &execs}},
		engine.DeleteTask{ID: "task-2"},
		engine.MoveTask{ID: "task-3", Status: domain.TaskDone},
		engine.AddPerson{Name: "Dana Reyes", Email: "dana@example.com", Company: "Acme", PersonType: roles},
		engine.UpdatePerson{ID: "person-1", Updates: engine.PersonPatch{Role: strPtr("CTO"), PersonType: &roles}},
		engine.DeletePerson{ID: "person-2"},
		engine.AddRequirement{Title: "Audit log", StakeholderID: "person-1", Status: domain.RequirementPending, Priority: domain.PriorityLow, Notes: "quarterly"},
		engine.UpdateRequirement{ID: "req-1", Updates: engine.RequirementPatch{Status: &reqStatus, Notes: strPtr("signed off")}},
		engine.DeleteRequirement{ID: "req-2"},
		engine.SetView{View: domain.ViewRequirements},
		engine.SelectPerson{ID: "person-1"},
		engine.SelectTask{ID: ""},
		engine.LoadState{State: domain.State{ActiveView: domain.ViewPeople, SelectedTaskID: "task-1"}},
		engine.ResetState{},
	}
	seen := map[engine.ActionType]bool{}
	for _, a := range actions {
		env, err := engine.Encode(a)
		if err != nil {
			t.Fatalf("encode %s: %v", a.Type(), err)
		}
		wire, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("marshal %s envelope: %v", a.Type(), err)
		}
		again, err := engine.Encode(a)
		if err != nil {
			t.Fatalf("encode %s: %v", a.Type(), err)
		}
		wire2, _ := json.Marshal(again)
		if string(wire) != string(wire2) {
			t.Fatalf("%s encodes differently twice: %s vs %s", a.Type(), wire, wire2)
		}
		var back engine.Envelope
		if err := json.Unmarshal(wire, &back); err != nil {
			t.Fatalf("unmarshal %s envelope: %v", a.Type(), err)
		}
		got, err := engine.Decode(back)
		if err != nil {
			t.Fatalf("decode %s: %v", a.Type(), err)
		}
		if !reflect.DeepEqual(got, a) {
			t.Fatalf("%s round trip mismatch:\n got %#v\nwant %#v", a.Type(), got, a)
		}
		seen[a.Type()] = true
	}
	if len(seen) != 15 {
		t.Fatalf("expected all 15 action types, covered %d", len(seen))
	}
	if _, err := engine.Decode(engine.Envelope{Type: "NOPE"}); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
}

package engine

import (
	"fmt"
	"time"

	"stakeboard/internal/domain"
	"stakeboard/internal/events"
)

// Engine owns the transition function. It holds no state of its own; Now and
// NewID are the only inputs besides (state, action).
type Engine struct {
	Events events.Writer
	Seed   func() domain.State
}

func New() Engine {
	return Engine{
		Events: events.Writer{Now: time.Now},
		Seed:   SampleState,
	}
}

// Reduce maps (state, action) to the next state. It never mutates s and never
// fails: unknown ids and unchanged values return s as is.
func (e Engine) Reduce(s domain.State, a Action) domain.State {
	next, _ := e.apply(s, a)
	return next
}

// apply is Reduce plus whether a transition happened.
func (e Engine) apply(s domain.State, a Action) (domain.State, bool) {
	switch act := a.(type) {
	case AddTask:
		return e.addTask(s, act), true
	case UpdateTask:
		return e.updateTask(s, act)
	case DeleteTask:
		return deleteTask(s, act.ID)
	case MoveTask:
		return e.moveTask(s, act)
	case AddPerson:
		if len(act.PersonType) == 0 {
			return s, false
		}
		return e.addPerson(s, act), true
	case UpdatePerson:
		return updatePerson(s, act)
	case DeletePerson:
		return deletePerson(s, act.ID)
	case AddRequirement:
		return e.addRequirement(s, act), true
	case UpdateRequirement:
		return e.updateRequirement(s, act)
	case DeleteRequirement:
		return deleteRequirement(s, act.ID)
	case SetView:
		if s.ActiveView == act.View {
			return s, false
		}
		s.ActiveView = act.View
		return s, true
	case SelectPerson:
		if s.SelectedPersonID == act.ID {
			return s, false
		}
		s.SelectedPersonID = act.ID
		return s, true
	case SelectTask:
		if s.SelectedTaskID == act.ID {
			return s, false
		}
		s.SelectedTaskID = act.ID
		return s, true
	case LoadState:
		return act.State, true
	case ResetState:
		return e.seed(), true
	default:
		return s, false
	}
}

func (e Engine) seed() domain.State {
	if e.Seed != nil {
		return e.Seed()
	}
	return SampleState()
}

func (e Engine) addTask(s domain.State, act AddTask) domain.State {
	now := e.Events.Timestamp()
	status := act.Status
	if status == "" {
		status = domain.TaskBacklog
	}
	priority := act.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	t := domain.Task{
		ID:             e.Events.ID(),
		Title:          act.Title,
		Description:    act.Description,
		Status:         status,
		Priority:       priority,
		StakeholderIDs: cloneIDs(act.StakeholderIDs),
		ExecutorIDs:    cloneIDs(act.ExecutorIDs),
		RequirementIDs: cloneIDs(act.RequirementIDs),
		DueDate:        act.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Tasks = appendTask(s.Tasks, t)
	s.Activities = e.Events.Prepend(s.Activities, domain.ActivityCreated, domain.EntityTask, t.ID, t.Title,
		fmt.Sprintf("Task %q was created", t.Title))
	return s
}

func (e Engine) updateTask(s domain.State, act UpdateTask) (domain.State, bool) {
	idx := taskIndex(s.Tasks, act.ID)
	if idx < 0 {
		return s, false
	}
	t := s.Tasks[idx]
	p := act.Updates
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.StakeholderIDs != nil {
		t.StakeholderIDs = cloneIDs(*p.StakeholderIDs)
	}
	if p.ExecutorIDs != nil {
		t.ExecutorIDs = cloneIDs(*p.ExecutorIDs)
	}
	if p.RequirementIDs != nil {
		t.RequirementIDs = cloneIDs(*p.RequirementIDs)
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	t.UpdatedAt = e.Events.Timestamp()
	s.Tasks = replaceTask(s.Tasks, idx, t)
	s.Activities = e.Events.Prepend(s.Activities, domain.ActivityUpdated, domain.EntityTask, t.ID, t.Title,
		fmt.Sprintf("Task %q was updated", t.Title))
	return s, true
}

func deleteTask(s domain.State, id string) (domain.State, bool) {
	idx := taskIndex(s.Tasks, id)
	if idx < 0 {
		return s, false
	}
	tasks := make([]domain.Task, 0, len(s.Tasks)-1)
	tasks = append(tasks, s.Tasks[:idx]...)
	s.Tasks = append(tasks, s.Tasks[idx+1:]...)
	if s.SelectedTaskID == id {
		s.SelectedTaskID = ""
	}
	return s, true
}

func (e Engine) moveTask(s domain.State, act MoveTask) (domain.State, bool) {
	idx := taskIndex(s.Tasks, act.ID)
	if idx < 0 || s.Tasks[idx].Status == act.Status {
		return s, false
	}
	t := s.Tasks[idx]
	t.Status = act.Status
	t.UpdatedAt = e.Events.Timestamp()
	s.Tasks = replaceTask(s.Tasks, idx, t)
	s.Activities = e.Events.Prepend(s.Activities, domain.ActivityStatusChanged, domain.EntityTask, t.ID, t.Title,
		fmt.Sprintf("Task moved to %s", act.Status))
	return s, true
}

func (e Engine) addPerson(s domain.State, act AddPerson) domain.State {
	p := domain.Person{
		ID:         e.Events.ID(),
		Name:       act.Name,
		Email:      act.Email,
		Avatar:     act.Avatar,
		Role:       act.Role,
		Company:    act.Company,
		PersonType: cloneRoles(act.PersonType),
		CreatedAt:  e.Events.Timestamp(),
	}
	people := make([]domain.Person, 0, len(s.People)+1)
	people = append(people, s.People...)
	s.People = append(people, p)
	s.Activities = e.Events.Prepend(s.Activities, domain.ActivityCreated, domain.EntityPerson, p.ID, p.Name,
		fmt.Sprintf("%s was added to the team", p.Name))
	return s
}

func updatePerson(s domain.State, act UpdatePerson) (domain.State, bool) {
	idx := personIndex(s.People, act.ID)
	if idx < 0 {
		return s, false
	}
	p := s.People[idx]
	u := act.Updates
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.Company != nil {
		p.Company = *u.Company
	}
	// an empty role set would break the person invariant; keep the old one
	if u.PersonType != nil && len(*u.PersonType) > 0 {
		p.PersonType = cloneRoles(*u.PersonType)
	}
	people := make([]domain.Person, len(s.People))
	copy(people, s.People)
	people[idx] = p
	s.People = people
	return s, true
}

func deletePerson(s domain.State, id string) (domain.State, bool) {
	idx := personIndex(s.People, id)
	if idx < 0 {
		return s, false
	}
	people := make([]domain.Person, 0, len(s.People)-1)
	people = append(people, s.People[:idx]...)
	s.People = append(people, s.People[idx+1:]...)

	var dropped []string
	kept := make([]domain.Requirement, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		if r.StakeholderID == id {
			dropped = append(dropped, r.ID)
			continue
		}
		kept = append(kept, r)
	}
	if len(dropped) > 0 {
		s.Requirements = kept
	}

	var tasks []domain.Task
	for i, t := range s.Tasks {
		if !contains(t.StakeholderIDs, id) && !contains(t.ExecutorIDs, id) && !containsAny(t.RequirementIDs, dropped) {
			continue
		}
		if tasks == nil {
			tasks = make([]domain.Task, len(s.Tasks))
			copy(tasks, s.Tasks)
		}
		t.StakeholderIDs = without(t.StakeholderIDs, id)
		t.ExecutorIDs = without(t.ExecutorIDs, id)
		t.RequirementIDs = withoutAll(t.RequirementIDs, dropped)
		tasks[i] = t
	}
	if tasks != nil {
		s.Tasks = tasks
	}
	if s.SelectedPersonID == id {
		s.SelectedPersonID = ""
	}
	return s, true
}

func (e Engine) addRequirement(s domain.State, act AddRequirement) domain.State {
	now := e.Events.Timestamp()
	status := act.Status
	if status == "" {
		status = domain.RequirementDraft
	}
	priority := act.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	r := domain.Requirement{
		ID:            e.Events.ID(),
		Title:         act.Title,
		Description:   act.Description,
		Status:        status,
		Priority:      priority,
		StakeholderID: act.StakeholderID,
		Notes:         act.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	reqs := make([]domain.Requirement, 0, len(s.Requirements)+1)
	reqs = append(reqs, s.Requirements...)
	s.Requirements = append(reqs, r)
	desc := fmt.Sprintf("Requirement %q was created", r.Title)
	if owner, ok := FindPerson(s, r.StakeholderID); ok {
		desc = fmt.Sprintf("Requirement %q was created for %s", r.Title, owner.Name)
	}
	s.Activities = e.Events.Prepend(s.Activities, domain.ActivityCreated, domain.EntityRequirement, r.ID, r.Title, desc)
	return s
}

func (e Engine) updateRequirement(s domain.State, act UpdateRequirement) (domain.State, bool) {
	idx := requirementIndex(s.Requirements, act.ID)
	if idx < 0 {
		return s, false
	}
	r := s.Requirements[idx]
	prevStatus := r.Status
	u := act.Updates
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Priority != nil {
		r.Priority = *u.Priority
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	r.UpdatedAt = e.Events.Timestamp()
	reqs := make([]domain.Requirement, len(s.Requirements))
	copy(reqs, s.Requirements)
	reqs[idx] = r
	s.Requirements = reqs

	kind := domain.ActivityUpdated
	desc := fmt.Sprintf("Requirement %q was updated", r.Title)
	if u.Status != nil && *u.Status != prevStatus {
		kind = domain.ActivityStatusChanged
		desc = fmt.Sprintf("Requirement status changed to %s", r.Status)
	}
	s.Activities = e.Events.Prepend(s.Activities, kind, domain.EntityRequirement, r.ID, r.Title, desc)
	return s, true
}

func deleteRequirement(s domain.State, id string) (domain.State, bool) {
	idx := requirementIndex(s.Requirements, id)
	if idx < 0 {
		return s, false
	}
	reqs := make([]domain.Requirement, 0, len(s.Requirements)-1)
	reqs = append(reqs, s.Requirements[:idx]...)
	s.Requirements = append(reqs, s.Requirements[idx+1:]...)

	var tasks []domain.Task
	for i, t := range s.Tasks {
		if !contains(t.RequirementIDs, id) {
			continue
		}
		if tasks == nil {
			tasks = make([]domain.Task, len(s.Tasks))
			copy(tasks, s.Tasks)
		}
		t.RequirementIDs = without(t.RequirementIDs, id)
		tasks[i] = t
	}
	if tasks != nil {
		s.Tasks = tasks
	}
	return s, true
}

// --- helpers ---

func appendTask(in []domain.Task, t domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(in)+1)
	out = append(out, in...)
	return append(out, t)
}

func replaceTask(in []domain.Task, idx int, t domain.Task) []domain.Task {
	out := make([]domain.Task, len(in))
	copy(out, in)
	out[idx] = t
	return out
}

func taskIndex(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func personIndex(people []domain.Person, id string) int {
	for i, p := range people {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func requirementIndex(reqs []domain.Requirement, id string) int {
	for i, r := range reqs {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsAny(ids, targets []string) bool {
	for _, t := range targets {
		if contains(ids, t) {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	if !contains(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)-1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func withoutAll(ids, drop []string) []string {
	for _, d := range drop {
		ids = without(ids, d)
	}
	return ids
}

// cloneIDs copies caller-owned slices into the state; nil becomes an empty set
// so stored tasks always serialise their reference sets as arrays.
func cloneIDs(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRoles(in []domain.PersonRole) []domain.PersonRole {
	out := make([]domain.PersonRole, len(in))
	copy(out, in)
	return out
}

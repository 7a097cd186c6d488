package server

import (
	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
)

// Request payloads

type CreatePersonRequest struct {
	Name       string              `json:"name" minLength:"1"`
	Email      string              `json:"email,omitempty"`
	Avatar     string              `json:"avatar,omitempty"`
	Role       string              `json:"role,omitempty"`
	Company    string              `json:"company,omitempty"`
	PersonType []domain.PersonRole `json:"person_type" minItems:"1" enum:"stakeholder,executor"`
}

type UpdatePersonRequest struct {
	Name       *string              `json:"name,omitempty"`
	Email      *string              `json:"email,omitempty"`
	Avatar     *string              `json:"avatar,omitempty"`
	Role       *string              `json:"role,omitempty"`
	Company    *string              `json:"company,omitempty"`
	PersonType *[]domain.PersonRole `json:"person_type,omitempty" enum:"stakeholder,executor"`
}

type CreateTaskRequest struct {
	Title          string            `json:"title" minLength:"1"`
	Description    string            `json:"description,omitempty"`
	Status         domain.TaskStatus `json:"status,omitempty" enum:"backlog,todo,inProgress,review,done"`
	Priority       domain.Priority   `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	StakeholderIDs []string          `json:"stakeholder_ids,omitempty"`
	ExecutorIDs    []string          `json:"executor_ids,omitempty"`
	RequirementIDs []string          `json:"requirement_ids,omitempty"`
	DueDate        string            `json:"due_date,omitempty"`
}

type UpdateTaskRequest struct {
	Title          *string            `json:"title,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Status         *domain.TaskStatus `json:"status,omitempty" enum:"backlog,todo,inProgress,review,done"`
	Priority       *domain.Priority   `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	StakeholderIDs *[]string          `json:"stakeholder_ids,omitempty"`
	ExecutorIDs    *[]string          `json:"executor_ids,omitempty"`
	RequirementIDs *[]string          `json:"requirement_ids,omitempty"`
	DueDate        *string            `json:"due_date,omitempty"`
}

type MoveTaskRequest struct {
	Status domain.TaskStatus `json:"status" enum:"backlog,todo,inProgress,review,done"`
}

type CreateRequirementRequest struct {
	Title         string                   `json:"title" minLength:"1"`
	Description   string                   `json:"description,omitempty"`
	Status        domain.RequirementStatus `json:"status,omitempty" enum:"draft,pending,approved,inProgress,completed"`
	Priority      domain.Priority          `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	StakeholderID string                   `json:"stakeholder_id" minLength:"1"`
	Notes         string                   `json:"notes,omitempty"`
}

type UpdateRequirementRequest struct {
	Title       *string                   `json:"title,omitempty"`
	Description *string                   `json:"description,omitempty"`
	Status      *domain.RequirementStatus `json:"status,omitempty" enum:"draft,pending,approved,inProgress,completed"`
	Priority    *domain.Priority          `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	Notes       *string                   `json:"notes,omitempty"`
}

type SetViewRequest struct {
	View domain.View `json:"view" enum:"dashboard,tasks,people,requirements,activity"`
}

// SelectionRequest sets the selected person and/or task. An explicit empty
// string clears a selection; an absent field leaves it alone.
type SelectionRequest struct {
	PersonID *string `json:"person_id,omitempty"`
	TaskID   *string `json:"task_id,omitempty"`
}

type ActionRequest struct {
	Type    engine.ActionType `json:"type" enum:"ADD_TASK,UPDATE_TASK,DELETE_TASK,MOVE_TASK,ADD_PERSON,UPDATE_PERSON,DELETE_PERSON,ADD_REQUIREMENT,UPDATE_REQUIREMENT,DELETE_REQUIREMENT,SET_VIEW,SELECT_PERSON,SELECT_TASK,LOAD_STATE,RESET_STATE"`
	Payload map[string]any    `json:"payload,omitempty"`
}

// Responses

type PeopleResponse struct {
	Items []domain.Person `json:"items"`
}

type TasksResponse struct {
	Items []domain.Task `json:"items"`
}

type RequirementsResponse struct {
	Items []domain.Requirement `json:"items"`
}

type ActivitiesResponse struct {
	Items []domain.Activity `json:"items"`
}

type ActionResponse struct {
	Type    engine.ActionType `json:"type"`
	Changed bool              `json:"changed"`
	State   domain.State      `json:"state"`
}

type UIResponse struct {
	ActiveView       domain.View `json:"active_view"`
	SelectedPersonID string      `json:"selected_person_id,omitempty"`
	SelectedTaskID   string      `json:"selected_task_id,omitempty"`
}

func (r CreatePersonRequest) action() engine.AddPerson {
	return engine.AddPerson{
		Name:       r.Name,
		Email:      r.Email,
		Avatar:     r.Avatar,
		Role:       r.Role,
		Company:    r.Company,
		PersonType: r.PersonType,
	}
}

func (r UpdatePersonRequest) patch() engine.PersonPatch {
	return engine.PersonPatch{
		Name:       r.Name,
		Email:      r.Email,
		Avatar:     r.Avatar,
		Role:       r.Role,
		Company:    r.Company,
		PersonType: r.PersonType,
	}
}

func (r CreateTaskRequest) action() engine.AddTask {
	return engine.AddTask{
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		Priority:       r.Priority,
		StakeholderIDs: r.StakeholderIDs,
		ExecutorIDs:    r.ExecutorIDs,
		RequirementIDs: r.RequirementIDs,
		DueDate:        r.DueDate,
	}
}

func (r UpdateTaskRequest) patch() engine.TaskPatch {
	return engine.TaskPatch{
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		Priority:       r.Priority,
		StakeholderIDs: r.StakeholderIDs,
		ExecutorIDs:    r.ExecutorIDs,
		RequirementIDs: r.RequirementIDs,
		DueDate:        r.DueDate,
	}
}

func (r CreateRequirementRequest) action() engine.AddRequirement {
	return engine.AddRequirement{
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		Priority:      r.Priority,
		StakeholderID: r.StakeholderID,
		Notes:         r.Notes,
	}
}

func (r UpdateRequirementRequest) patch() engine.RequirementPatch {
	return engine.RequirementPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Notes:       r.Notes,
	}
}

func uiResponse(s domain.State) UIResponse {
	return UIResponse{
		ActiveView:       s.ActiveView,
		SelectedPersonID: s.SelectedPersonID,
		SelectedTaskID:   s.SelectedTaskID,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

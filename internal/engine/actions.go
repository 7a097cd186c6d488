package engine

import (
	"encoding/json"
	"fmt"

	"stakeboard/internal/domain"
)

type ActionType string

const (
	ActionAddTask           ActionType = "ADD_TASK"
	ActionUpdateTask        ActionType = "UPDATE_TASK"
	ActionDeleteTask        ActionType = "DELETE_TASK"
	ActionMoveTask          ActionType = "MOVE_TASK"
	ActionAddPerson         ActionType = "ADD_PERSON"
	ActionUpdatePerson      ActionType = "UPDATE_PERSON"
	ActionDeletePerson      ActionType = "DELETE_PERSON"
	ActionAddRequirement    ActionType = "ADD_REQUIREMENT"
	ActionUpdateRequirement ActionType = "UPDATE_REQUIREMENT"
	ActionDeleteRequirement ActionType = "DELETE_REQUIREMENT"
	ActionSetView           ActionType = "SET_VIEW"
	ActionSelectPerson      ActionType = "SELECT_PERSON"
	ActionSelectTask        ActionType = "SELECT_TASK"
	ActionLoadState         ActionType = "LOAD_STATE"
	ActionResetState        ActionType = "RESET_STATE"
)

// Action is the closed set of state transitions. Only types in this package
// implement it.
type Action interface {
	Type() ActionType
	action()
}

type AddTask struct {
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	Status         domain.TaskStatus `json:"status,omitempty"`
	Priority       domain.Priority   `json:"priority,omitempty"`
	StakeholderIDs []string          `json:"stakeholder_ids,omitempty"`
	ExecutorIDs    []string          `json:"executor_ids,omitempty"`
	RequirementIDs []string          `json:"requirement_ids,omitempty"`
	DueDate        string            `json:"due_date,omitempty"`
}

// TaskPatch carries the fields to merge; nil means unchanged.
type TaskPatch struct {
	Title          *string            `json:"title,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Status         *domain.TaskStatus `json:"status,omitempty"`
	Priority       *domain.Priority   `json:"priority,omitempty"`
	StakeholderIDs *[]string          `json:"stakeholder_ids,omitempty"`
	ExecutorIDs    *[]string          `json:"executor_ids,omitempty"`
	RequirementIDs *[]string          `json:"requirement_ids,omitempty"`
	DueDate        *string            `json:"due_date,omitempty"`
}

type UpdateTask struct {
	ID      string    `json:"id"`
	Updates TaskPatch `json:"updates"`
}

type DeleteTask struct {
	ID string `json:"id"`
}

type MoveTask struct {
	ID     string            `json:"id"`
	Status domain.TaskStatus `json:"status"`
}

type AddPerson struct {
	Name       string              `json:"name"`
	Email      string              `json:"email,omitempty"`
	Avatar     string              `json:"avatar,omitempty"`
	Role       string              `json:"role,omitempty"`
	Company    string              `json:"company,omitempty"`
	PersonType []domain.PersonRole `json:"person_type"`
}

type PersonPatch struct {
	Name       *string              `json:"name,omitempty"`
	Email      *string              `json:"email,omitempty"`
	Avatar     *string              `json:"avatar,omitempty"`
	Role       *string              `json:"role,omitempty"`
	Company    *string              `json:"company,omitempty"`
	PersonType *[]domain.PersonRole `json:"person_type,omitempty"`
}

type UpdatePerson struct {
	ID      string      `json:"id"`
	Updates PersonPatch `json:"updates"`
}

type DeletePerson struct {
	ID string `json:"id"`
}

type AddRequirement struct {
	Title         string                   `json:"title"`
	Description   string                   `json:"description,omitempty"`
	Status        domain.RequirementStatus `json:"status,omitempty"`
	Priority      domain.Priority          `json:"priority,omitempty"`
	StakeholderID string                   `json:"stakeholder_id"`
	Notes         string                   `json:"notes,omitempty"`
}

// RequirementPatch has no stakeholder field: ownership is fixed at creation.
type RequirementPatch struct {
	Title       *string                   `json:"title,omitempty"`
	Description *string                   `json:"description,omitempty"`
	Status      *domain.RequirementStatus `json:"status,omitempty"`
	Priority    *domain.Priority          `json:"priority,omitempty"`
	Notes       *string                   `json:"notes,omitempty"`
}

type UpdateRequirement struct {
	ID      string           `json:"id"`
	Updates RequirementPatch `json:"updates"`
}

type DeleteRequirement struct {
	ID string `json:"id"`
}

type SetView struct {
	View domain.View `json:"view"`
}

// SelectPerson points the UI at a person; an empty ID clears the selection.
type SelectPerson struct {
	ID string `json:"id"`
}

// SelectTask points the UI at a task; an empty ID clears the selection.
type SelectTask struct {
	ID string `json:"id"`
}

type LoadState struct {
	State domain.State `json:"state"`
}

type ResetState struct{}

func (AddTask) Type() ActionType           { return ActionAddTask }
func (UpdateTask) Type() ActionType        { return ActionUpdateTask }
func (DeleteTask) Type() ActionType        { return ActionDeleteTask }
func (MoveTask) Type() ActionType          { return ActionMoveTask }
func (AddPerson) Type() ActionType         { return ActionAddPerson }
func (UpdatePerson) Type() ActionType      { return ActionUpdatePerson }
func (DeletePerson) Type() ActionType      { return ActionDeletePerson }
func (AddRequirement) Type() ActionType    { return ActionAddRequirement }
func (UpdateRequirement) Type() ActionType { return ActionUpdateRequirement }
func (DeleteRequirement) Type() ActionType { return ActionDeleteRequirement }
func (SetView) Type() ActionType           { return ActionSetView }
func (SelectPerson) Type() ActionType      { return ActionSelectPerson }
func (SelectTask) Type() ActionType        { return ActionSelectTask }
func (LoadState) Type() ActionType         { return ActionLoadState }
func (ResetState) Type() ActionType        { return ActionResetState }

func (AddTask) action()           {}
func (UpdateTask) action()        {}
func (DeleteTask) action()        {}
func (MoveTask) action()          {}
func (AddPerson) action()         {}
func (UpdatePerson) action()      {}
func (DeletePerson) action()      {}
func (AddRequirement) action()    {}
func (UpdateRequirement) action() {}
func (DeleteRequirement) action() {}
func (SetView) action()           {}
func (SelectPerson) action()      {}
func (SelectTask) action()        {}
func (LoadState) action()         {}
func (ResetState) action()        {}

// Envelope is the wire form of an action: {"type": "ADD_TASK", "payload": {...}}.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps an action into its envelope.
func Encode(a Action) (Envelope, error) {
	if a == nil {
		return Envelope{}, fmt.Errorf("nil action")
	}
	if _, ok := a.(ResetState); ok {
		return Envelope{Type: a.Type()}, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", a.Type(), err)
	}
	return Envelope{Type: a.Type(), Payload: data}, nil
}

// Decode turns an envelope into its typed action.
func Decode(env Envelope) (Action, error) {
	switch env.Type {
	case ActionAddTask:
		return decodePayload[AddTask](env)
	case ActionUpdateTask:
		return decodePayload[UpdateTask](env)
	case ActionDeleteTask:
		return decodePayload[DeleteTask](env)
	case ActionMoveTask:
		return decodePayload[MoveTask](env)
	case ActionAddPerson:
		return decodePayload[AddPerson](env)
	case ActionUpdatePerson:
		return decodePayload[UpdatePerson](env)
	case ActionDeletePerson:
		return decodePayload[DeletePerson](env)
	case ActionAddRequirement:
		return decodePayload[AddRequirement](env)
	case ActionUpdateRequirement:
		return decodePayload[UpdateRequirement](env)
	case ActionDeleteRequirement:
		return decodePayload[DeleteRequirement](env)
	case ActionSetView:
		return decodePayload[SetView](env)
	case ActionSelectPerson:
		return decodePayload[SelectPerson](env)
	case ActionSelectTask:
		return decodePayload[SelectTask](env)
	case ActionLoadState:
		return decodePayload[LoadState](env)
	case ActionResetState:
		return ResetState{}, nil
	default:
		return nil, fmt.Errorf("invalid action type %q", env.Type)
	}
}

func decodePayload[T Action](env Envelope) (Action, error) {
	var v T
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%s payload required", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return v, nil
}

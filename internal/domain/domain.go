package domain

type PersonRole string

const (
	RoleStakeholder PersonRole = "stakeholder"
	RoleExecutor    PersonRole = "executor"
)

type TaskStatus string

// Task statuses in board order.
const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "inProgress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// TaskStatuses lists every task status in board order.
var TaskStatuses = []TaskStatus{TaskBacklog, TaskTodo, TaskInProgress, TaskReview, TaskDone}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type RequirementStatus string

const (
	RequirementDraft      RequirementStatus = "draft"
	RequirementPending    RequirementStatus = "pending"
	RequirementApproved   RequirementStatus = "approved"
	RequirementInProgress RequirementStatus = "inProgress"
	RequirementCompleted  RequirementStatus = "completed"
)

type ActivityKind string

const (
	ActivityCreated           ActivityKind = "created"
	ActivityStatusChanged     ActivityKind = "status_changed"
	ActivityAssigned          ActivityKind = "assigned"
	ActivityUnassigned        ActivityKind = "unassigned"
	ActivityUpdated           ActivityKind = "updated"
	ActivityRequirementLinked ActivityKind = "requirement_linked"
)

type EntityType string

const (
	EntityTask        EntityType = "task"
	EntityPerson      EntityType = "person"
	EntityRequirement EntityType = "requirement"
)

type View string

const (
	ViewDashboard    View = "dashboard"
	ViewTasks        View = "tasks"
	ViewPeople       View = "people"
	ViewRequirements View = "requirements"
	ViewActivity     View = "activity"
)

type Person struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Avatar     string       `json:"avatar"`
	Role       string       `json:"role"`
	Company    string       `json:"company"`
	PersonType []PersonRole `json:"person_type" enum:"stakeholder,executor"`
	CreatedAt  string       `json:"created_at" format:"date-time"`
}

// HasRole reports whether the person carries the given role tag.
func (p Person) HasRole(role PersonRole) bool {
	for _, r := range p.PersonType {
		if r == role {
			return true
		}
	}
	return false
}

type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status" enum:"backlog,todo,inProgress,review,done"`
	Priority       Priority   `json:"priority" enum:"urgent,high,medium,low"`
	StakeholderIDs []string   `json:"stakeholder_ids"`
	ExecutorIDs    []string   `json:"executor_ids"`
	RequirementIDs []string   `json:"requirement_ids"`
	DueDate        string     `json:"due_date,omitempty"`
	CreatedAt      string     `json:"created_at" format:"date-time"`
	UpdatedAt      string     `json:"updated_at" format:"date-time"`
}

type Requirement struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Status        RequirementStatus `json:"status" enum:"draft,pending,approved,inProgress,completed"`
	Priority      Priority          `json:"priority" enum:"urgent,high,medium,low"`
	StakeholderID string            `json:"stakeholder_id"`
	Notes         string            `json:"notes"`
	CreatedAt     string            `json:"created_at" format:"date-time"`
	UpdatedAt     string            `json:"updated_at" format:"date-time"`
}

// Activity is an audit record. EntityTitle is captured when the record is
// written and is never re-derived from the entity.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityKind `json:"type" enum:"created,status_changed,assigned,unassigned,updated,requirement_linked"`
	EntityType  EntityType   `json:"entity_type" enum:"task,person,requirement"`
	EntityID    string       `json:"entity_id"`
	EntityTitle string       `json:"entity_title"`
	Description string       `json:"description"`
	CreatedAt   string       `json:"created_at" format:"date-time"`
}

// State is the whole tree owned by the store. Activities are newest first.
type State struct {
	People           []Person      `json:"people"`
	Tasks            []Task        `json:"tasks"`
	Requirements     []Requirement `json:"requirements"`
	Activities       []Activity    `json:"activities"`
	ActiveView       View          `json:"active_view"`
	SelectedPersonID string        `json:"selected_person_id,omitempty"`
	SelectedTaskID   string        `json:"selected_task_id,omitempty"`
}

func ValidTaskStatus(s TaskStatus) bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ValidRequirementStatus(s RequirementStatus) bool {
	switch s {
	case RequirementDraft, RequirementPending, RequirementApproved, RequirementInProgress, RequirementCompleted:
		return true
	}
	return false
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func ValidRole(r PersonRole) bool {
	return r == RoleStakeholder || r == RoleExecutor
}

func ValidView(v View) bool {
	switch v {
	case ViewDashboard, ViewTasks, ViewPeople, ViewRequirements, ViewActivity:
		return true
	}
	return false
}

package engine

import "stakeboard/internal/domain"

// SampleState returns the fixed demo dataset. Every call builds fresh slices,
// so callers may hand the result to a store without sharing memory.
func SampleState() domain.State {
	return domain.State{
		People: []domain.Person{
			{
				ID: "person-1", Name: "Sarah Chen", Email: "sarah.chen@acme.io", Avatar: "SC",
				Role: "VP of Product", Company: "Acme Corp",
				PersonType: []domain.PersonRole{domain.RoleStakeholder},
				CreatedAt:  "2024-01-08T09:00:00Z",
			},
			{
				ID: "person-2", Name: "Marcus Johnson", Email: "marcus@acme.io", Avatar: "MJ",
				Role: "Senior Engineer", Company: "Acme Corp",
				PersonType: []domain.PersonRole{domain.RoleExecutor},
				CreatedAt:  "2024-01-08T09:05:00Z",
			},
			{
				ID: "person-3", Name: "Priya Patel", Email: "priya@northwind.com", Avatar: "PP",
				Role: "Operations Lead", Company: "Northwind",
				PersonType: []domain.PersonRole{domain.RoleStakeholder, domain.RoleExecutor},
				CreatedAt:  "2024-01-09T10:30:00Z",
			},
			{
				ID: "person-4", Name: "Tom Alvarez", Email: "tom@acme.io", Avatar: "TA",
				Role: "Designer", Company: "Acme Corp",
				PersonType: []domain.PersonRole{domain.RoleExecutor},
				CreatedAt:  "2024-01-10T14:00:00Z",
			},
		},
		Tasks: []domain.Task{
			{
				ID: "task-1", Title: "Design onboarding flow", Description: "Wireframes for the first-run experience.",
				Status: domain.TaskInProgress, Priority: domain.PriorityHigh,
				StakeholderIDs: []string{"person-1"}, ExecutorIDs: []string{"person-4"},
				RequirementIDs: []string{"req-1"}, DueDate: "2024-02-01",
				CreatedAt: "2024-01-11T09:00:00Z", UpdatedAt: "2024-01-15T16:20:00Z",
			},
			{
				ID: "task-2", Title: "Build SSO integration", Description: "SAML and OIDC login for enterprise tenants.",
				Status: domain.TaskTodo, Priority: domain.PriorityUrgent,
				StakeholderIDs: []string{"person-1", "person-3"}, ExecutorIDs: []string{"person-2"},
				RequirementIDs: []string{"req-2"}, DueDate: "2024-02-15",
				CreatedAt: "2024-01-11T09:30:00Z", UpdatedAt: "2024-01-11T09:30:00Z",
			},
			{
				ID: "task-3", Title: "Weekly ops report export", Description: "CSV export of the weekly operations summary.",
				Status: domain.TaskBacklog, Priority: domain.PriorityMedium,
				StakeholderIDs: []string{"person-3"}, ExecutorIDs: []string{"person-2", "person-3"},
				RequirementIDs: []string{"req-3"},
				CreatedAt:      "2024-01-12T11:00:00Z", UpdatedAt: "2024-01-12T11:00:00Z",
			},
			{
				ID: "task-4", Title: "Polish dashboard empty states", Description: "Illustrations and copy for empty lists.",
				Status: domain.TaskReview, Priority: domain.PriorityLow,
				StakeholderIDs: []string{}, ExecutorIDs: []string{"person-4"},
				RequirementIDs: []string{},
				CreatedAt:      "2024-01-12T15:00:00Z", UpdatedAt: "2024-01-16T10:00:00Z",
			},
			{
				ID: "task-5", Title: "Set up staging environment", Description: "Provision staging and seed demo data.",
				Status: domain.TaskDone, Priority: domain.PriorityHigh,
				StakeholderIDs: []string{"person-1"}, ExecutorIDs: []string{"person-2"},
				RequirementIDs: []string{},
				CreatedAt:      "2024-01-09T08:00:00Z", UpdatedAt: "2024-01-13T17:45:00Z",
			},
		},
		Requirements: []domain.Requirement{
			{
				ID: "req-1", Title: "Self-serve onboarding", Description: "New users reach their first project without help.",
				Status: domain.RequirementApproved, Priority: domain.PriorityHigh, StakeholderID: "person-1",
				Notes: "Target under five minutes.", CreatedAt: "2024-01-10T09:00:00Z", UpdatedAt: "2024-01-11T08:00:00Z",
			},
			{
				ID: "req-2", Title: "Enterprise single sign-on", Description: "Support SAML 2.0 and OIDC providers.",
				Status: domain.RequirementInProgress, Priority: domain.PriorityUrgent, StakeholderID: "person-1",
				Notes: "Blocking two enterprise deals.", CreatedAt: "2024-01-10T09:15:00Z", UpdatedAt: "2024-01-12T10:00:00Z",
			},
			{
				ID: "req-3", Title: "Operations reporting", Description: "Weekly summary of throughput and blockers.",
				Status: domain.RequirementPending, Priority: domain.PriorityMedium, StakeholderID: "person-3",
				Notes: "", CreatedAt: "2024-01-11T13:00:00Z", UpdatedAt: "2024-01-11T13:00:00Z",
			},
		},
		Activities: []domain.Activity{
			{
				ID: "act-5", Type: domain.ActivityStatusChanged, EntityType: domain.EntityTask, EntityID: "task-4",
				EntityTitle: "Polish dashboard empty states", Description: "Task moved to review", CreatedAt: "2024-01-16T10:00:00Z",
			},
			{
				ID: "act-4", Type: domain.ActivityRequirementLinked, EntityType: domain.EntityTask, EntityID: "task-1",
				EntityTitle: "Design onboarding flow", Description: "Linked to requirement \"Self-serve onboarding\"", CreatedAt: "2024-01-15T16:20:00Z",
			},
			{
				ID: "act-3", Type: domain.ActivityAssigned, EntityType: domain.EntityTask, EntityID: "task-2",
				EntityTitle: "Build SSO integration", Description: "Marcus Johnson was assigned", CreatedAt: "2024-01-11T09:30:00Z",
			},
			{
				ID: "act-2", Type: domain.ActivityCreated, EntityType: domain.EntityRequirement, EntityID: "req-2",
				EntityTitle: "Enterprise single sign-on", Description: "Requirement \"Enterprise single sign-on\" was created for Sarah Chen", CreatedAt: "2024-01-10T09:15:00Z",
			},
			{
				ID: "act-1", Type: domain.ActivityCreated, EntityType: domain.EntityPerson, EntityID: "person-1",
				EntityTitle: "Sarah Chen", Description: "Sarah Chen was added to the team", CreatedAt: "2024-01-08T09:00:00Z",
			},
		},
		ActiveView: domain.ViewDashboard,
	}
}

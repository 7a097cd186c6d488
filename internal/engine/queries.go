package engine

import "stakeboard/internal/domain"

// Derived views over a state snapshot. They never mutate s and never cache;
// linear scans are fine at this size.

func FindPerson(s domain.State, id string) (domain.Person, bool) {
	if i := personIndex(s.People, id); i >= 0 {
		return s.People[i], true
	}
	return domain.Person{}, false
}

func FindTask(s domain.State, id string) (domain.Task, bool) {
	if i := taskIndex(s.Tasks, id); i >= 0 {
		return s.Tasks[i], true
	}
	return domain.Task{}, false
}

func FindRequirement(s domain.State, id string) (domain.Requirement, bool) {
	if i := requirementIndex(s.Requirements, id); i >= 0 {
		return s.Requirements[i], true
	}
	return domain.Requirement{}, false
}

// RequirementsByStakeholder returns the person's requirements in collection order.
func RequirementsByStakeholder(s domain.State, personID string) []domain.Requirement {
	var res []domain.Requirement
	for _, r := range s.Requirements {
		if r.StakeholderID == personID {
			res = append(res, r)
		}
	}
	return res
}

// TasksByPerson returns the tasks whose stakeholder or executor set, picked by
// role, contains personID.
func TasksByPerson(s domain.State, personID string, role domain.PersonRole) []domain.Task {
	var res []domain.Task
	for _, t := range s.Tasks {
		ids := t.ExecutorIDs
		if role == domain.RoleStakeholder {
			ids = t.StakeholderIDs
		}
		if contains(ids, personID) {
			res = append(res, t)
		}
	}
	return res
}

// TasksInvolving returns the tasks naming personID in either set.
func TasksInvolving(s domain.State, personID string) []domain.Task {
	var res []domain.Task
	for _, t := range s.Tasks {
		if contains(t.StakeholderIDs, personID) || contains(t.ExecutorIDs, personID) {
			res = append(res, t)
		}
	}
	return res
}

func PeopleByRole(s domain.State, role domain.PersonRole) []domain.Person {
	var res []domain.Person
	for _, p := range s.People {
		if p.HasRole(role) {
			res = append(res, p)
		}
	}
	return res
}

// TasksByStatus groups tasks into board columns. Every status has an entry.
func TasksByStatus(s domain.State) map[domain.TaskStatus][]domain.Task {
	res := make(map[domain.TaskStatus][]domain.Task, len(domain.TaskStatuses))
	for _, st := range domain.TaskStatuses {
		res[st] = []domain.Task{}
	}
	for _, t := range s.Tasks {
		res[t.Status] = append(res[t.Status], t)
	}
	return res
}

// ActivitiesFor filters the log down to one entity, newest first. An empty
// entityID matches every entity of the type; an empty type matches all.
func ActivitiesFor(s domain.State, entityType domain.EntityType, entityID string, limit int) []domain.Activity {
	var res []domain.Activity
	for _, a := range s.Activities {
		if entityType != "" && a.EntityType != entityType {
			continue
		}
		if entityID != "" && a.EntityID != entityID {
			continue
		}
		res = append(res, a)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res
}

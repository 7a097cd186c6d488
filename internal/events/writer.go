package events

import (
	"time"

	"github.com/google/uuid"

	"stakeboard/internal/domain"
)

// Writer builds activity records. Now and NewID default to the wall clock and
// random UUIDs; tests pin both.
type Writer struct {
	Now   func() time.Time
	NewID func() string
}

// Prepend returns a new log with the activity in front. The input slice is
// never written to.
func (w Writer) Prepend(log []domain.Activity, kind domain.ActivityKind, entityType domain.EntityType, entityID, title, description string) []domain.Activity {
	a := domain.Activity{
		ID:          w.ID(),
		Type:        kind,
		EntityType:  entityType,
		EntityID:    entityID,
		EntityTitle: title,
		Description: description,
		CreatedAt:   w.Timestamp(),
	}
	out := make([]domain.Activity, 0, len(log)+1)
	out = append(out, a)
	return append(out, log...)
}

// Timestamp formats the writer clock the way every record stores it.
func (w Writer) Timestamp() string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// ID returns a fresh identifier from the writer's source.
func (w Writer) ID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return uuid.NewString()
}

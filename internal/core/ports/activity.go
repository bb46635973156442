package ports

import (
	"context"

	"github.com/storefront/identity-api/internal/core/domain"
)

// ActivityRecorder accepts authentication events. Record must not block the
// caller on persistence.
type ActivityRecorder interface {
	Record(activity domain.Activity)
}

// ActivityRepository persists the authentication activity trail.
type ActivityRepository interface {
	Insert(ctx context.Context, activity *domain.Activity) error
}

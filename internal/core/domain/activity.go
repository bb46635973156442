package domain

import "time"

// ActivityKind names an entry in the authentication activity trail.
type ActivityKind string

const (
	ActivityLoginSucceeded ActivityKind = "login_succeeded"
	ActivityLoginFailed    ActivityKind = "login_failed"
	ActivityRegistered     ActivityKind = "registered"
	ActivityTokenRejected  ActivityKind = "token_rejected"
)

// Activity is a single authentication event. Reason holds the failure
// classification for rejected attempts and is empty otherwise.
type Activity struct {
	Kind       ActivityKind
	Email      string
	UserID     string
	Reason     string
	RemoteAddr string
	OccurredAt time.Time
}

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/eminus-watch/internal/model"
)

// AuthReason classifies why authentication failed.
type AuthReason string

const (
	ReasonInvalidCredentials AuthReason = "invalid-credentials"
	ReasonForbidden          AuthReason = "forbidden"
	ReasonUnexpectedStatus   AuthReason = "unexpected-status"
	ReasonTransport          AuthReason = "transport-error"
)

// AuthError indicates that the portal refused or could not complete the
// login handshake. It is always fatal for a run.
type AuthError struct {
	Reason  AuthReason
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth error (%s)", e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ReasonOf returns the reason of the first AuthError in err's chain, or ""
// when there is none.
func ReasonOf(err error) AuthReason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ""
}

// FetchError indicates that listing courses or assignments failed.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Credentials are the login pair sent to the portal.
type Credentials struct {
	Username string
	Password string
}

// Rejected describes a portal item that could not be turned into an
// assignment.
type Rejected struct {
	ID       string
	Title    string
	CourseID string
	Reason   string
}

// Snapshot is the complete list of current assignments for one run.
type Snapshot struct {
	Items    []model.Assignment
	Rejected []Rejected

	// CoursesTotal and CoursesRecent count the courses returned by the
	// portal and the ones inside the recency window.
	CoursesTotal  int
	CoursesRecent int
}

// Portal is the contract of the academic portal integration.
type Portal interface {
	// Authenticate exchanges credentials for a bearer token.
	Authenticate(ctx context.Context, creds Credentials) (string, error)

	// FetchSnapshot lists the assignments of every recent course.
	FetchSnapshot(ctx context.Context, token string, now time.Time) (*Snapshot, error)
}

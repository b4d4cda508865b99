package eminus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/eminus-watch/internal/clock"
	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/model"
	"github.com/nhle/eminus-watch/internal/source"
)

// Adapter implements source.Portal for Eminus.
type Adapter struct {
	client       *Client
	loc          *time.Location
	recentMonths int
}

var _ source.Portal = (*Adapter)(nil)

// NewAdapter creates a portal adapter. Timestamps without an offset are read
// in loc; only courses created within recentMonths are listed.
func NewAdapter(client *Client, loc *time.Location, recentMonths int) *Adapter {
	if loc == nil {
		loc = time.UTC
	}
	return &Adapter{
		client:       client,
		loc:          loc,
		recentMonths: recentMonths,
	}
}

// Authenticate logs in and returns the bearer token.
func (a *Adapter) Authenticate(ctx context.Context, creds source.Credentials) (string, error) {
	var out AuthResponse
	err := a.client.Post(ctx, authPath, AuthRequest{
		Username: creds.Username,
		Password: creds.Password,
	}, &out)
	if err != nil {
		return "", classifyAuthError(err)
	}

	token := out.BearerToken()
	if token == "" {
		return "", &source.AuthError{
			Reason:  source.ReasonUnexpectedStatus,
			Message: "token not found in response",
		}
	}
	return token, nil
}

func classifyAuthError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Status {
		case http.StatusUnauthorized:
			return &source.AuthError{
				Reason:  source.ReasonInvalidCredentials,
				Status:  statusErr.Status,
				Message: "invalid username or password",
			}
		case http.StatusForbidden:
			return &source.AuthError{
				Reason:  source.ReasonForbidden,
				Status:  statusErr.Status,
				Message: "access forbidden",
			}
		default:
			return &source.AuthError{
				Reason:  source.ReasonUnexpectedStatus,
				Status:  statusErr.Status,
				Message: statusErr.Body,
			}
		}
	}
	if errors.Is(err, errMalformedBody) {
		return &source.AuthError{Reason: source.ReasonUnexpectedStatus, Err: err}
	}
	return &source.AuthError{Reason: source.ReasonTransport, Err: err}
}

// FetchSnapshot lists every assignment of the courses created within the
// recency window. Items that cannot be converted are returned in
// Snapshot.Rejected; any request failure aborts the whole fetch.
func (a *Adapter) FetchSnapshot(ctx context.Context, token string, now time.Time) (*source.Snapshot, error) {
	log := logger.FromContext(ctx)

	var courses CoursesResponse
	if err := a.client.Get(ctx, token, coursesPath, nil, &courses); err != nil {
		return nil, fetchError("courses", err)
	}

	snap := &source.Snapshot{CoursesTotal: len(courses.Contenido)}

	for _, entry := range courses.Contenido {
		course := entry.Curso
		if course == nil || course.FechaCreacion == "" || course.IDCurso == "" {
			continue
		}

		created, err := clock.ParseTimestamp(course.FechaCreacion, a.loc)
		if err != nil {
			log.Warn("Skipping course with unreadable creation date",
				"course", course.Nombre, "value", course.FechaCreacion, "err", err)
			continue
		}
		if !clock.IsRecentCourse(created, now, a.recentMonths) {
			continue
		}
		snap.CoursesRecent++

		var acts ActivitiesResponse
		err = a.client.Get(ctx, token, activitiesPath,
			map[string]string{"courseID": string(course.IDCurso)}, &acts)
		if err != nil {
			return nil, fetchError(fmt.Sprintf("activities of course %s", course.IDCurso), err)
		}

		for _, act := range acts.Contenido {
			item, reason := a.toAssignment(course, act)
			if reason != "" {
				snap.Rejected = append(snap.Rejected, source.Rejected{
					ID:       string(act.IDActividad),
					Title:    act.Titulo,
					CourseID: string(course.IDCurso),
					Reason:   reason,
				})
				continue
			}
			snap.Items = append(snap.Items, item)
		}
	}

	return snap, nil
}

// toAssignment converts a portal activity. A non-empty reason means the
// activity was rejected.
func (a *Adapter) toAssignment(course *Course, act Activity) (model.Assignment, string) {
	id := strings.TrimSpace(string(act.IDActividad))
	if id == "" {
		return model.Assignment{}, "missing id"
	}

	deadline, err := clock.ParseTimestamp(act.FechaTermino, a.loc)
	if err != nil {
		return model.Assignment{}, fmt.Sprintf("invalid deadline: %v", err)
	}

	var state model.DeliveryState
	if act.EstadoEntrega != nil {
		state = model.DeliveryState(*act.EstadoEntrega)
	}

	return model.Assignment{
		ID:            id,
		CourseID:      string(course.IDCurso),
		CourseName:    course.Nombre,
		Title:         act.Titulo,
		Deadline:      deadline,
		DeliveryState: state,
	}, ""
}

func fetchError(op string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return &source.FetchError{Op: op, Status: statusErr.Status, Err: err}
	}
	return &source.FetchError{Op: op, Err: err}
}

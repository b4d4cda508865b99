package eminus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AuthRequest is the body of POST /eminusapi/api/auth.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the login reply. Older deployments return "token",
// newer ones "accessToken".
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
}

// BearerToken returns whichever token field is set.
func (r AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// CoursesResponse is the response from GET /eminusapi8/api/Course/getAllCourses.
type CoursesResponse struct {
	Contenido []CourseEntry `json:"contenido"`
}

// CourseEntry wraps a course in the listing.
type CourseEntry struct {
	Curso *Course `json:"curso"`
}

// Course is a single enrolled course.
type Course struct {
	IDCurso       ID     `json:"idCurso"`
	Nombre        string `json:"nombre"`
	FechaCreacion string `json:"fechaCreacion"`
}

// ActivitiesResponse is the response from
// GET /eminusapi8/api/Activity/getActividadesEstudiante/{idCurso}.
type ActivitiesResponse struct {
	Contenido []Activity `json:"contenido"`
}

// Activity is a single assignment of a course.
type Activity struct {
	IDActividad   ID     `json:"idActividad"`
	Titulo        string `json:"titulo"`
	FechaTermino  string `json:"fechaTermino"`
	EstadoEntrega *int   `json:"estadoEntrega"`
}

// ID is an identifier the portal sends either as a JSON number or a string.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a number or string: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

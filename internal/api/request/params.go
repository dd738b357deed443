package request

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/lolPants/NorthstarMasterServer/internal/api/apierr"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

// Query reads typed query string parameters and remembers the first problem
type Query struct {
	r   *http.Request
	err error
}

// NewQuery wraps the request's query string
func NewQuery(r *http.Request) *Query {
	return &Query{r: r}
}

// String returns the parameter or "" when absent
func (q *Query) String(name string) string {
	return q.r.URL.Query().Get(name)
}

// RequiredString returns the parameter, recording an error when it is absent or empty
func (q *Query) RequiredString(name string) string {
	v := q.String(name)
	if v == "" {
		q.fail(fmt.Sprintf("%s is required", name))
	}
	return v
}

// RequiredInt returns the parameter as an int, recording an error when it is
// absent or not a number
func (q *Query) RequiredInt(name string) int {
	raw := q.String(name)
	if raw == "" {
		q.fail(fmt.Sprintf("%s is required", name))
		return 0
	}
	return q.parseInt(name, raw)
}

// Int returns the parameter as an int, or def when absent
func (q *Query) Int(name string, def int) int {
	raw := q.String(name)
	if raw == "" {
		return def
	}
	return q.parseInt(name, raw)
}

// Err returns the first problem found, as a 400 API error
func (q *Query) Err() error {
	return q.err
}

func (q *Query) parseInt(name, raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(fmt.Sprintf("%s must be an integer", name))
		return 0
	}
	return v
}

func (q *Query) fail(message string) {
	if q.err == nil {
		q.err = apierr.NewInvalidRequestError(message)
	}
}

// ModInfo is the mod list a game server uploads when it registers
type ModInfo struct {
	Mods []model.Mod `json:"Mods"`
}

// Package handler maps HTTP requests onto the services. Handlers validate
// input, pull the viewer id from the auth middleware and render
// {code, message} errors.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/logger"
	"github.com/oggyb/matchfeed/internal/middleware"
)

const maxJSONBody = 1 << 20 // 1MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders err and logs the cause of 5xx responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := svcErr.Map(err)
	if e.Status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, e.Status, errorBody{Code: string(e.Code), Message: e.Message})
}

// decodeJSON reads a JSON body into dst and validates it.
// An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return svcErr.BadInput("Request body too large")
		}
		return svcErr.BadInput("Invalid body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return svcErr.BadInput("Invalid body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return svcErr.BadInput(strings.Join(msgs, "; "))
}

// viewerID is set by middleware.JWTAuth on every protected route.
func viewerID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryCursor returns nil for an absent or empty cursor.
func queryCursor(r *http.Request) *string {
	c := r.URL.Query().Get("cursor")
	if c == "" {
		return nil
	}
	return &c
}

// pageQuery is the limit/cursor pair shared by paginated endpoints.
type pageQuery struct {
	Limit  int
	Cursor *string
}

func parsePage(r *http.Request, def, maxLimit int) (pageQuery, error) {
	limit, err := queryInt(r, "limit", def)
	if err != nil || limit < 1 || limit > maxLimit {
		return pageQuery{}, svcErr.BadInput("Invalid query")
	}
	return pageQuery{Limit: limit, Cursor: queryCursor(r)}, nil
}

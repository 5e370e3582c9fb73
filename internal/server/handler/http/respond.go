package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/atinyakov/crowdfund/internal/middleware"
	"github.com/atinyakov/crowdfund/internal/service"
)

// FieldError is one entry of a validation error list.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst. A malformed body is answered with 422
// and false is returned.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteDetail(w, http.StatusUnprocessableEntity, []FieldError{{
			Loc:  []string{"body"},
			Msg:  err.Error(),
			Type: "value_error.jsondecode",
		}})
		return false
	}
	return true
}

// pathID parses the named URL parameter as a positive integer id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteDetail(w, http.StatusUnprocessableEntity, []FieldError{{
			Loc:  []string{"path", name},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		}})
		return 0, false
	}
	return id, true
}

// writeError translates a service error into a status code and detail body.
// Unclassified errors are logged and reported as 500 without their text.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		middleware.WriteDetail(w, http.StatusUnprocessableEntity, fieldErrors(err))
	case errors.Is(err, service.ErrUnauthorized):
		middleware.WriteDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInvalidTransition):
		middleware.WriteDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		middleware.WriteDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		middleware.WriteDetail(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		middleware.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}

// fieldErrors flattens ozzo field errors into a sorted list located in the
// request body. Moderation messages travel in the query string.
func fieldErrors(err error) []FieldError {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []FieldError{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
	}
	out := flatten(nil, errs)
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].Loc, ".") < strings.Join(out[j].Loc, ".")
	})
	for i := range out {
		section := "body"
		if len(out[i].Loc) == 1 && out[i].Loc[0] == "message" {
			section = "query"
		}
		out[i].Loc = append([]string{section}, out[i].Loc...)
	}
	return out
}

func flatten(prefix []string, errs validation.Errors) []FieldError {
	var out []FieldError
	for field, e := range errs {
		loc := append(append([]string{}, prefix...), field)
		var nested validation.Errors
		if errors.As(e, &nested) {
			out = append(out, flatten(loc, nested)...)
			continue
		}
		out = append(out, FieldError{Loc: loc, Msg: e.Error(), Type: "value_error"})
	}
	return out
}

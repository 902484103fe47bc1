package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/dataprocessing"
	"kuberdash/internal/middleware"
	"kuberdash/internal/services"
	"kuberdash/internal/session"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

// columnFilterPrefix marks query parameters that filter a column by value,
// e.g. filter.region=North,South
const columnFilterPrefix = "filter."

// respond writes the standard success envelope
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// sessionID returns the id stored by the session middleware
func sessionID(r *http.Request) (string, error) {
	id, _, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return "", session.ErrNoSession
	}
	return id, nil
}

// slotParam parses the {slot} URL parameter
func slotParam(r *http.Request) (domain.Slot, error) {
	return services.ParseSlot(chi.URLParam(r, "slot"))
}

// decodeJSON decodes the request body into v and validates it
func decodeJSON(r *http.Request, v interface{}, validate *validation.Validator) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apierrors.InvalidRequestWithError(err)
	}
	if validate != nil {
		if err := validate.Struct(v); err != nil {
			return err
		}
	}
	return nil
}

// parseFilterState reads the filter selection from the query string:
// q, from, to, top_column, top_n and filter.<column>=v1,v2
func parseFilterState(r *http.Request, validate *validation.Validator) (domain.FilterState, error) {
	q := r.URL.Query()
	state := domain.FilterState{Search: q.Get("q")}

	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		dr := domain.DateRange{To: domain.OpenEnded}
		if from != "" {
			t, ok := dataprocessing.TryParseTime(from)
			if !ok {
				return state, apierrors.ErrValidation("from", fmt.Sprintf("cannot parse %q as a date", from))
			}
			dr.From = t
		}
		if to != "" {
			t, ok := dataprocessing.TryParseTime(to)
			if !ok {
				return state, apierrors.ErrValidation("to", fmt.Sprintf("cannot parse %q as a date", to))
			}
			dr.To = t
		}
		if dr.To.Before(dr.From) {
			return state, apierrors.ErrValidation("to", "to must not be before from")
		}
		state.DateRange = &dr
	}

	if raw := strings.TrimSpace(q.Get("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return state, apierrors.ErrValidation("top_n", "top_n must be a valid integer")
		}
		state.TopN = &domain.TopNSelector{Column: strings.TrimSpace(q.Get("top_column")), N: n}
	}

	for key, values := range q {
		if !strings.HasPrefix(key, columnFilterPrefix) {
			continue
		}
		column := strings.TrimPrefix(key, columnFilterPrefix)
		if column == "" {
			continue
		}
		if state.ColumnFilters == nil {
			state.ColumnFilters = map[string][]string{}
		}
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					state.ColumnFilters[column] = append(state.ColumnFilters[column], part)
				}
			}
		}
	}

	if validate != nil {
		if err := validate.Struct(state); err != nil {
			return state, err
		}
	}
	return state, nil
}

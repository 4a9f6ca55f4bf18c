package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	t := trackerFromContext(r)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"form": t.Form.Draft()})

	case http.MethodPatch:
		var body map[string]any
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := applyFields(t.Form, body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   err.Error(),
				"invalid": err.Invalid,
				"form":    t.Form.Draft(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"form": t.Form.Draft()})

	case http.MethodDelete:
		t.Form.Reset()
		writeJSON(w, http.StatusOK, map[string]any{"form": t.Form.Draft()})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// applyFields sets every known field in body, in form order. Fields that
// fail to parse are collected; the others still apply.
func applyFields(form *app.FormState, body map[string]any) *domain.ValidationError {
	invalid := map[string]string{}
	known := map[string]bool{}
	for _, f := range app.Fields {
		known[string(f)] = true
		v, ok := body[string(f)]
		if !ok {
			continue
		}
		raw, err := rawValue(v)
		if err != nil {
			invalid[string(f)] = err.Error()
			continue
		}
		if err := form.SetField(f, raw); err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				for k, msg := range verr.Invalid {
					invalid[k] = msg
				}
				continue
			}
			invalid[string(f)] = err.Error()
		}
	}
	for k := range body {
		if !known[k] {
			invalid[k] = "is not a form field"
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	return &domain.ValidationError{Invalid: invalid}
}

func rawValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("must be a string or number")
	}
}

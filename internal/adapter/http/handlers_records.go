package adapthttp

import (
	"errors"
	"io"
	"net/http"
)

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	t := trackerFromContext(r)

	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("reload") == "1" {
			if err := t.Reload(r.Context()); err != nil && len(t.Records.Records()) == 0 {
				writeFailure(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"records": t.Records.Records(),
			"warning": warning(t.Records.Warning()),
		})

	case http.MethodPost:
		// An optional body patches the form before submitting it.
		if r.ContentLength != 0 {
			var body map[string]any
			if err := parseJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if verr := applyFields(t.Form, body); verr != nil {
				writeFailure(w, verr)
				return
			}
		}
		rec, err := t.Submit(r.Context())
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"record":  rec,
			"records": t.Records.Records(),
			"form":    t.Form.Draft(),
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t := trackerFromContext(r)
	if err := t.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "records": t.Records.Records()})
}

func (s *Server) handleRecordEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t := trackerFromContext(r)
	editing, err := t.Edit(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"editing": editing, "form": t.Form.Draft()})
}

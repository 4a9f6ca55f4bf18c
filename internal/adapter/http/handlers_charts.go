package adapthttp

import (
	"net/http"

	"healthtrack/internal/domain"
)

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	t := trackerFromContext(r)
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = domain.UnitKg
	}

	chart, err := t.Chart(unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"unit":    unit,
		"labels":  chart.Labels,
		"series":  chart.Series,
		"warning": warning(t.Records.Warning()),
	})
}

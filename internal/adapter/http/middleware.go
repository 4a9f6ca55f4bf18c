package adapthttp

import (
	"context"
	"log"
	"net/http"
	"time"

	"healthtrack/internal/app"
)

type contextKey string

const trackerContextKey contextKey = "tracker"

// withTracker resolves the caller's session and passes its tracker on
// through the request context.
func (s *Server) withTracker(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.trackerFor(r.Context(), r)
		if err != nil {
			clearSessionCookie(w)
			writeFailure(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), trackerContextKey, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func trackerFromContext(r *http.Request) *app.Tracker {
	t, _ := r.Context().Value(trackerContextKey).(*app.Tracker)
	return t
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

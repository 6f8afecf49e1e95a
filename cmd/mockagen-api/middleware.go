package main

import (
	"net/http"
	"time"

	"github.com/mmrzaf/mockagen/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one request.completed line per request, at warn for
// 4xx and error for 5xx.
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		log := logger.Infow
		switch {
		case rec.status >= 500:
			log = logger.Errorw
		case rec.status >= 400:
			log = logger.Warnw
		}
		log("request.completed", fields)
	})
}

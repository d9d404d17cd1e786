package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// BodyLimit refuses requests whose declared Content-Length exceeds limit and
// caps the remaining bodies with chi's RequestSize, so oversized payloads
// fail before anything parses them.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	sized := chimw.RequestSize(limit)
	return func(next http.Handler) http.Handler {
		capped := sized(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "Payload Too Large")
				return
			}
			capped.ServeHTTP(w, r)
		})
	}
}

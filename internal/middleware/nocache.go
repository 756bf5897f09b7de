package middleware

import "net/http"

// NoCache disables response caching. Every response on the evidence API is
// either security-sensitive or time-sensitive (presigned URLs, live health
// status), so intermediaries must never cache them.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

package http

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		switch {
		// Swagger UI needs scripts, styles, and images to render
		case strings.HasPrefix(r.URL.Path, "/swagger/"):
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		// uploaded images are embedded by the frontend on another origin
		case strings.HasPrefix(r.URL.Path, "/images/"):
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
			w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
		default:
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
		}

		next.ServeHTTP(w, r)
	})
}

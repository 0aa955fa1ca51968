package middleware

import "net/http"

// DefaultMaxBodySize bounds JSON request bodies. Token names and scope maps
// are small.
const DefaultMaxBodySize int64 = 64 << 10

// MaxBodySize returns middleware that limits request body size.
// Handlers reading beyond maxBytes get an error from the body reader and the
// server closes the connection after the response.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

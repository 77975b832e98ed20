package middleware

import "net/http"

// DefaultMaxBodySize caps request bodies at 1 MB unless configured.
const DefaultMaxBodySize = 1 << 20

// BodyLimit rejects request bodies larger than maxBytes. Bodyless
// methods pass through untouched. A non-positive maxBytes falls back
// to DefaultMaxBodySize.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

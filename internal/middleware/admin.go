package middleware

import (
	"net/http"
)

// AdminKey guards mutating admin routes with a static key compared against
// the X-Admin-Key header. An empty configured key disables the guard.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && r.Header.Get("X-Admin-Key") != key {
				http.Error(w, "Not Authorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package transport

import "net/http"

// DefaultPoweredBy is the X-Powered-By value when none is configured.
const DefaultPoweredBy = "usergate"

// PoweredBy returns middleware that sets the X-Powered-By response header.
// An empty value disables the header.
func PoweredBy(value string) Middleware {
	return func(next http.Handler) http.Handler {
		if value == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Powered-By", value)
			next.ServeHTTP(w, r)
		})
	}
}

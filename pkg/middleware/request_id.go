package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/refurbd/renovation-planner/pkg/requestid"
)

// RequestID takes the request ID from the x-request-id header, falls
// back to chi's generated one, and finally mints a UUID, so every
// request carries an ID the rest of the stack can log.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/linkup-hub/pkg/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-ID"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		// inject into context, both for the logger and for chi's GetReqID
		ctx := logger.With(r.Context(), "traceID", traceID)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)

		// propagate back to response
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

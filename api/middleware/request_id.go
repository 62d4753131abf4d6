package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxInboundIDLength = 128
)

// RequestID reuses a sane inbound X-Request-Id (from the edge proxy) or mints one,
// echoes it on the response and attaches it to the log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id == "" || len(id) > maxInboundIDLength || strings.ContainsAny(id, "\r\n\"") {
		return uuid.NewString()
	}
	return id
}

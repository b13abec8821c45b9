package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/linkup-hub/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

const (
	filtered     = "[FILTERED]"
	maxLoggedLen = 4 << 10
)

// Key fragments whose values never reach the logs.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"cookie",
}

// Key fragments holding subscriber MSISDNs; masked rather than dropped.
var phoneFields = []string{"phone", "msisdn", "partya"}

func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := logger.FromOr(r.Context(), base).With("request_id", middleware.GetReqID(r.Context()))

			reqBody := peekBody(r)
			log.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", filterSensitiveHeaders(r.Header),
				"body", filterSensitiveBody(reqBody),
			)

			rec := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Log(r.Context(), levelFor(rec.status), "response",
				"route", routePattern(r),
				"status_code", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", filterSensitiveBody(rec.body.Bytes()),
			)
		})
	}
}

// peekBody reads at most maxLoggedLen+1 bytes for the log line and puts them
// back in front of the unread stream, so handlers still see the whole body and
// their own size limits apply.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedLen+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// responseWriter records the status and keeps the first maxLoggedLen bytes of the body.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if room := maxLoggedLen - rw.body.Len(); room > 0 {
		rw.body.Write(b[:min(room, len(b))])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func matchesAny(key string, fragments []string) bool {
	key = strings.ToLower(key)
	for _, f := range fragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if matchesAny(name, sensitiveFields) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if matchesAny(string(body), sensitiveFields) || matchesAny(string(body), phoneFields) {
			return "[FILTERED - Contains sensitive data]"
		}
		return truncate(string(body))
	}

	out, err := json.Marshal(redact(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return truncate(string(out))
}

func truncate(s string) string {
	if len(s) <= maxLoggedLen {
		return s
	}
	return s[:maxLoggedLen] + "...(truncated)"
}

func redact(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		// Callback metadata arrives as {"Name": "PhoneNumber", "Value": 2547...}.
		if name, ok := v["Name"].(string); ok && matchesAny(name, phoneFields) {
			if val, ok := v["Value"]; ok {
				out := make(map[string]interface{}, len(v))
				for k, x := range v {
					out[k] = x
				}
				out["Value"] = maskPhone(val)
				return out
			}
		}
		out := make(map[string]interface{}, len(v))
		for k, x := range v {
			switch {
			case matchesAny(k, sensitiveFields):
				out[k] = filtered
			case matchesAny(k, phoneFields):
				out[k] = maskPhone(x)
			default:
				out[k] = redact(x)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, x := range v {
			out[i] = redact(x)
		}
		return out
	default:
		return v
	}
}

// maskPhone keeps the country prefix and the last three digits.
func maskPhone(v interface{}) string {
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case float64:
		s = fmt.Sprintf("%.0f", p)
	default:
		return filtered
	}
	if len(s) <= 7 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-7) + s[len(s)-3:]
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// reqInfo carries identity fields discovered by inner middleware back out to
// the access log that wrapped the request. Auth fills it in once the key
// validates, so the request line names the session and the active tenant.
type reqInfo struct {
	mu       sync.Mutex
	session  string
	tenantID *uuid.UUID
}

func (i *reqInfo) set(session string, tenantID *uuid.UUID) {
	if i == nil {
		return
	}
	i.mu.Lock()
	i.session = session
	i.tenantID = tenantID
	i.mu.Unlock()
}

func (i *reqInfo) fields() []any {
	if i == nil {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []any
	if i.session != "" {
		out = append(out, "session", i.session)
	}
	if i.tenantID != nil {
		out = append(out, "tenant_id", i.tenantID.String())
	}
	return out
}

type reqInfoKey struct{}

func infoFrom(ctx context.Context) *reqInfo {
	info, _ := ctx.Value(reqInfoKey{}).(*reqInfo)
	return info
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		info := &reqInfo{}
		r = r.WithContext(context.WithValue(r.Context(), reqInfoKey{}, info))

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		slog.Info("request", append(args, info.fields()...)...)
	})
}

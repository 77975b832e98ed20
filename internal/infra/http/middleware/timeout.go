package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/northstarhq/api/pkg/apierror"
)

// Timeout cancels the request context after the given duration and
// answers 504 if the handler has not written anything by then. Late
// writes from the handler goroutine are swallowed.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			dw := &deadlineWriter{ResponseWriter: w}

			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				dw.mu.Lock()
				defer dw.mu.Unlock()
				if !dw.wrote {
					dw.expired = true
					apierror.New(http.StatusGatewayTimeout, "TIMEOUT", "Request timeout").WriteJSON(w)
				}
			}
		})
	}
}

// deadlineWriter suppresses handler output once the deadline response
// has been sent, so the two goroutines never interleave writes.
type deadlineWriter struct {
	http.ResponseWriter

	mu      sync.Mutex
	wrote   bool
	expired bool
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired {
		return 0, context.DeadlineExceeded
	}
	dw.wrote = true
	return dw.ResponseWriter.Write(b)
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.expired {
		return
	}
	dw.wrote = true
	dw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the wrapper.
func (dw *deadlineWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := dw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/authgate/authgate"
)

// rejection is the JSON body written for denied requests.
type rejection struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Protect returns middleware that enforces the engine's rule table. It
// expects Resolve upstream; a request that bypassed Resolve is treated as
// anonymous. Denied requests receive 401 or 403 with a JSON body and do not
// reach the wrapped handler.
func Protect(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sctx, _ := SecurityContextFrom(r.Context())

			err := engine.Authorize(r.Context(), r.Method, r.URL.Path, sctx)
			if err != nil {
				writeRejection(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, reason error) {
	status := http.StatusForbidden
	code := "forbidden"
	message := "insufficient role for this resource"

	if errors.Is(reason, authgate.ErrUnauthenticated) {
		status = http.StatusUnauthorized
		code = "unauthenticated"
		message = "authentication required"
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejection{
		Status:    status,
		Error:     code,
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

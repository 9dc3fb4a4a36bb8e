// internal/httpx/respond.go
//
// JSON response helpers shared by every component.  Errors always use the
// `{"error": "<message>"}` envelope so clients can show the message as-is.
package httpx

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yanizio/sitesmith/internal/logger"
)

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes data with status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Warnw("json response encode failed", "err", err)
	}
}

// Error writes the error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// HTML writes a complete HTML document.
func HTML(w http.ResponseWriter, status int, doc string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(doc))
}

// Fail writes err's message with status.  Server-side failures are logged
// on the request logger first; the message still goes to the caller as-is
// so upstream errors stay readable.
func Fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("request failed", "status", status, "err", err)
	}
	Error(w, status, err.Error())
}

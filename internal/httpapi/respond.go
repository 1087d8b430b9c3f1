package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fernandezvara/agencykit"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// errorResponder turns store and guard errors into problem responses.
// Server errors are logged and their detail withheld.
func errorResponder(logger *zap.Logger) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := agencykit.StatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeProblem(w, status, "")
			return
		}
		writeProblem(w, status, publicDetail(err))
	}
}

// publicDetail returns the message of an agencykit error without the
// role and record decorations Error() adds.
func publicDetail(err error) string {
	var e *agencykit.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return agencykit.NewError(agencykit.ErrInvalidRecord, "malformed JSON body")
	}
	return nil
}

const maxBodyBytes = 1 << 20

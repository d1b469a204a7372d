package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// that is not an *apperrors.AppError is an internal failure and stays opaque.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		writeJSON(w, ae.HTTPStatus(), Fail(ae.Message))
		return
	}
	logger.Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/baechuer/tokenauth/internal/domain"
	"github.com/baechuer/tokenauth/internal/logger"
	appCtx "github.com/baechuer/tokenauth/internal/pkg/context"
)

// StatusClientClosedRequest is logged when the caller went away mid-request.
const StatusClientClosedRequest = 499

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError renders err as {"error": {...}}. Only *domain.Error and context
// errors are described to the client; everything else is a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := classify(err)
	payload.RequestID = appCtx.GetRequestID(r.Context())

	if status >= http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error().
			Err(err).
			Int("status", status).
			Str("code", payload.Code).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: payload})
}

func classify(err error) (int, ErrorPayload) {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return statusFromKind(de.Kind), ErrorPayload{Code: de.Code, Message: de.Message, Meta: de.Meta}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorPayload{Code: "timeout", Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorPayload{Code: "canceled", Message: "request canceled"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Code: "internal_error", Message: "internal error"}
	}
}

var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindInternal:       http.StatusInternalServerError,
}

func statusFromKind(kind domain.ErrKind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

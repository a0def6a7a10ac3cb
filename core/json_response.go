package core

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/photovault/photovault/pkg/logger"
)

// JSONResponse is the envelope every API response is wrapped in.
type JSONResponse struct {
	Code  string         `json:"code,omitempty"`
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// maxBodyBytes caps request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// JSON writes data with the given status inside the envelope.
func JSON(w http.ResponseWriter, status int, code string, data any, meta map[string]any) error {
	return write(w, status, JSONResponse{Code: code, Data: data, Meta: meta})
}

// JSONError writes err inside the envelope. ValidationError answers 422,
// HTTPError its own code, anything else 500 without leaking the message.
func JSONError(w http.ResponseWriter, err error) error {
	status, detail := classify(err)
	return write(w, status, JSONResponse{Code: detail.Code, Error: detail})
}

// Fail writes err like JSONError and logs it when it maps to a 5xx.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	_ = JSONError(w, err)
}

func classify(err error) (int, *ErrorDetail) {
	var valErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &valErr):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "validation_error", Message: "request validation failed", Details: valErr}
	case errors.As(err, &httpErr):
		msg := httpErr.Message
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: msg}
	}
	return http.StatusInternalServerError, &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

// DecodeJSON reads a JSON body into dst and validates it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrBadRequest.WithMessage("malformed JSON body")
	}
	return Validate(dst)
}

func write(w http.ResponseWriter, status int, body JSONResponse) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/absmach/asgd/pkg/errors"
)

const (
	ContentType     = "application/json"
	CBORContentType = "application/cbor"
)

// ErrValidation marks malformed requests.
var ErrValidation = errors.New("malformed entity specification")

// Response lets an endpoint response control the status code and headers.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

type errorRes struct {
	Err string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// StatusCode maps an error onto the HTTP status used to report it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrUnsupported),
		errors.Is(err, pkgerrors.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, pkgerrors.ErrServiceStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(StatusCode(err))

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// DecodeError turns an error reply back into the sentinel it was encoded from.
func DecodeError(status int, msg string) error {
	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = ErrValidation
	case http.StatusNotFound:
		sentinel = pkgerrors.ErrNotFound
	case http.StatusNotImplemented:
		sentinel = pkgerrors.ErrUnsupported
	case http.StatusServiceUnavailable:
		sentinel = pkgerrors.ErrServiceStopped
	default:
		return errors.New(msg)
	}
	if msg == "" {
		return sentinel
	}

	return errors.Join(sentinel, errors.New(msg))
}

// Health reports liveness of a service instance.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)

		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":      "pass",
			"service":     service,
			"instance_id": instanceID,
		})
	}
}

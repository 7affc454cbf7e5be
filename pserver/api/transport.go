package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/asgd/pkg/api"
	"github.com/absmach/asgd/pserver"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	svcName     = "pserver"
	maxBodySize = 1024 * 1024 * 64
)

// MakeHandler returns the HTTP handler serving svc.
func MakeHandler(svc pserver.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(loggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/center", otelhttp.NewHandler(kithttp.NewServer(
		pullEndpoint(svc),
		decodeEmptyReq,
		encodeCBORResponse,
		opts...,
	), "pull-center").ServeHTTP)

	mux.Post("/commit", otelhttp.NewHandler(kithttp.NewServer(
		commitEndpoint(svc),
		decodeCommitReq,
		api.EncodeResponse,
		opts...,
	), "commit-delta").ServeHTTP)

	mux.Post("/exchange", otelhttp.NewHandler(kithttp.NewServer(
		exchangeEndpoint(svc),
		decodeExchangeReq,
		encodeCBORResponse,
		opts...,
	), "elastic-exchange").ServeHTTP)

	mux.Get("/updates", otelhttp.NewHandler(kithttp.NewServer(
		numUpdatesEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "num-updates").ServeHTTP)

	mux.Get("/model", otelhttp.NewHandler(kithttp.NewServer(
		modelEndpoint(svc),
		decodeEmptyReq,
		encodeCBORResponse,
		opts...,
	), "get-model").ServeHTTP)

	mux.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
		stopEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "stop").ServeHTTP)

	mux.Get("/health", api.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func loggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if api.StatusCode(err) >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		}
		enc(ctx, err, w)
	}
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeCommitReq(_ context.Context, r *http.Request) (any, error) {
	var c pserver.Commit
	if err := decodeCBOR(r, &c); err != nil {
		return nil, err
	}

	return commitReq{Commit: c}, nil
}

func decodeExchangeReq(_ context.Context, r *http.Request) (any, error) {
	var e pserver.Exchange
	if err := decodeCBOR(r, &e); err != nil {
		return nil, err
	}

	return exchangeReq{Exchange: e}, nil
}

func decodeCBOR(r *http.Request, v any) error {
	if !strings.Contains(r.Header.Get("Content-Type"), api.CBORContentType) {
		return errors.Join(api.ErrValidation, fmt.Errorf("unsupported content type %q", r.Header.Get("Content-Type")))
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return errors.Join(api.ErrValidation, err)
	}

	return nil
}

func encodeCBORResponse(_ context.Context, w http.ResponseWriter, response any) error {
	var (
		data []byte
		err  error
	)
	switch res := response.(type) {
	case interface{ Bytes() []byte }:
		data = res.Bytes()
	default:
		data, err = cbor.Marshal(response)
		if err != nil {
			return err
		}
	}

	w.Header().Set("Content-Type", api.CBORContentType)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)

	return err
}

package api

import (
	"context"
	"errors"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/api"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pserver"
	"github.com/go-kit/kit/endpoint"
)

func pullEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		w, err := svc.Pull(ctx)
		if err != nil {
			return weightsResponse{}, err
		}

		return weightsResponse{Weights: w}, nil
	}
}

func commitEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(commitReq)
		if !ok {
			return updatesResponse{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updatesResponse{}, errors.Join(api.ErrValidation, err)
		}

		if err := svc.Commit(ctx, req.Commit); err != nil {
			return updatesResponse{}, err
		}

		return updatesResponse{NumUpdates: svc.NumUpdates()}, nil
	}
}

func exchangeEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(exchangeReq)
		if !ok {
			return weightsResponse{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return weightsResponse{}, errors.Join(api.ErrValidation, err)
		}

		w, err := svc.Exchange(ctx, req.Exchange)
		if err != nil {
			return weightsResponse{}, err
		}

		return weightsResponse{Weights: w}, nil
	}
}

func numUpdatesEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return updatesResponse{NumUpdates: svc.NumUpdates()}, nil
	}
}

func modelEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		m, err := svc.Model(ctx)
		if err != nil {
			return modelResponse{}, err
		}
		data, err := model.Marshal(m)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{data: data}, nil
	}
}

func stopEndpoint(svc pserver.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := svc.Stop(ctx); err != nil {
			return stopResponse{}, err
		}

		return stopResponse{Status: "stopping"}, nil
	}
}

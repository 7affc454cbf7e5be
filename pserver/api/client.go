package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/api"
	pkgerrors "github.com/absmach/asgd/pkg/errors"
	"github.com/absmach/asgd/pserver"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var _ pserver.Client = (*client)(nil)

type client struct {
	pull     endpoint.Endpoint
	commit   endpoint.Endpoint
	exchange endpoint.Endpoint
	updates  endpoint.Endpoint
	model    endpoint.Endpoint
	stop     endpoint.Endpoint
}

// NewClient returns a parameter server client talking to the service at baseURL.
// A nil hc gets an instrumented default client.
func NewClient(baseURL string, hc *http.Client) (pserver.Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q is not an absolute URL", pkgerrors.ErrInvalidConfig, baseURL)
	}
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	opts := []kithttp.ClientOption{kithttp.SetClient(hc)}

	return &client{
		pull:     kithttp.NewClient(http.MethodGet, u.JoinPath("center"), encodeEmptyRequest, decodeResponse(http.StatusOK, decodeWeights), opts...).Endpoint(),
		commit:   kithttp.NewClient(http.MethodPost, u.JoinPath("commit"), encodeCBORRequest, decodeResponse(http.StatusOK, discardBody), opts...).Endpoint(),
		exchange: kithttp.NewClient(http.MethodPost, u.JoinPath("exchange"), encodeCBORRequest, decodeResponse(http.StatusOK, decodeWeights), opts...).Endpoint(),
		updates:  kithttp.NewClient(http.MethodGet, u.JoinPath("updates"), encodeEmptyRequest, decodeResponse(http.StatusOK, decodeUpdates), opts...).Endpoint(),
		model:    kithttp.NewClient(http.MethodGet, u.JoinPath("model"), encodeEmptyRequest, decodeResponse(http.StatusOK, decodeModel), opts...).Endpoint(),
		stop:     kithttp.NewClient(http.MethodPost, u.JoinPath("stop"), encodeEmptyRequest, decodeResponse(http.StatusAccepted, discardBody), opts...).Endpoint(),
	}, nil
}

func (c *client) Pull(ctx context.Context) (model.Weights, error) {
	res, err := c.pull(ctx, nil)
	if err != nil {
		return nil, err
	}

	return res.(model.Weights), nil
}

func (c *client) Commit(ctx context.Context, cm pserver.Commit) error {
	_, err := c.commit(ctx, cm)

	return err
}

func (c *client) Exchange(ctx context.Context, e pserver.Exchange) (model.Weights, error) {
	res, err := c.exchange(ctx, e)
	if err != nil {
		return nil, err
	}

	return res.(model.Weights), nil
}

func (c *client) NumUpdates(ctx context.Context) (uint64, error) {
	res, err := c.updates(ctx, nil)
	if err != nil {
		return 0, err
	}

	return res.(uint64), nil
}

func (c *client) Model(ctx context.Context) (model.Model, error) {
	res, err := c.model(ctx, nil)
	if err != nil {
		return nil, err
	}

	return res.(model.Model), nil
}

func (c *client) Stop(ctx context.Context) error {
	_, err := c.stop(ctx, nil)

	return err
}

func encodeEmptyRequest(_ context.Context, _ *http.Request, _ any) error {
	return nil
}

func encodeCBORRequest(_ context.Context, r *http.Request, request any) error {
	data, err := cbor.Marshal(request)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", api.CBORContentType)
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))

	return nil
}

// decodeResponse checks the status code before handing the body to decode. Error
// replies are mapped back onto the sentinel they were encoded from.
func decodeResponse(expected int, decode func(body []byte) (any, error)) kithttp.DecodeResponseFunc {
	return func(_ context.Context, resp *http.Response) (any, error) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != expected {
			var res struct {
				Err string `json:"error"`
			}
			if err := json.Unmarshal(body, &res); err != nil || res.Err == "" {
				res.Err = fmt.Sprintf("unexpected response code: %d", resp.StatusCode)
			}

			return nil, api.DecodeError(resp.StatusCode, res.Err)
		}

		return decode(body)
	}
}

func decodeWeights(body []byte) (any, error) {
	var res weightsResponse
	if err := cbor.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return res.Weights, nil
}

func decodeUpdates(body []byte) (any, error) {
	var res updatesResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}

	return res.NumUpdates, nil
}

func decodeModel(body []byte) (any, error) {
	return model.Unmarshal(body)
}

func discardBody([]byte) (any, error) {
	return nil, nil
}

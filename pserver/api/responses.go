package api

import (
	"net/http"

	"github.com/absmach/asgd/model"
	"github.com/absmach/asgd/pkg/api"
)

var (
	_ api.Response = (*updatesResponse)(nil)
	_ api.Response = (*stopResponse)(nil)
)

// weightsResponse is encoded as CBOR.
type weightsResponse struct {
	Weights model.Weights `cbor:"weights"`
}

// modelResponse carries an already serialized model.
type modelResponse struct {
	data []byte
}

func (m modelResponse) Bytes() []byte {
	return m.data
}

type updatesResponse struct {
	NumUpdates uint64 `json:"num_updates"`
}

func (u updatesResponse) Code() int {
	return http.StatusOK
}

func (u updatesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (u updatesResponse) Empty() bool {
	return false
}

type stopResponse struct {
	Status string `json:"status"`
}

func (s stopResponse) Code() int {
	return http.StatusAccepted
}

func (s stopResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s stopResponse) Empty() bool {
	return false
}

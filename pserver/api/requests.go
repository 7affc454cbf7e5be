package api

import (
	"errors"

	"github.com/absmach/asgd/pserver"
)

var errEmptyWeights = errors.New("empty weight vector")

type emptyReq struct{}

type commitReq struct {
	pserver.Commit
}

func (req commitReq) validate() error {
	if len(req.Delta) == 0 {
		return errEmptyWeights
	}

	return nil
}

type exchangeReq struct {
	pserver.Exchange
}

func (req exchangeReq) validate() error {
	if len(req.Weights) == 0 {
		return errEmptyWeights
	}

	return nil
}

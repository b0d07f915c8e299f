package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openvault/ledger-node/storage"
)

// latestBlock handles GET /blocks.
func (a *API) latestBlock(w http.ResponseWriter, _ *http.Request) {
	b, err := a.storage.LatestBlock()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrChainEmpty.Write(w)
			return
		}
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, b)
}

// blockByHeight handles GET /blocks/{height}.
func (a *API) blockByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(chi.URLParam(r, HeightURLParam), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("height must be a non-negative integer").Write(w)
		return
	}
	b, err := a.storage.BlockByHeight(height)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrBlockNotFound.Write(w)
			return
		}
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, b)
}

// verifyChain handles GET /blocks/verify. It recomputes every block
// hash and merkle root from genesis to head.
func (a *API) verifyChain(w http.ResponseWriter, _ *http.Request) {
	height, err := a.storage.VerifyChain()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrChainEmpty.Write(w)
			return
		}
		ErrChainVerificationFailed.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, struct {
		Valid  bool   `json:"valid"`
		Height uint64 `json:"height"`
	}{Valid: true, Height: height})
}

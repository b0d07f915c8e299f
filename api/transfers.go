package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openvault/ledger-node/ledger"
	"github.com/openvault/ledger-node/storage"
)

// defaultStuckAge is the PROCESSING age threshold when the stuck query
// carries no explicit one.
const defaultStuckAge = time.Minute

// newTransfer handles POST /transfers. On success the transaction is
// PENDING with funds locked; confirmation happens asynchronously when a
// block seals it.
func (a *API) newTransfer(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)
	if userID == "" {
		ErrUnauthorized.Write(w)
		return
	}
	req := struct {
		FromAddress string `json:"fromAddress"`
		ToAddress   string `json:"toAddress"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.Write(w)
		return
	}
	if req.FromAddress == "" || req.ToAddress == "" {
		ErrMalformedParam.Withf("fromAddress and toAddress are required").Write(w)
		return
	}
	if req.FromAddress == req.ToAddress {
		ErrSelfTransfer.Write(w)
		return
	}
	tx, err := a.engine.SubmitTransfer(r.Context(), ledger.TransferRequest{
		UserID:      userID,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, tx)
}

// transferStatus handles GET /transfers/{systemHash}.
func (a *API) transferStatus(w http.ResponseWriter, r *http.Request) {
	tx, err := a.storage.TransactionByHash(chi.URLParam(r, TxHashURLParam))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrTransactionNotFound.Write(w)
			return
		}
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, tx)
}

// stuckTransfers handles GET /transfers/stuck?maxAgeSeconds=n. It lists
// PROCESSING transactions whose balances moved but which never made it
// into a block.
func (a *API) stuckTransfers(w http.ResponseWriter, r *http.Request) {
	maxAge := defaultStuckAge
	if s := r.URL.Query().Get("maxAgeSeconds"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			ErrMalformedParam.Withf("maxAgeSeconds must be a non-negative integer").Write(w)
			return
		}
		maxAge = time.Duration(n) * time.Second
	}
	txs, err := a.engine.StuckTransfers(maxAge)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, txs)
}

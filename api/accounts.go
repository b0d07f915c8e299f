package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openvault/ledger-node/storage"
	"github.com/openvault/ledger-node/types"
)

// newWallet handles POST /wallets. It creates a wallet owned by the
// authenticated user.
func (a *API) newWallet(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)
	if userID == "" {
		ErrUnauthorized.Write(w)
		return
	}
	wallet, err := a.storage.CreateWallet(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, wallet)
}

// listWallets handles GET /wallets.
func (a *API) listWallets(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)
	if userID == "" {
		ErrUnauthorized.Write(w)
		return
	}
	wallets, err := a.storage.WalletsByUser(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, wallets)
}

// ownedWallet loads the wallet from the URL and checks it belongs to
// the authenticated user.
func (a *API) ownedWallet(w http.ResponseWriter, r *http.Request) *types.Wallet {
	userID := UserID(r)
	if userID == "" {
		ErrUnauthorized.Write(w)
		return nil
	}
	wallet, err := a.storage.Wallet(chi.URLParam(r, WalletURLParam))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrWalletNotFound.Write(w)
			return nil
		}
		writeDomainError(w, err)
		return nil
	}
	if wallet.UserID != userID {
		ErrAccountNotOwned.Write(w)
		return nil
	}
	return wallet
}

// newAccount handles POST /wallets/{walletId}/accounts.
func (a *API) newAccount(w http.ResponseWriter, r *http.Request) {
	wallet := a.ownedWallet(w, r)
	if wallet == nil {
		return
	}
	req := struct {
		Currency string `json:"currency"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.Write(w)
		return
	}
	acc, err := a.storage.CreateAccount(wallet.ID, req.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, acc)
}

// listAccounts handles GET /wallets/{walletId}/accounts.
func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	wallet := a.ownedWallet(w, r)
	if wallet == nil {
		return
	}
	accounts, err := a.storage.AccountsByWallet(wallet.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, accounts)
}

// ownedAccount loads the account from the URL and checks it belongs to
// the authenticated user.
func (a *API) ownedAccount(w http.ResponseWriter, r *http.Request) *types.Account {
	userID := UserID(r)
	if userID == "" {
		ErrUnauthorized.Write(w)
		return nil
	}
	acc, err := a.storage.AccountByAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrAccountNotFound.Write(w)
			return nil
		}
		writeDomainError(w, err)
		return nil
	}
	owner, err := a.storage.AccountOwner(acc)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	if owner != userID {
		ErrAccountNotOwned.Write(w)
		return nil
	}
	return acc
}

// account handles GET /accounts/{address}.
func (a *API) account(w http.ResponseWriter, r *http.Request) {
	acc := a.ownedAccount(w, r)
	if acc == nil {
		return
	}
	httpWriteJSON(w, acc)
}

// accountBalance handles GET /accounts/{address}/balance. The response
// may come from the balance cache, so it can lag a mutation by up to
// the cache TTL.
func (a *API) accountBalance(w http.ResponseWriter, r *http.Request) {
	acc := a.ownedAccount(w, r)
	if acc == nil {
		return
	}
	balance, err := a.engine.AccountBalance(r.Context(), acc.SystemAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, balance)
}

// accountHistory handles GET /accounts/{address}/transactions?limit=n.
func (a *API) accountHistory(w http.ResponseWriter, r *http.Request) {
	acc := a.ownedAccount(w, r)
	if acc == nil {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			ErrMalformedParam.Withf("limit must be a non-negative integer").Write(w)
			return
		}
		limit = n
	}
	txs, err := a.storage.TransactionsByAccount(acc.ID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, txs)
}

// newDeposit handles POST /accounts/{address}/deposits. Deposits are an
// operator action guarded by the admin token, not user authentication.
func (a *API) newDeposit(w http.ResponseWriter, r *http.Request) {
	if a.adminToken == "" || r.Header.Get("X-Admin-Token") != a.adminToken {
		ErrUnauthorized.Write(w)
		return
	}
	req := struct {
		Amount string `json:"amount"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.Write(w)
		return
	}
	acc, err := a.engine.Deposit(r.Context(), chi.URLParam(r, AddressURLParam), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpWriteJSON(w, acc)
}

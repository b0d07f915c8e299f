package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/queue"
	"github.com/openvault/ledger-node/types"
)

const balanceKeyPrefix = "balance:"

// Balance is the read model of an account's funds.
type Balance struct {
	Address   string       `json:"address"`
	Currency  string       `json:"currency"`
	Total     types.Amount `json:"total"`
	Locked    types.Amount `json:"locked"`
	Available types.Amount `json:"available"`
	Nonce     uint64       `json:"nonce"`
}

// AccountBalance returns the balance of the account at addr, served
// from the queue-backed cache when fresh. The cache is invalidated on
// every mutation of the account, so staleness is bounded by races
// within the TTL window.
func (e *Engine) AccountBalance(ctx context.Context, addr string) (*Balance, error) {
	key := balanceKeyPrefix + addr
	if e.cfg.BalanceCacheTTL > 0 {
		if cached, err := e.queue.Get(ctx, key); err == nil {
			b := &Balance{}
			if err := json.Unmarshal([]byte(cached), b); err == nil {
				return b, nil
			}
			// Unreadable cache entry, fall through to storage.
		} else if !errors.Is(err, queue.ErrCacheMiss) {
			log.Warnw("balance cache read failed", "address", addr, "error", err.Error())
		}
	}

	acc, err := e.stg.AccountByAddress(addr)
	if err != nil {
		return nil, err
	}
	b := &Balance{
		Address:   acc.SystemAddress,
		Currency:  acc.Currency,
		Total:     acc.Balance,
		Locked:    acc.Locked,
		Available: acc.Available(),
		Nonce:     acc.Nonce,
	}
	if e.cfg.BalanceCacheTTL > 0 {
		data, err := json.Marshal(b)
		if err == nil {
			if err := e.queue.SetEx(ctx, key, string(data), e.cfg.BalanceCacheTTL); err != nil {
				log.Warnw("balance cache write failed", "address", addr, "error", err.Error())
			}
		}
	}
	return b, nil
}

// invalidateBalance drops the cached balances for the given addresses.
func (e *Engine) invalidateBalance(ctx context.Context, addrs ...string) {
	if e.cfg.BalanceCacheTTL <= 0 || len(addrs) == 0 {
		return
	}
	keys := make([]string, len(addrs))
	for i, addr := range addrs {
		keys[i] = balanceKeyPrefix + addr
	}
	if err := e.queue.Del(ctx, keys...); err != nil {
		log.Warnw("balance cache invalidation failed", "error", err.Error())
	}
}

// Deposit credits an account and refreshes its cached balance.
func (e *Engine) Deposit(ctx context.Context, addr, amount string) (*types.Account, error) {
	a, err := types.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	acc, err := e.stg.Deposit(addr, a)
	if err != nil {
		return nil, err
	}
	e.invalidateBalance(ctx, addr)
	return acc, nil
}

// Package service wraps the ledger components into start/stoppable
// units wired together by the ledgerd entrypoint.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/openvault/ledger-node/api"
	"github.com/openvault/ledger-node/ledger"
	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/storage"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage    *storage.Storage
	engine     *ledger.Engine
	API        *api.API
	mu         sync.Mutex
	cancel     context.CancelFunc
	host       string
	port       int
	jwtSecret  string
	adminToken string
}

// NewAPI creates a new APIService instance.
func NewAPI(stg *storage.Storage, engine *ledger.Engine, host string, port int, jwtSecret, adminToken string, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		storage:    stg,
		engine:     engine,
		host:       host,
		port:       port,
		jwtSecret:  jwtSecret,
		adminToken: adminToken,
	}
}

// Start begins the API server. It returns an error if the service is
// already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}
	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.API, err = api.New(&api.APIConfig{
		Host:       as.host,
		Port:       as.port,
		Storage:    as.storage,
		Engine:     as.engine,
		JWTSecret:  as.jwtSecret,
		AdminToken: as.adminToken,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}

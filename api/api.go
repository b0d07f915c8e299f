package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openvault/ledger-node/ledger"
	"github.com/openvault/ledger-node/log"
	stg "github.com/openvault/ledger-node/storage"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	Engine  *ledger.Engine
	// JWTSecret signs and verifies bearer tokens (HS256). Empty runs
	// the server in development mode trusting the X-User-ID header.
	JWTSecret string
	// AdminToken guards the deposit endpoint. Empty disables deposits.
	AdminToken string
}

// API type represents the API HTTP server.
type API struct {
	router     *chi.Mux
	storage    *stg.Storage
	engine     *ledger.Engine
	jwtSecret  string
	adminToken string
}

// New creates a new API instance with the given configuration and
// starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing ledger engine")
	}
	a := &API{
		storage:    conf.Storage,
		engine:     conf.Engine,
		jwtSecret:  conf.JWTSecret,
		adminToken: conf.AdminToken,
	}
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	// wallet endpoints
	log.Infow("register handler", "endpoint", WalletsEndpoint, "method", "POST")
	a.router.Post(WalletsEndpoint, a.newWallet)
	log.Infow("register handler", "endpoint", WalletsEndpoint, "method", "GET")
	a.router.Get(WalletsEndpoint, a.listWallets)
	log.Infow("register handler", "endpoint", WalletAccountsEndpoint, "method", "POST")
	a.router.Post(WalletAccountsEndpoint, a.newAccount)
	log.Infow("register handler", "endpoint", WalletAccountsEndpoint, "method", "GET")
	a.router.Get(WalletAccountsEndpoint, a.listAccounts)
	// account endpoints
	log.Infow("register handler", "endpoint", AccountEndpoint, "method", "GET")
	a.router.Get(AccountEndpoint, a.account)
	log.Infow("register handler", "endpoint", AccountBalanceEndpoint, "method", "GET")
	a.router.Get(AccountBalanceEndpoint, a.accountBalance)
	log.Infow("register handler", "endpoint", AccountHistoryEndpoint, "method", "GET")
	a.router.Get(AccountHistoryEndpoint, a.accountHistory)
	log.Infow("register handler", "endpoint", AccountDepositEndpoint, "method", "POST")
	a.router.Post(AccountDepositEndpoint, a.newDeposit)
	// transfer endpoints
	log.Infow("register handler", "endpoint", TransfersEndpoint, "method", "POST")
	a.router.Post(TransfersEndpoint, a.newTransfer)
	log.Infow("register handler", "endpoint", StuckTransfersEndpoint, "method", "GET")
	a.router.Get(StuckTransfersEndpoint, a.stuckTransfers)
	log.Infow("register handler", "endpoint", TransferStatusEndpoint, "method", "GET")
	a.router.Get(TransferStatusEndpoint, a.transferStatus)
	// block endpoints
	log.Infow("register handler", "endpoint", BlocksEndpoint, "method", "GET")
	a.router.Get(BlocksEndpoint, a.latestBlock)
	log.Infow("register handler", "endpoint", ChainVerifyEndpoint, "method", "GET")
	a.router.Get(ChainVerifyEndpoint, a.verifyChain)
	log.Infow("register handler", "endpoint", BlockEndpoint, "method", "GET")
	a.router.Get(BlockEndpoint, a.blockByHeight)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.Use(authMiddleware(a.jwtSecret))

	a.registerHandlers()
}

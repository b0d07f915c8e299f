package api

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Wallet endpoints
	WalletURLParam     = "walletId"                                  // URL parameter for wallet ID
	WalletsEndpoint    = "/wallets"                                  // POST: Create wallet, GET: List own wallets
	WalletEndpoint     = "/wallets/{" + WalletURLParam + "}"         // GET: Get wallet info
	WalletAccountsEndpoint = WalletEndpoint + "/accounts"            // POST: Create account, GET: List accounts

	// Account endpoints
	AddressURLParam        = "address"                                       // URL parameter for system address
	AccountEndpoint        = "/accounts/{" + AddressURLParam + "}"           // GET: Get account info
	AccountBalanceEndpoint = AccountEndpoint + "/balance"                    // GET: Get cached balance
	AccountHistoryEndpoint = AccountEndpoint + "/transactions"               // GET: List transactions touching the account
	AccountDepositEndpoint = AccountEndpoint + "/deposits"                   // POST: Credit funds (admin)

	// Transfer endpoints
	TxHashURLParam        = "systemHash"                                 // URL parameter for transaction system hash
	TransfersEndpoint     = "/transfers"                                 // POST: Submit a transfer
	TransferStatusEndpoint = TransfersEndpoint + "/{" + TxHashURLParam + "}" // GET: Check transfer status
	StuckTransfersEndpoint = TransfersEndpoint + "/stuck"                // GET: List stuck processing transfers

	// Block endpoints
	HeightURLParam      = "height"                               // URL parameter for block height
	BlocksEndpoint      = "/blocks"                              // GET: Latest block
	BlockEndpoint       = BlocksEndpoint + "/{" + HeightURLParam + "}" // GET: Block by height
	ChainVerifyEndpoint = BlocksEndpoint + "/verify"             // GET: Walk and verify the whole chain
)

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
}

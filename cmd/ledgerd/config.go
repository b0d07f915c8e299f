package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openvault/ledger-node/internal"
)

const (
	defaultAPIHost        = "0.0.0.0"
	defaultAPIPort        = 8080
	defaultLogLevel       = "info"
	defaultLogOutput      = "stdout"
	defaultDatadir        = ".ledgerd" // Will be prefixed with user's home directory
	defaultBatchSize      = 10
	defaultBlockTimeMs    = 15000
	defaultMinTxsPerBlock = 3
	defaultIntervalMs     = 5000
	defaultMempoolList    = "tx:mempool"
	defaultDeadLetterList = "tx:dead_letter"
	defaultBalanceTTLSec  = 30
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the application configuration
type Config struct {
	API       APIConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Processor ProcessorConfig
	Queue     QueueConfig
	Cache     CacheConfig
	Log       LogConfig
	Datadir   string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AuthConfig holds authentication secrets
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwtsecret"`
	AdminToken string `mapstructure:"admintoken"`
}

// RedisConfig holds the Redis connection configuration. An empty Addr
// selects the embedded in-memory queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProcessorConfig holds the transfer pipeline tuning
type ProcessorConfig struct {
	Run            bool `mapstructure:"run"`
	BatchSize      int  `mapstructure:"batchsize"`
	BlockTimeMs    int  `mapstructure:"blocktimems"`
	MinTxsPerBlock int  `mapstructure:"mintxsperblock"`
	IntervalMs     int  `mapstructure:"intervalms"`
}

// QueueConfig holds the queue list names
type QueueConfig struct {
	Mempool    string `mapstructure:"mempool"`
	DeadLetter string `mapstructure:"deadletter"`
}

// CacheConfig holds the balance cache tuning
type CacheConfig struct {
	BalanceTTLSeconds int `mapstructure:"balancettlseconds"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// BlockTime returns the block time as a duration.
func (p ProcessorConfig) BlockTime() time.Duration {
	return time.Duration(p.BlockTimeMs) * time.Millisecond
}

// Interval returns the cycle interval as a duration.
func (p ProcessorConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	// Get user's home directory for default datadir
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.admintoken", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("processor.run", false)
	v.SetDefault("processor.batchsize", defaultBatchSize)
	v.SetDefault("processor.blocktimems", defaultBlockTimeMs)
	v.SetDefault("processor.mintxsperblock", defaultMinTxsPerBlock)
	v.SetDefault("processor.intervalms", defaultIntervalMs)
	v.SetDefault("queue.mempool", defaultMempoolList)
	v.SetDefault("queue.deadletter", defaultDeadLetterList)
	v.SetDefault("cache.balancettlseconds", defaultBalanceTTLSec)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.String("auth.jwtsecret", "", "HS256 secret for bearer tokens (empty trusts X-User-ID, dev only)")
	flag.String("auth.admintoken", "", "token guarding the deposit endpoint (empty disables deposits)")
	flag.StringP("redis.addr", "r", "", "redis address host:port (empty uses the embedded in-memory queue)")
	flag.String("redis.password", "", "redis password")
	flag.Int("redis.db", 0, "redis database index")
	flag.Bool("processor.run", false, "run the transfer processor in this instance")
	flag.Int("processor.batchsize", defaultBatchSize, "max transactions popped per processor cycle")
	flag.Int("processor.blocktimems", defaultBlockTimeMs, "max milliseconds before a non-empty batch is sealed")
	flag.Int("processor.mintxsperblock", defaultMinTxsPerBlock, "batch size that seals a block before the block time")
	flag.Int("processor.intervalms", defaultIntervalMs, "milliseconds between processor cycles")
	flag.String("queue.mempool", defaultMempoolList, "queue list name for pending transactions")
	flag.String("queue.deadletter", defaultDeadLetterList, "queue list name for failed transactions")
	flag.Int("cache.balancettlseconds", defaultBalanceTTLSec, "balance cache TTL in seconds (0 disables)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database files")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ledgerd v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: ledgerd [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, LEDGER_API_PORT or LEDGER_REDIS_ADDR\n")
		fmt.Fprintf(os.Stderr, "\nThe processor additionally honors the classic variable names:\n")
		fmt.Fprintf(os.Stderr, "  RUN_TX_PROCESSOR, TX_PROCESSOR_BATCH_SIZE, TX_PROCESSOR_BLOCK_TIME_MS,\n")
		fmt.Fprintf(os.Stderr, "  TX_PROCESSOR_MIN_TXS_PER_BLOCK, TX_PROCESSOR_INTERVAL_MS,\n")
		fmt.Fprintf(os.Stderr, "  TX_MEMPOOL_NAME, TX_DLQ_NAME, CACHE_BALANCE_TTL_SECONDS\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The processor tuning predates the LEDGER_ prefix convention; keep
	// honoring the classic names deployments already use.
	for key, envs := range map[string][]string{
		"processor.run":            {"LEDGER_PROCESSOR_RUN", "RUN_TX_PROCESSOR"},
		"processor.batchsize":      {"LEDGER_PROCESSOR_BATCHSIZE", "TX_PROCESSOR_BATCH_SIZE"},
		"processor.blocktimems":    {"LEDGER_PROCESSOR_BLOCKTIMEMS", "TX_PROCESSOR_BLOCK_TIME_MS"},
		"processor.mintxsperblock": {"LEDGER_PROCESSOR_MINTXSPERBLOCK", "TX_PROCESSOR_MIN_TXS_PER_BLOCK"},
		"processor.intervalms":     {"LEDGER_PROCESSOR_INTERVALMS", "TX_PROCESSOR_INTERVAL_MS"},
		"queue.mempool":            {"LEDGER_QUEUE_MEMPOOL", "TX_MEMPOOL_NAME"},
		"queue.deadletter":         {"LEDGER_QUEUE_DEADLETTER", "TX_DLQ_NAME"},
		"cache.balancettlseconds":  {"LEDGER_CACHE_BALANCETTLSECONDS", "CACHE_BALANCE_TTL_SECONDS"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding environment variable: %w", err)
		}
	}

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	// Unmarshal configuration into struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d", cfg.API.Port)
	}
	if cfg.Processor.BatchSize <= 0 {
		return fmt.Errorf("processor batch size must be positive")
	}
	if cfg.Processor.MinTxsPerBlock <= 0 {
		return fmt.Errorf("processor min txs per block must be positive")
	}
	if cfg.Processor.BlockTimeMs <= 0 || cfg.Processor.IntervalMs <= 0 {
		return fmt.Errorf("processor block time and interval must be positive")
	}
	if cfg.Processor.MinTxsPerBlock > cfg.Processor.BatchSize {
		return fmt.Errorf("min txs per block (%d) cannot exceed batch size (%d)",
			cfg.Processor.MinTxsPerBlock, cfg.Processor.BatchSize)
	}
	if cfg.Cache.BalanceTTLSeconds < 0 {
		return fmt.Errorf("balance cache TTL cannot be negative")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/amount"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

type Config struct {
	// Credentials
	Account   string
	ActiveKey string

	// Trade
	TargetAsset       string
	BaseCurrency      string
	Amount            decimal.Decimal
	Threshold         decimal.Decimal
	SlippageTolerance decimal.Decimal
	DryRun            bool

	// Confirmation polling
	ConfirmDelay     time.Duration
	RetryDelay       time.Duration
	MaxTxInfoRetries int

	// Nodes
	EngineAPIs []string
	HiveNodes  []string

	// HTTP client settings
	HTTPTimeout     time.Duration
	RPCMaxRetries   int
	RPCRetryBackoff time.Duration
	RPCRateLimit    float64

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	LogLevel   string
	ConfigFile string
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"hive.accountname":   "HIVE_ACCOUNT_NAME",
	"hive.activekey":     "HIVE_ACTIVE_KEY",
	"hive.nodes":         "HIVE_NODES",
	"engine.api":         "HIVE_ENGINE_API_URL",
	"trade.target":       "TARGET_ASSET",
	"trade.base":         "BASE_CURRENCY",
	"trade.amount":       "SWAP_AMOUNT",
	"trade.threshold":    "PRICE_THRESHOLD",
	"trade.slippage":     "SLIPPAGE_TOLERANCE",
	"trade.dryrun":       "DRY_RUN",
	"confirm.delay":      "HIVE_ENGINE_TX_CONFIRM_DELAY_SECONDS",
	"confirm.retries":    "MAX_TX_INFO_RETRIES",
	"confirm.retrydelay": "TX_INFO_RETRY_DELAY_SECONDS",
	"rpc.timeout":        "HTTP_TIMEOUT",
	"rpc.maxretries":     "RPC_MAX_RETRIES",
	"rpc.backoff":        "RPC_RETRY_BACKOFF",
	"rpc.ratelimit":      "RPC_RATE_LIMIT",
	"redis.addr":         "REDIS_ADDR",
	"clickhouse.addr":    "CLICKHOUSE_ADDR",
	"clickhouse.db":      "CLICKHOUSE_DATABASE",
	"clickhouse.user":    "CLICKHOUSE_USERNAME",
	"clickhouse.pass":    "CLICKHOUSE_PASSWORD",
	"api.addr":           "API_ADDR",
	"api.key":            "API_KEY",
	"api.dev":            "DEV_MODE",
	"log.level":          "LOG_LEVEL",
}

// flagBindings maps config keys to CLI flag names.
var flagBindings = map[string]string{
	"hive.accountname": "account",
	"trade.target":     "target-asset",
	"trade.base":       "base-currency",
	"trade.amount":     "amount",
	"trade.threshold":  "threshold",
	"trade.dryrun":     "dry-run",
	"log.level":        "log-level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hive.nodes", constants.DefaultHiveNode)
	v.SetDefault("engine.api", constants.DefaultEngineAPI)

	v.SetDefault("trade.target", "PIZZA")
	v.SetDefault("trade.base", "SWAP.HIVE")
	v.SetDefault("trade.amount", "50")
	v.SetDefault("trade.threshold", "0.047")
	v.SetDefault("trade.slippage", "0.01")
	v.SetDefault("trade.dryrun", false)

	v.SetDefault("confirm.delay", 10)
	v.SetDefault("confirm.retries", 3)
	v.SetDefault("confirm.retrydelay", 10)

	v.SetDefault("rpc.timeout", "30s")
	v.SetDefault("rpc.maxretries", 3)
	v.SetDefault("rpc.backoff", "1s")
	v.SetDefault("rpc.ratelimit", 5.0)

	v.SetDefault("clickhouse.db", "hive_engine")
	v.SetDefault("clickhouse.user", "default")

	v.SetDefault("api.addr", ":8090")
	v.SetDefault("log.level", "info")
}

// Flags registers the CLI flags Load understands on fs.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("target-asset", "t", "PIZZA", "token sold into the pool")
	fs.StringP("base-currency", "b", "SWAP.HIVE", "token received and deposited")
	fs.StringP("amount", "a", "50", "amount of the target asset to swap")
	fs.StringP("threshold", "p", "0.047", "minimum pool price that triggers a swap")
	fs.String("account", "", "Hive account name, overrides the credentials file")
	fs.BoolP("dry-run", "d", false, "log payloads instead of broadcasting")
	fs.String("config", constants.DefaultConfigFile, "JSON credentials file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// LoadEnv reads .env into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load merges defaults, the credentials file, the environment and fs (lowest
// to highest). fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: bind %s: %v", models.ErrConfiguration, env, err)
		}
	}

	configFile := constants.DefaultConfigFile
	explicit := false
	if fs != nil {
		for key, name := range flagBindings {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("%w: bind flag %s: %v", models.ErrConfiguration, name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
			explicit = f.Changed
		}
	}

	if err := readConfigFile(v, configFile, explicit); err != nil {
		return nil, err
	}

	cfg := &Config{
		Account:   strings.TrimSpace(v.GetString("hive.accountname")),
		ActiveKey: strings.TrimSpace(v.GetString("hive.activekey")),

		TargetAsset:  strings.TrimSpace(v.GetString("trade.target")),
		BaseCurrency: strings.TrimSpace(v.GetString("trade.base")),
		DryRun:       v.GetBool("trade.dryrun"),

		ConfirmDelay:     time.Duration(v.GetInt("confirm.delay")) * time.Second,
		RetryDelay:       time.Duration(v.GetInt("confirm.retrydelay")) * time.Second,
		MaxTxInfoRetries: v.GetInt("confirm.retries"),

		EngineAPIs: splitList(v.GetString("engine.api")),
		HiveNodes:  splitList(v.GetString("hive.nodes")),

		HTTPTimeout:     v.GetDuration("rpc.timeout"),
		RPCMaxRetries:   v.GetInt("rpc.maxretries"),
		RPCRetryBackoff: v.GetDuration("rpc.backoff"),
		RPCRateLimit:    v.GetFloat64("rpc.ratelimit"),

		RedisAddr: v.GetString("redis.addr"),

		ClickHouseAddr:     v.GetString("clickhouse.addr"),
		ClickHouseDatabase: v.GetString("clickhouse.db"),
		ClickHouseUsername: v.GetString("clickhouse.user"),
		ClickHousePassword: v.GetString("clickhouse.pass"),

		APIAddr: v.GetString("api.addr"),
		APIKey:  v.GetString("api.key"),
		DevMode: v.GetBool("api.dev"),

		LogLevel:   v.GetString("log.level"),
		ConfigFile: configFile,
	}

	var err error
	if cfg.Amount, err = decimalKey(v, "trade.amount"); err != nil {
		return nil, err
	}
	if cfg.Threshold, err = decimalKey(v, "trade.threshold"); err != nil {
		return nil, err
	}
	if cfg.SlippageTolerance, err = decimalKey(v, "trade.slippage"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile merges the JSON credentials file. A missing default file is
// tolerated so credentials can come from the environment alone.
func readConfigFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("%w: config file %s: %v", models.ErrConfiguration, path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("%w: read %s: %v", models.ErrConfiguration, path, err)
	}
	return nil
}

func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := amount.Parse(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", models.ErrConfiguration, key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks everything a run needs before any network call is made.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Account == "" {
		add("account name is required")
	}
	if c.ActiveKey == "" && !c.DryRun {
		add("active key is required unless running dry")
	}
	if c.TargetAsset == "" || c.BaseCurrency == "" {
		add("target asset and base currency are required")
	}
	if !c.Amount.IsPositive() {
		add("amount must be positive, got %s", c.Amount)
	}
	if !c.Threshold.IsPositive() {
		add("threshold must be positive, got %s", c.Threshold)
	}
	if c.SlippageTolerance.IsNegative() || c.SlippageTolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		add("slippage tolerance must be in [0, 1), got %s", c.SlippageTolerance)
	}
	if c.ConfirmDelay < 0 || c.RetryDelay < 0 {
		add("confirmation delays must not be negative")
	}
	if c.MaxTxInfoRetries < 1 {
		add("MAX_TX_INFO_RETRIES must be at least 1, got %d", c.MaxTxInfoRetries)
	}
	if len(c.EngineAPIs) == 0 {
		add("at least one Hive Engine API url is required")
	}
	if len(c.HiveNodes) == 0 && !c.DryRun {
		add("at least one Hive node is required")
	}
	if c.HTTPTimeout <= 0 {
		add("HTTP_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", models.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ValidateAPI checks the settings the status API needs.
func (c *Config) ValidateAPI() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: REDIS_ADDR is required for the API server", models.ErrConfiguration)
	}
	if c.APIAddr == "" {
		return fmt.Errorf("%w: API_ADDR is required", models.ErrConfiguration)
	}
	return nil
}

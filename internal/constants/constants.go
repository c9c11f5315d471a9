package constants

import "time"

// Hive Engine contracts, tables and events
const (
	ContractMarketPools = "marketpools"
	ContractTokens      = "tokens"

	TablePools    = "pools"
	TableBalances = "balances"
	TableTokens   = "tokens"

	ActionSwapTokens   = "swapTokens"
	ActionAddLiquidity = "addLiquidity"

	EventTransferFromContract = "transferFromContract"
	EventSwapTokens           = "swapTokens"
	EventAddLiquidity         = "addLiquidity"

	TradeTypeExactInput = "exactInput"
)

// Hive L1
const (
	SidechainID       = "ssc-mainnet-hive"
	HiveChainID       = "beeab0de00000000000000000000000000000000000000000000000000000000"
	TxExpiration      = 60 * time.Second
	DefaultEngineAPI  = "https://enginerpc.com/"
	DefaultHiveNode   = "https://api.hive.blog"
	CustomJSONOpID    = 18
	CustomJSONOpName  = "custom_json"
	MaxSignAttempts   = 50
	DefaultConfigFile = "config.json"
)

// Redis keys
const (
	RedisKeyRecentRuns = "lpbot:runs:recent"
	RedisFlagIndex     = "lpbot:flags:index"
	RedisFlagPrefix    = "lpbot:flags:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelRuns        = "lpbot:runs"
	PubSubChannelSettlements = "lpbot:settlements"
)

// Flags
const (
	FlagTradingHalted = "lpbot.trading.halted"
)

// Limits
const (
	MaxRecentRuns = 200
)

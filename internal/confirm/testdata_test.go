package confirm

// Outcome logs as the sidechain indexer reports them.
const (
	swapLog = `{"events":[` +
		`{"contract":"tokens","event":"transferToContract","data":{"from":"alice","to":"marketpools","symbol":"PIZZA","quantity":"100"}},` +
		`{"contract":"tokens","event":"transferFromContract","data":{"from":"marketpools","to":"bob","symbol":"SWAP.HIVE","quantity":"1.5"}},` +
		`{"contract":"tokens","event":"transferFromContract","data":{"from":"marketpools","to":"alice","symbol":"SWAP.HIVE","quantity":"4.70000000"}},` +
		`{"contract":"marketpools","event":"swapTokens","data":{"fee":{"amount":"0.0118","symbol":"SWAP.HIVE"}}}` +
		`]}`

	depositLog = `{"events":[` +
		`{"contract":"tokens","event":"transferToContract","data":{"from":"alice","to":"marketpools","symbol":"SWAP.HIVE","quantity":"4.7"}},` +
		`{"contract":"marketpools","event":"addLiquidity","data":{"tokenPair":"SWAP.HIVE:PIZZA","sharesAdded":"12.3"}}` +
		`]}`

	rejectedLog = `{"errors":["minAmountOut not met"],"events":[]}`
)

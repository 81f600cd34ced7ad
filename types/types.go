package types

import (
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// StackingConfig : config variables for the stacking api
type StackingConfig struct {
	HomePath         string
	APIPort          string
	Network          string
	StacksAPIURL     string
	LogLevel         string
	NumberOfCycles   int64
	MaxCycles        int64
	HTTPTimeout      time.Duration
	APIRate          int
	APIBurst         int
	StackRate        int
	StackBurst       int
	DBType           string
	RedisURI         string
	BlockTimeRefresh string
	IPBlockList      []string
	Logger           *log.Logger
}

// CycleProjection : reward cycle timing for the next stacking window. Built per request, never persisted.
type CycleProjection struct {
	StackingExecution      bool      `json:"stackingExecution"`
	CycleDuration          int64     `json:"cycleDuration"`
	SecondsToNextCycle     int64     `json:"secondsToNextCycle"`
	NextCycleStartingAt    time.Time `json:"nextCycleStartingAt"`
	NumberOfCycles         int64     `json:"numberOfCycles"`
	UnlockingAt            time.Time `json:"unlockingAt"`
	MinimumUSTX            int64     `json:"minimumUSTX"`
	ElapsedBlocksIntoCycle int64     `json:"-"`
}

// PoxInfo : response of /v2/pox
type PoxInfo struct {
	ContractID                 string `json:"contract_id"`
	FirstBurnchainBlockHeight  *int64 `json:"first_burnchain_block_height"`
	MinAmountUSTX              *int64 `json:"min_amount_ustx"`
	PrepareCycleLength         int64  `json:"prepare_cycle_length"`
	RejectionFraction          int64  `json:"rejection_fraction"`
	RewardCycleID              *int64 `json:"reward_cycle_id"`
	RewardCycleLength          *int64 `json:"reward_cycle_length"`
	RejectionVotesLeftRequired *int64 `json:"rejection_votes_left_required"`
	TotalLiquidSupplyUSTX      int64  `json:"total_liquid_supply_ustx"`
}

// CoreInfo : response of /v2/info
type CoreInfo struct {
	PeerVersion     int64  `json:"peer_version"`
	BurnConsensus   string `json:"burn_consensus"`
	BurnBlockHeight *int64 `json:"burn_block_height"`
	StacksTipHeight int64  `json:"stacks_tip_height"`
	StacksTip       string `json:"stacks_tip"`
	NetworkID       int64  `json:"network_id"`
	ServerVersion   string `json:"server_version"`
}

// TargetBlockTime : per-network block time in seconds
type TargetBlockTime struct {
	TargetBlockTime *int64 `json:"target_block_time"`
}

// NetworkBlockTimes : response of /extended/v1/info/network_block_times
type NetworkBlockTimes struct {
	Mainnet *TargetBlockTime `json:"mainnet"`
	Testnet *TargetBlockTime `json:"testnet"`
}

// AccountBalance : response of /extended/v1/address/{principal}/balances, only the stx part is used
type AccountBalance struct {
	STX struct {
		Balance       string `json:"balance"`
		TotalSent     string `json:"total_sent"`
		TotalReceived string `json:"total_received"`
		LockTxID      string `json:"lock_tx_id"`
		Locked        string `json:"locked"`
		LockHeight    int64  `json:"lock_height"`
		BurnchainLock int64  `json:"burnchain_lock_height"`
	} `json:"stx"`
}

// ReadOnlyRequest : body of /v2/contracts/call-read
type ReadOnlyRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// ReadOnlyResult : response of /v2/contracts/call-read
type ReadOnlyResult struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// TxStatus : subset of /extended/v1/tx/{txid}
type TxStatus struct {
	TxID        string `json:"tx_id"`
	TxStatus    string `json:"tx_status"`
	TxType      string `json:"tx_type"`
	BlockHeight int64  `json:"block_height"`
	SenderAddr  string `json:"sender_address"`
}

// ContractCall : an unsigned contract call for the caller's wallet to sign
type ContractCall struct {
	ContractAddress string   `json:"contractAddress"`
	ContractName    string   `json:"contractName"`
	FunctionName    string   `json:"functionName"`
	FunctionArgs    []string `json:"functionArgs"`
}

// PoxAddress : reward address tuple passed to the pox contract
type PoxAddress struct {
	Version   string `json:"version"`
	HashBytes string `json:"hashbytes"`
}

// StackPreparation : GET /stack response
type StackPreparation struct {
	StxAddress     string       `json:"stxAddress"`
	AmountUSTX     int64        `json:"amountUSTX"`
	NumberOfCycles int64        `json:"numberOfCycles"`
	PoxAddress     PoxAddress   `json:"poxAddress"`
	ContractCall   ContractCall `json:"contractCall"`
}

// Submission : a stacking transaction broadcast through this api
type Submission struct {
	ID         string    `json:"id"`
	TxID       string    `json:"txId"`
	StxAddress string    `json:"stxAddress,omitempty"`
	Submitted  time.Time `json:"submitted"`
}

// UserInfo : GET /user response
type UserInfo struct {
	StxAddress        string `json:"stxAddress"`
	BtcAddress        string `json:"btcAddress"`
	AccountSTXBalance string `json:"accountSTXBalance"`
	CanParticipate    bool   `json:"canParticipate"`
}

// APIStatus : GET /status response
type APIStatus struct {
	Version         string `json:"version"`
	Time            string `json:"time"`
	Network         string `json:"network"`
	StacksAPIURL    string `json:"stacks_api_url"`
	BurnBlockHeight int64  `json:"burn_block_height"`
	StacksTipHeight int64  `json:"stacks_tip_height"`
	ServerVersion   string `json:"server_version"`
}

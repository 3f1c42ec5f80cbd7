// Package config holds the chain's immutable configuration, handed in
// once at construction time (spec §9: "Global state... live in an
// immutable BlockchainConfig handed in at construction; no ambient
// globals").
package config

import (
	"github.com/empower1/mpnchain/internal/types"
)

// BlockchainConfig is the full set of chain-wide parameters the engine
// needs and never mutates.
type BlockchainConfig struct {
	// Genesis is re-verified against the stored genesis on every
	// re-open (chainerr.ErrDifferentGenesis on mismatch).
	Genesis types.Block

	TotalSupply types.Money

	// Block-time and reward schedule.
	BlockTime           uint64 // target seconds between blocks
	InitialReward       types.Money
	RewardHalvingPeriod uint64 // blocks between reward halvings, 0 disables halving

	// Proof-of-work / difficulty.
	DifficultyCalcInterval uint64 // blocks between retargets
	MinimumPowDifficulty   uint32 // compact-encoded floor target
	MedianTimestampCount   int

	// PoW key schedule (§4.8).
	PowKeyChangeDelay    uint64
	PowKeyChangeInterval uint64
	PowBaseKey           []byte

	// Block/mempool budgets (§4.6, §4.10, §4.11).
	MaxBlockSize int
	MaxDeltaCount int

	// MPN parameters.
	MpnContractId          types.ContractId
	MpnNumFunctionCalls    int
	MpnNumContractPayments int

	// ZK state manager tuning.
	MaxDeltaHistory uint64
}

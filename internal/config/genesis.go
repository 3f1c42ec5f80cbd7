package config

import "github.com/empower1/mpnchain/internal/types"

// Default returns a ready-to-run BlockchainConfig for local development
// and tests: a single-transaction-free genesis block (Treasury's
// balance defaults to TotalSupply per spec §3, so genesis needs no
// seeding transaction) plus a conservative block/reward/difficulty
// schedule. Production deployments are expected to build their own
// BlockchainConfig (grounded on a real genesis allocation) rather than
// call this; Default exists for cmd/mpnchaind and package tests.
func Default(mpnContractId types.ContractId) BlockchainConfig {
	genesisHeader := types.Header{
		ProofOfWork: types.ProofOfWork{
			Timestamp: 1700000000,
			Target:    0x207fffff, // regtest-grade floor difficulty
		},
	}
	genesis := types.Block{Header: genesisHeader}

	return BlockchainConfig{
		Genesis:     genesis,
		TotalSupply: 200_000_000_00000000,

		BlockTime:           600,
		InitialReward:       50_00000000,
		RewardHalvingPeriod: 210_000,

		DifficultyCalcInterval: 2016,
		MinimumPowDifficulty:   0x207fffff,
		MedianTimestampCount:   11,

		PowKeyChangeDelay:    64,
		PowKeyChangeInterval: 2048,
		PowBaseKey:           []byte("mpnchain-genesis-pow-key"),

		MaxBlockSize:  4000,
		MaxDeltaCount: 32,

		// 0 disables the floor, same convention as RewardHalvingPeriod and
		// the block/mempool budgets above: most dev/test chains never
		// touch the MPN contract at all, so Default leaves apply_block's
		// per-block MPN-update minimum off. A production config wanting
		// to force MPN throughput sets these above 0.
		MpnContractId:          mpnContractId,
		MpnNumFunctionCalls:    0,
		MpnNumContractPayments: 0,

		MaxDeltaHistory: 1024,
	}
}

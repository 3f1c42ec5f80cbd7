// Package chainerr collects the sentinel errors surfaced by the chain
// engine and its collaborators, so call sites and tests can match on
// them with errors.Is instead of string comparison.
package chainerr

import "errors"

// Structural.
var (
	ErrInconsistency    = errors.New("inconsistency: on-disk state is corrupted")
	ErrDifferentGenesis = errors.New("configured genesis block does not match stored genesis")
)

// Chain growth.
var (
	ErrExtendFromGenesis = errors.New("cannot extend from genesis")
	ErrExtendFromFuture  = errors.New("cannot extend from a height beyond the current tip")
	ErrNoBlocksToRollback = errors.New("no blocks available to roll back")
	ErrBlockNotFound     = errors.New("block not found")
	ErrInvalidBlockNumber = errors.New("invalid block number")
	ErrInvalidParentHash = errors.New("invalid parent hash")
)

// Proof of work.
var (
	ErrDifficultyTargetWrong = errors.New("difficulty target does not match recalculation")
	ErrDifficultyTargetUnmet = errors.New("header does not meet its proof-of-work target")
	ErrInvalidTimestamp      = errors.New("header timestamp precedes the median of recent headers")
)

// Block.
var (
	ErrInvalidMerkleRoot     = errors.New("block merkle root does not match header")
	ErrMinerRewardNotFound   = errors.New("non-genesis block is missing its reward transaction")
	ErrInvalidMinerReward    = errors.New("reward transaction does not match the expected reward")
	ErrBlockTooBig           = errors.New("block body exceeds the configured size budget")
	ErrStateDeltaTooBig      = errors.New("block state delta exceeds the configured size budget")
	ErrInsufficientMpnUpdates = errors.New("block does not contain enough MPN updates")
	ErrSignatureError        = errors.New("a transaction signature failed to verify")
)

// Transaction.
var (
	ErrIllegalTreasuryAccess   = errors.New("transaction may not spend from the treasury")
	ErrInvalidTransactionNonce = errors.New("transaction nonce does not follow the sender's account nonce")
	ErrBalanceInsufficient     = errors.New("sender balance is insufficient")
	ErrSelfPaymentNotAllowed   = errors.New("a regular send may not target its own sender")
	ErrInvalidStateModel       = errors.New("contract state model is structurally invalid")
	ErrContractFunctionNotFound = errors.New("contract does not expose the requested circuit")
	ErrContractNotFound        = errors.New("contract account not found")
	ErrCannotExecuteOwnPayments = errors.New("a payment's outer address may not equal the executing transaction's sender")
	ErrContractBalanceInsufficient = errors.New("contract balance is insufficient")
	ErrIncorrectZkProof        = errors.New("zk proof did not verify against the supplied circuit")
)

// Contract payment.
var (
	ErrInvalidContractPaymentSignature = errors.New("contract payment signature failed to verify")
)

// Zero transaction. The spec intentionally does not split this further.
var (
	ErrInvalidZeroTransaction = errors.New("zero transaction is invalid (nonce, signature, or balance)")
)

// State sync.
var (
	ErrCompressedStateNotFound = errors.New("compressed state not found at the requested height")
	ErrStatesOutdated          = errors.New("one or more contracts have an outdated local zk state")
	ErrStatesUnavailable       = errors.New("requested states are not available from this node")
	ErrFullStateNotFound       = errors.New("full contract state was not found")
	ErrFullStateNotValid       = errors.New("applied full state does not match the on-chain compressed state")
	ErrDeltasInvalid           = errors.New("delta history is insufficient to validate the applied full state")
)

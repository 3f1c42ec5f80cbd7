package chain

import (
	"sync"

	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/difficulty"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/merkle"
	"github.com/empower1/mpnchain/internal/signing"
	"github.com/empower1/mpnchain/internal/types"
)

// WillExtend reports whether a candidate chain whose cumulative power is
// candidatePower would become the new tip if applied, per §4.8's fork-choice
// rule: strictly greater cumulative power wins, ties keep the current
// tip.
func (e *Engine) WillExtend(candidatePower uint64) (bool, error) {
	height, err := e.GetHeight()
	if err != nil {
		return false, err
	}
	if height == 0 {
		return true, nil
	}
	tipPower, err := e.Power(height - 1)
	if err != nil {
		return false, err
	}
	return candidatePower > tipPower, nil
}

// validateHeader checks a candidate header against the current tip per
// §4.8; the genesis block (height 0) is accepted unchecked. checkPow is
// false only for DraftBlock's trial apply (§4.11), which runs before a
// miner has searched for a winning nonce.
func (e *Engine) validateHeader(height uint64, header types.Header, checkPow bool) error {
	if height == 0 {
		return nil
	}
	tip, err := e.GetHeader(height - 1)
	if err != nil {
		return err
	}
	if header.Number != height {
		return chainerr.ErrInvalidBlockNumber
	}
	if header.ParentHash != tip.Hash() {
		return chainerr.ErrInvalidParentHash
	}

	median, err := difficulty.MedianTimestamp(height-1, e.cfg.MedianTimestampCount, e.GetHeader)
	if err != nil {
		return err
	}
	if header.ProofOfWork.Timestamp < median {
		return chainerr.ErrInvalidTimestamp
	}

	wantTarget := tip.ProofOfWork.Target
	if height%e.cfg.DifficultyCalcInterval == 0 {
		retargetHeight := height - e.cfg.DifficultyCalcInterval
		lastRetarget, err := e.GetHeader(retargetHeight)
		if err != nil {
			return err
		}
		wantTarget = difficulty.CalcPowDifficulty(e.cfg.DifficultyCalcInterval, e.cfg.BlockTime, e.cfg.MinimumPowDifficulty, tip.ProofOfWork, lastRetarget.ProofOfWork)
	}
	if header.ProofOfWork.Target != wantTarget {
		return chainerr.ErrDifficultyTargetWrong
	}

	if checkPow {
		powKey, err := e.PowKey(height)
		if err != nil {
			return err
		}
		if !header.MeetsTarget(powKey) {
			return chainerr.ErrDifficultyTargetUnmet
		}
	}
	return nil
}

// verifySignaturesParallel checks every tx's signature concurrently,
// the one intentional parallelism point inside the engine (§5): an
// embarrassingly-parallel pass over an immutable slice with no shared
// mutable state. applyTx still re-checks each signature on its own
// apply path (SelectTransactions, ValidateTransaction, ...); this pass
// exists so a full block's worth of signatures don't get checked one
// at a time on the hot apply_block path.
func verifySignaturesParallel(txs []types.Transaction) error {
	ok := make([]bool, len(txs))
	var wg sync.WaitGroup
	for i, tx := range txs {
		wg.Add(1)
		go func(i int, tx types.Transaction) {
			defer wg.Done()
			ok[i] = signing.VerifyTransaction(tx)
		}(i, tx)
	}
	wg.Wait()
	for _, v := range ok {
		if !v {
			return chainerr.ErrSignatureError
		}
	}
	return nil
}

// applyBlock validates and applies block at the current tip height+1
// (or height 0 for genesis), inside one mirror so the whole block
// commits or nothing does (§4.6). allowTreasury is true only while
// bootstrapping genesis (New); Extend passes false. A non-genesis
// block's reward transaction is always applied with Treasury access.
// checkPow is false only for DraftBlock's trial apply (§4.11).
func (e *Engine) applyBlock(block types.Block, allowTreasury, checkPow bool) error {
	height, err := e.GetHeight()
	if err != nil {
		return err
	}
	m := e.store.Mirror()
	touchedContracts, err := e.applyBlockToMirror(m, height, block, allowTreasury, checkPow)
	if err != nil {
		return err
	}

	if err := m.Update([]kvstore.Op{
		kvstore.Put(kvstore.HeaderKey(height), encodeHeader(block.Header)),
		kvstore.Put(kvstore.BlockKey(height), encodeBlock(block)),
	}); err != nil {
		return err
	}

	// Truncated to 64 bits: cumulative power at any sane difficulty this
	// engine will ever see in tests/dev fits comfortably, and a uint64
	// cumulative-power column keeps PowerKey's encoding fixed-width.
	power := block.Header.Power().Uint64()
	if height > 0 {
		prevPower, err := e.Power(height - 1)
		if err != nil {
			return err
		}
		power += prevPower
	}
	if err := m.Update([]kvstore.Op{kvstore.Put(kvstore.PowerKey(height), encodeU64(power))}); err != nil {
		return err
	}
	if err := e.setHeight(m, height+1); err != nil {
		return err
	}
	if err := e.recordContractUpdates(m, height, touchedContracts); err != nil {
		return err
	}

	return e.store.Update(m.ToOps())
}

// applyBlockToMirror runs apply_block's body (§4.6 steps 1-6) against m
// without committing anything to the backing store: applyBlock commits
// m.ToOps() itself afterward, and DraftBlock's trial apply (§4.11)
// discards m entirely. It returns the StateChange set every touched
// contract saw, for recordContractUpdates / generate_state_patch.
func (e *Engine) applyBlockToMirror(m kvstore.KVStore, height uint64, block types.Block, allowTreasury, checkPow bool) (map[types.ContractId]types.StateChange, error) {
	if err := e.validateHeader(height, block.Header, checkPow); err != nil {
		return nil, err
	}

	bodyLeaves := make([]types.Transaction, len(block.Body))
	copy(bodyLeaves, block.Body)
	if merkle.New(bodyLeaves).Root() != block.Header.BlockRoot {
		return nil, chainerr.ErrInvalidMerkleRoot
	}
	if e.cfg.MaxBlockSize > 0 && len(block.Body) > e.cfg.MaxBlockSize {
		return nil, chainerr.ErrBlockTooBig
	}

	var feeSum uint64
	touchedContracts := make(map[types.ContractId]types.StateChange)
	start := 0
	if height > 0 {
		if len(block.Body) == 0 {
			return nil, chainerr.ErrMinerRewardNotFound
		}
		reward := block.Body[0]
		if reward.Data.Kind != types.TxRegularSend || !reward.Src.IsTreasury() {
			return nil, chainerr.ErrMinerRewardNotFound
		}
		baseReward, err := e.NextReward()
		if err != nil {
			return nil, err
		}
		for _, tx := range block.Body[1:] {
			feeSum += uint64(tx.Fee)
		}
		if uint64(reward.Data.RegularSend.Amount) != uint64(baseReward)+feeSum || reward.Fee != 0 {
			return nil, chainerr.ErrInvalidMinerReward
		}
		effect, err := e.applyTx(m, reward, true)
		if err != nil {
			return nil, err
		}
		recordEffect(touchedContracts, effect)
		start = 1
	}

	if err := verifySignaturesParallel(block.Body[start:]); err != nil {
		return nil, err
	}

	var numMpnFunctionCalls, numMpnContractPayments int
	for _, tx := range block.Body[start:] {
		effect, err := e.applyTx(m, tx, allowTreasury)
		if err != nil {
			return nil, err
		}
		recordEffect(touchedContracts, effect)

		if tx.Data.Kind == types.TxUpdateContract && tx.Data.UpdateContract.ContractId == e.cfg.MpnContractId {
			for _, upd := range tx.Data.UpdateContract.Updates {
				switch upd.Kind {
				case types.UpdateFunctionCall:
					numMpnFunctionCalls++
				case types.UpdatePayment:
					numMpnContractPayments++
				}
			}
		}
	}
	if height > 0 && (numMpnFunctionCalls < e.cfg.MpnNumFunctionCalls || numMpnContractPayments < e.cfg.MpnNumContractPayments) {
		return nil, chainerr.ErrInsufficientMpnUpdates
	}

	if e.cfg.MaxDeltaCount > 0 && len(touchedContracts) > e.cfg.MaxDeltaCount {
		return nil, chainerr.ErrStateDeltaTooBig
	}

	return touchedContracts, nil
}

func recordEffect(touched map[types.ContractId]types.StateChange, effect TxSideEffect) {
	if !effect.Touched {
		return
	}
	existing, ok := touched[effect.ContractId]
	if !ok {
		touched[effect.ContractId] = effect.Change
		return
	}
	existing.State = effect.Change.State
	touched[effect.ContractId] = existing
}

// Extend validates and applies block as the immediate successor of the
// current tip (§4.9). Genesis is installed only via New; any later
// attempt to extend at height 0 or beyond the current tip+1 is
// rejected outright rather than silently reinterpreted as a reorg,
// since this engine keeps a single linear chain plus Rollback, not a
// multi-branch fork tree.
func (e *Engine) Extend(block types.Block) error {
	height, err := e.GetHeight()
	if err != nil {
		return err
	}
	if height == 0 {
		return chainerr.ErrExtendFromGenesis
	}
	if block.Header.Number != height {
		return chainerr.ErrExtendFromFuture
	}
	return e.applyBlock(block, false, true)
}

// Rollback undoes the most recently applied block (§4.7) by applying
// the op list the store's own Rollback returns for its last Update
// batch, which restores the accounts, contracts and zk-tree blobs that
// batch wrote. It does not consult zk delta history and does not mark
// any contract outdated.
func (e *Engine) Rollback() error {
	height, err := e.GetHeight()
	if err != nil {
		return err
	}
	if height == 0 {
		return chainerr.ErrExtendFromGenesis
	}
	if height == 1 {
		return chainerr.ErrNoBlocksToRollback
	}

	ops, err := e.store.Rollback()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return chainerr.ErrNoBlocksToRollback
	}
	return e.store.Update(ops)
}

package chain

import (
	"errors"
	"sort"
	"time"

	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/difficulty"
	"github.com/empower1/mpnchain/internal/mempool"
	"github.com/empower1/mpnchain/internal/statepatch"
	"github.com/empower1/mpnchain/internal/types"
)

// txPriority reports the (is_mpn_update, fee_per_byte, nonce) triple
// candidates are ranked by in SelectTransactions (§4.10).
func txPriority(tx types.Transaction, mpnContractId types.ContractId) (isMpnUpdate bool, feePerByte float64, nonce uint32) {
	isMpnUpdate = tx.Data.Kind == types.TxUpdateContract && tx.Data.UpdateContract.ContractId == mpnContractId
	if size := txWireSize(tx); size > 0 {
		feePerByte = float64(tx.Fee) / float64(size)
	}
	return isMpnUpdate, feePerByte, tx.Nonce
}

// sortByPriority orders candidates highest-priority first: MPN-contract
// updates before anything else, then by descending fee density, then
// by ascending nonce (§4.10). This is the reverse of the spec's
// ascending (is_mpn_update, fee_per_byte, -nonce) sort, expressed
// directly as a "most wanted first" comparator.
func sortByPriority(txs []types.Transaction, mpnContractId types.ContractId) {
	sort.SliceStable(txs, func(i, j int) bool {
		iMpn, iFee, iNonce := txPriority(txs[i], mpnContractId)
		jMpn, jFee, jNonce := txPriority(txs[j], mpnContractId)
		if iMpn != jMpn {
			return iMpn
		}
		if iFee != jFee {
			return iFee > jFee
		}
		return iNonce < jNonce
	})
}

// SelectTransactions dry-runs every pending entry from the three
// mempools against a disposable mirror, keeping only what would apply
// cleanly against the current tip, ranked by priority, and within
// budget for both block size (bytes) and zk-state delta count (§4.10).
// Rejected entries are returned separately so the caller can evict them
// (cleanup_mempool family, §4.13/O2) instead of leaving stale,
// never-valid transactions sitting in the pool forever.
func (e *Engine) SelectTransactions(txPool *mempool.TransactionPool, paymentPool *mempool.PaymentPool, zeroPool *mempool.ZeroTxPool, maxBlockSize int) (selected []types.Transaction, rejectedTx []types.Transaction, rejectedZero []types.ZeroTransaction, err error) {
	m := e.store.Mirror()

	candidates := txPool.All()
	sortByPriority(candidates, e.cfg.MpnContractId)

	touched := make(map[types.ContractId]bool)
	blockSz := 0
	for _, tx := range candidates {
		size := txWireSize(tx)
		if maxBlockSize > 0 && blockSz+size > maxBlockSize {
			rejectedTx = append(rejectedTx, tx)
			continue
		}
		probe := m.Mirror()
		effect, aerr := e.applyTx(probe, tx, false)
		if aerr != nil {
			rejectedTx = append(rejectedTx, tx)
			continue
		}
		deltaDiff := 0
		if effect.Touched && !touched[effect.ContractId] {
			deltaDiff = 1
		}
		if e.cfg.MaxDeltaCount > 0 && len(touched)+deltaDiff > e.cfg.MaxDeltaCount {
			rejectedTx = append(rejectedTx, tx)
			continue
		}
		if uerr := m.Update(probe.ToOps()); uerr != nil {
			return nil, nil, nil, uerr
		}
		if effect.Touched {
			touched[effect.ContractId] = true
		}
		blockSz += size
		selected = append(selected, tx)
	}

	for _, zt := range zeroPool.All() {
		probe := m.Mirror()
		if aerr := e.applyZeroTx(probe, zt); aerr != nil {
			rejectedZero = append(rejectedZero, zt)
			continue
		}
		if uerr := m.Update(probe.ToOps()); uerr != nil {
			return nil, nil, nil, uerr
		}
	}

	// ContractPayments are folded into UpdateContract transactions by
	// whoever assembles the aggregator batch, not drafted directly here;
	// paymentPool is drained by that higher-level assembly step. It is
	// accepted as a parameter so callers performing that assembly can
	// reuse this dry-run mirror, via PaymentPool.All().
	_ = paymentPool

	return selected, rejectedTx, rejectedZero, nil
}

// DraftBlock assembles a candidate block at the current tip, with a
// reward transaction paying miner the next block reward plus the
// selected transactions' fees (§4.11). The returned header's
// ProofOfWork.Nonce is zero and Timestamp is now(); the caller (the
// mining loop, out of scope per §1) searches the nonce/timestamp space
// until MeetsTarget holds.
//
// Before returning, DraftBlock runs the candidate through a trial
// apply_block(check_pow=false) + update_states inside a throwaway
// mirror. A trial failure of InsufficientMpnUpdates is not an error:
// it means this mempool doesn't yet carry enough MPN-contract updates
// to satisfy the block floor, so DraftBlock returns a nil block for
// the caller to try again once more arrive. Any other trial failure
// propagates, since it means the draft itself is unsound.
func (e *Engine) DraftBlock(miner types.Address, selected []types.Transaction, now time.Time) (*types.Block, statepatch.BlockchainPatch, error) {
	height, err := e.GetHeight()
	if err != nil {
		return nil, statepatch.BlockchainPatch{}, err
	}
	reward, err := e.NextReward()
	if err != nil {
		return nil, statepatch.BlockchainPatch{}, err
	}
	var feeSum uint64
	for _, tx := range selected {
		feeSum += uint64(tx.Fee)
	}

	body := make([]types.Transaction, 0, len(selected)+1)
	if height > 0 {
		treasury, err := e.getAccount(e.store, types.Treasury())
		if err != nil {
			return nil, statepatch.BlockchainPatch{}, err
		}
		rewardTx := types.Transaction{
			Src:   types.Treasury(),
			Nonce: treasury.Nonce + 1,
			Fee:   0,
			Sig:   types.Unsigned(),
			Data:  types.TransactionData{Kind: types.TxRegularSend, RegularSend: types.RegularSend{Dst: miner, Amount: reward + types.Money(feeSum)}},
		}
		body = append(body, rewardTx)
	}
	body = append(body, selected...)

	header := types.Header{Number: height}
	if height > 0 {
		tip, err := e.GetHeader(height - 1)
		if err != nil {
			return nil, statepatch.BlockchainPatch{}, err
		}
		header.ParentHash = tip.Hash()
		target := tip.ProofOfWork.Target
		if height%e.cfg.DifficultyCalcInterval == 0 {
			lastRetarget, err := e.GetHeader(height - e.cfg.DifficultyCalcInterval)
			if err != nil {
				return nil, statepatch.BlockchainPatch{}, err
			}
			target = difficulty.CalcPowDifficulty(e.cfg.DifficultyCalcInterval, e.cfg.BlockTime, e.cfg.MinimumPowDifficulty, tip.ProofOfWork, lastRetarget.ProofOfWork)
		}
		header.ProofOfWork.Target = target
	} else {
		header.ProofOfWork.Target = e.cfg.MinimumPowDifficulty
	}
	header.ProofOfWork.Timestamp = uint64(now.Unix())

	bodyLeaves := make([]types.Transaction, len(body))
	copy(bodyLeaves, body)
	header.BlockRoot = merkleRoot(bodyLeaves)

	candidate := types.Block{Header: header, Body: body}

	trial := e.store.Mirror()
	touched, err := e.applyBlockToMirror(trial, height, candidate, false, false)
	if err != nil {
		if errors.Is(err, chainerr.ErrInsufficientMpnUpdates) {
			return nil, statepatch.BlockchainPatch{}, nil
		}
		return nil, statepatch.BlockchainPatch{}, err
	}

	patch, err := e.GenerateStatePatch(touched)
	if err != nil {
		return nil, statepatch.BlockchainPatch{}, err
	}
	if err := e.updateStates(trial, patch); err != nil {
		return nil, statepatch.BlockchainPatch{}, err
	}

	return &candidate, patch, nil
}

// CleanupMempools drops every mempool entry that no longer applies
// cleanly against the current tip (§4.13, O2): called after a block is
// applied or rolled back, since both operations can invalidate
// previously-valid pending entries (stale nonces, spent balances).
func (e *Engine) CleanupMempools(txPool *mempool.TransactionPool, zeroPool *mempool.ZeroTxPool) {
	m := e.store.Mirror()
	keepTx := make(map[string]bool)
	for _, tx := range txPool.All() {
		probe := m.Mirror()
		if _, err := e.applyTx(probe, tx, false); err != nil {
			continue
		}
		_ = m.Update(probe.ToOps())
		h := tx.Hash()
		keepTx[hexKey(h[:])] = true
	}
	txPool.RemoveAllExcept(keepTx)

	keepZero := make(map[string]bool)
	for _, zt := range zeroPool.All() {
		probe := m.Mirror()
		if err := e.applyZeroTx(probe, zt); err != nil {
			continue
		}
		_ = m.Update(probe.ToOps())
		keepZero[zeroTxKey(zt)] = true
	}
	zeroPool.RemoveAllExcept(keepZero)
}

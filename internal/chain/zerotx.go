package chain

import (
	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/signing"
	"github.com/empower1/mpnchain/internal/types"
	"github.com/empower1/mpnchain/internal/zkstate"
)

// applyZeroTx applies one MPN-internal transfer against the configured
// MPN contract's own zk tree (§4.5). Unlike a generic UpdateContract
// transaction, a ZeroTransaction's effect on leaf data is fully known
// to this node, so the engine maintains its local copy of the MPN
// account tree directly rather than trusting an opaque proof — this is
// what lets get_mpn_account/get_mpn_accounts (§6) answer queries
// without waiting for the aggregator's batched on-chain update.
//
// The transaction's Fee accrues to the MPN contract's pooled balance,
// to be claimed later by whichever node batches a proof for the
// aggregator via a FunctionCallUpdate (the same fee-to-includer
// pattern §4.3 uses for generic contract updates).
func (e *Engine) applyZeroTx(store kvstore.KVStore, tx types.ZeroTransaction) error {
	mgr := e.zkManager(store)
	cid := e.cfg.MpnContractId

	src, err := mgr.GetMpnAccount(cid, tx.SrcIndex)
	if err != nil {
		return err
	}
	if src.IsZero() {
		return chainerr.ErrInvalidZeroTransaction
	}
	if src.Nonce != tx.Nonce {
		return chainerr.ErrInvalidZeroTransaction
	}
	if !signing.VerifyZeroTransaction(tx, src.Address) {
		return chainerr.ErrInvalidZeroTransaction
	}
	total := uint64(tx.Amount) + uint64(tx.Fee)
	if uint64(src.Balance) < total {
		return chainerr.ErrInvalidZeroTransaction
	}

	dst, err := mgr.GetMpnAccount(cid, tx.DstIndex)
	if err != nil {
		return err
	}
	if dst.IsZero() {
		dst.Address = tx.DstPubKey
	} else if dst.Address.PubKey != nil && tx.DstPubKey.PubKey != nil && string(dst.Address.PubKey) != string(tx.DstPubKey.PubKey) {
		return chainerr.ErrInvalidZeroTransaction
	}

	src.Balance -= types.Money(total)
	src.Nonce++
	dst.Balance += tx.Amount

	delta := map[uint64][]byte{
		tx.SrcIndex: zkstate.EncodeMpnAccount(src),
		tx.DstIndex: zkstate.EncodeMpnAccount(dst),
	}
	if err := mgr.UpdateContract(cid, delta); err != nil {
		return err
	}

	account, err := e.getContractAccount(store, cid)
	if err != nil {
		return err
	}
	account.Balance += tx.Fee
	root, err := mgr.Root(cid)
	if err != nil {
		return err
	}
	account.CompressedState = types.ZkCompressedState{StateHash: root, Size: account.CompressedState.Size}
	return e.putContractAccount(store, cid, account)
}

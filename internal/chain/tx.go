package chain

import (
	"fmt"

	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/signing"
	"github.com/empower1/mpnchain/internal/types"
	"github.com/empower1/mpnchain/internal/zkverify"
)

// TxSideEffect is what apply_tx reports back about a single
// transaction's effect on zk contract state, for the caller to fold
// into a generate_state_patch call (§4.11/§4.12). RegularSend
// transactions leave this at its zero value.
type TxSideEffect struct {
	Touched    bool
	ContractId types.ContractId
	Change     types.StateChange
}

// applyTx applies one transaction against store (normally a mirror),
// per §4.3. allowTreasury permits a Treasury-sourced, Unsigned
// transaction through — true for a block's reward transaction and for
// every transaction of the genesis block.
func (e *Engine) applyTx(store kvstore.KVStore, tx types.Transaction, allowTreasury bool) (TxSideEffect, error) {
	if tx.Src.IsTreasury() && !allowTreasury {
		return TxSideEffect{}, chainerr.ErrIllegalTreasuryAccess
	}
	if !signing.VerifyTransaction(tx) {
		return TxSideEffect{}, chainerr.ErrSignatureError
	}

	srcAccount, err := e.getAccount(store, tx.Src)
	if err != nil {
		return TxSideEffect{}, err
	}
	if tx.Nonce != srcAccount.Nonce+1 {
		return TxSideEffect{}, chainerr.ErrInvalidTransactionNonce
	}

	switch tx.Data.Kind {
	case types.TxRegularSend:
		return TxSideEffect{}, e.applyRegularSend(store, tx, srcAccount)
	case types.TxCreateContract:
		return e.applyCreateContract(store, tx, srcAccount)
	case types.TxUpdateContract:
		return e.applyUpdateContract(store, tx, srcAccount)
	default:
		return TxSideEffect{}, fmt.Errorf("chain: unknown transaction kind %d", tx.Data.Kind)
	}
}

func (e *Engine) applyRegularSend(store kvstore.KVStore, tx types.Transaction, srcAccount types.Account) error {
	send := tx.Data.RegularSend
	if tx.Src.Equal(send.Dst) {
		return chainerr.ErrSelfPaymentNotAllowed
	}
	total := uint64(send.Amount) + uint64(tx.Fee)
	if uint64(srcAccount.Balance) < total {
		return chainerr.ErrBalanceInsufficient
	}
	dstAccount, err := e.getAccount(store, send.Dst)
	if err != nil {
		return err
	}

	srcAccount.Balance -= types.Money(total)
	srcAccount.Nonce++
	dstAccount.Balance += send.Amount

	if err := e.putAccount(store, tx.Src, srcAccount); err != nil {
		return err
	}
	return e.putAccount(store, send.Dst, dstAccount)
}

func (e *Engine) applyCreateContract(store kvstore.KVStore, tx types.Transaction, srcAccount types.Account) (TxSideEffect, error) {
	cc := tx.Data.CreateContract
	if !cc.Contract.StateModel.Valid() {
		return TxSideEffect{}, chainerr.ErrInvalidStateModel
	}
	if uint64(srcAccount.Balance) < uint64(tx.Fee) {
		return TxSideEffect{}, chainerr.ErrBalanceInsufficient
	}

	srcAccount.Balance -= tx.Fee
	srcAccount.Nonce++
	if err := e.putAccount(store, tx.Src, srcAccount); err != nil {
		return TxSideEffect{}, err
	}

	cid := tx.NewContractId()
	if err := store.Update([]kvstore.Op{kvstore.Put(kvstore.ContractKey(cid[:]), encodeContract(cc.Contract))}); err != nil {
		return TxSideEffect{}, err
	}
	account := types.ContractAccount{CompressedState: cc.Contract.InitialState, Balance: 0, Height: 1}
	if err := e.putContractAccount(store, cid, account); err != nil {
		return TxSideEffect{}, err
	}
	if err := e.putCompressedStateAt(store, cid, 1, cc.Contract.InitialState); err != nil {
		return TxSideEffect{}, err
	}

	return TxSideEffect{
		Touched:    true,
		ContractId: cid,
		Change: types.StateChange{
			PrevHeight: 0,
			PrevState:  types.ZkCompressedState{},
			State:      cc.Contract.InitialState,
		},
	}, nil
}

func (e *Engine) applyUpdateContract(store kvstore.KVStore, tx types.Transaction, srcAccount types.Account) (TxSideEffect, error) {
	uc := tx.Data.UpdateContract
	if uint64(srcAccount.Balance) < uint64(tx.Fee) {
		return TxSideEffect{}, chainerr.ErrBalanceInsufficient
	}
	contract, err := e.Contract(uc.ContractId)
	if err != nil {
		return TxSideEffect{}, err
	}
	account, err := e.getContractAccount(store, uc.ContractId)
	if err != nil {
		return TxSideEffect{}, err
	}
	prevHeight, prevState := account.Height, account.CompressedState

	srcAccount.Balance -= tx.Fee
	srcAccount.Nonce++

	// Each helper credits its own update's fees to srcAccount; the fees of
	// the earlier updates in this transaction are credited again after
	// every later update (DESIGN.md, O1).
	var executorFee types.Money
	for _, upd := range uc.Updates {
		balanceBefore := srcAccount.Balance
		switch upd.Kind {
		case types.UpdatePayment:
			if err := e.applyPaymentUpdate(store, uc.ContractId, contract, &account, &srcAccount, upd.Payment); err != nil {
				return TxSideEffect{}, err
			}
		case types.UpdateFunctionCall:
			if err := e.applyFunctionCallUpdate(contract, &account, &srcAccount, upd.FunctionCall); err != nil {
				return TxSideEffect{}, err
			}
		default:
			return TxSideEffect{}, fmt.Errorf("chain: unknown contract update kind %d", upd.Kind)
		}
		credited := srcAccount.Balance - balanceBefore
		srcAccount.Balance += executorFee
		executorFee += credited
	}
	// One height bump per transaction, whatever the number of updates.
	account.Height = prevHeight + 1

	if err := e.putAccount(store, tx.Src, srcAccount); err != nil {
		return TxSideEffect{}, err
	}
	if err := e.putContractAccount(store, uc.ContractId, account); err != nil {
		return TxSideEffect{}, err
	}
	if err := e.putCompressedStateAt(store, uc.ContractId, account.Height, account.CompressedState); err != nil {
		return TxSideEffect{}, err
	}

	return TxSideEffect{
		Touched:    true,
		ContractId: uc.ContractId,
		Change: types.StateChange{
			PrevHeight: prevHeight,
			PrevState:  prevState,
			State:      account.CompressedState,
		},
	}, nil
}

func (e *Engine) applyPaymentUpdate(store kvstore.KVStore, cid types.ContractId, contract types.Contract, account *types.ContractAccount, submitter *types.Account, upd types.PaymentUpdate) error {
	vk, ok := findVerifyingKey(contract.PaymentFunctions, upd.CircuitId)
	if !ok {
		return chainerr.ErrContractFunctionNotFound
	}

	slots := make([]zkverify.PaymentSlot, 0, len(upd.Payments))
	for _, p := range upd.Payments {
		if err := e.applyContractPaymentLocked(store, cid, account, submitter, p); err != nil {
			return err
		}
		slots = append(slots, zkverify.PaymentSlot{Amount: p.Amount, Direction: p.Direction, PkX: p.ZkAddress})
	}

	aux := zkverify.AuxData{Slots: slots}
	if !e.verifier.CheckProof(vk, account.CompressedState, aux, upd.NextState, upd.Proof) {
		return chainerr.ErrIncorrectZkProof
	}
	account.CompressedState = upd.NextState
	account.Height++
	return nil
}

func (e *Engine) applyFunctionCallUpdate(contract types.Contract, account *types.ContractAccount, submitter *types.Account, upd types.FunctionCallUpdate) error {
	vk, ok := findVerifyingKey(contract.Functions, upd.FunctionId)
	if !ok {
		return chainerr.ErrContractFunctionNotFound
	}
	if uint64(account.Balance) < uint64(upd.Fee) {
		return chainerr.ErrContractBalanceInsufficient
	}

	aux := zkverify.AuxData{Scalar: upd.Fee}
	if !e.verifier.CheckProof(vk, account.CompressedState, aux, upd.NextState, upd.Proof) {
		return chainerr.ErrIncorrectZkProof
	}

	account.Balance -= upd.Fee
	submitter.Balance += upd.Fee
	account.CompressedState = upd.NextState
	account.Height++
	return nil
}

func findVerifyingKey(keys []types.VerifyingKey, id uint32) (types.VerifyingKey, bool) {
	for _, k := range keys {
		if k.CircuitId == id {
			return k, true
		}
	}
	return types.VerifyingKey{}, false
}

// applyContractPayment is the standalone Blockchain-trait entry point
// (§6: apply_contract_payment), usable outside of an UpdateContract
// transaction's PaymentUpdate loop (e.g. a direct mempool-sourced
// deposit/withdraw probe). It opens its own mirror so callers get the
// same all-or-nothing semantics as every other apply_* method.
func (e *Engine) applyContractPayment(cid types.ContractId, p types.ContractPayment) error {
	m := e.store.Mirror()
	account, err := e.getContractAccount(m, cid)
	if err != nil {
		return err
	}
	if err := e.applyContractPaymentLocked(m, cid, &account, nil, p); err != nil {
		return err
	}
	if err := e.putContractAccount(m, cid, account); err != nil {
		return err
	}
	return e.store.Update(m.ToOps())
}

// applyContractPaymentLocked performs the nonce/signature/balance
// checks and balance transfer for a single ContractPayment (§4.4). If
// feeRecipient is non-nil, the payment's own Fee is credited to it
// (the transaction that bundled the payment); otherwise the fee is
// simply burned, matching a standalone apply_contract_payment call
// that has no "includer" to reward.
func (e *Engine) applyContractPaymentLocked(store kvstore.KVStore, cid types.ContractId, account *types.ContractAccount, feeRecipient *types.Account, p types.ContractPayment) error {
	if p.ContractId != cid {
		return chainerr.ErrInvalidContractPaymentSignature
	}
	if !signing.VerifyContractPayment(p) {
		return chainerr.ErrInvalidContractPaymentSignature
	}

	outerAddr := types.NewPublicKeyAddress(p.Address)
	outerAccount, err := e.getAccount(store, outerAddr)
	if err != nil {
		return err
	}
	if p.Nonce != outerAccount.Nonce+1 {
		return chainerr.ErrInvalidTransactionNonce
	}
	outerAccount.Nonce++

	switch p.Direction {
	case types.Deposit:
		total := uint64(p.Amount) + uint64(p.Fee)
		if uint64(outerAccount.Balance) < total {
			return chainerr.ErrBalanceInsufficient
		}
		outerAccount.Balance -= types.Money(total)
		account.Balance += p.Amount
	case types.Withdraw:
		total := uint64(p.Amount) + uint64(p.Fee)
		if uint64(account.Balance) < total {
			return chainerr.ErrContractBalanceInsufficient
		}
		account.Balance -= types.Money(total)
		outerAccount.Balance += p.Amount
	default:
		return fmt.Errorf("chain: unknown payment direction %d", p.Direction)
	}
	if feeRecipient != nil {
		feeRecipient.Balance += p.Fee
	}

	return e.putAccount(store, outerAddr, outerAccount)
}

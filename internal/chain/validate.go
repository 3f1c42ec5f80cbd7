package chain

import "github.com/empower1/mpnchain/internal/types"

// ValidateTransaction dry-runs tx against the current tip without
// mutating the store, for mempool admission (§4.10) and RPC-facing
// submission checks.
func (e *Engine) ValidateTransaction(tx types.Transaction) error {
	m := e.store.Mirror()
	_, err := e.applyTx(m, tx, false)
	return err
}

// ValidateContractPayment dry-runs a standalone contract payment.
func (e *Engine) ValidateContractPayment(cid types.ContractId, p types.ContractPayment) error {
	m := e.store.Mirror()
	account, err := e.getContractAccount(m, cid)
	if err != nil {
		return err
	}
	return e.applyContractPaymentLocked(m, cid, &account, nil, p)
}

// ValidateZeroTransaction dry-runs a ZeroTransaction against the MPN
// contract's local tree.
func (e *Engine) ValidateZeroTransaction(tx types.ZeroTransaction) error {
	m := e.store.Mirror()
	return e.applyZeroTx(m, tx)
}

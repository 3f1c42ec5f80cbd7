package chain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/config"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/mempool"
	"github.com/empower1/mpnchain/internal/signing"
	"github.com/empower1/mpnchain/internal/types"
	"github.com/empower1/mpnchain/internal/zkverify"
)

// mine searches header.ProofOfWork.Nonce until it satisfies powKey's
// target, the way a miner would (out of scope §1, but needed here so
// tests can drive Extend against a non-genesis header without skipping
// validateHeader's PoW check). The configured dev difficulty accepts
// roughly half of all nonces, so this terminates almost immediately.
func mine(t *testing.T, header *types.Header, powKey []byte) {
	t.Helper()
	for nonce := uint64(0); nonce < 1_000_000; nonce++ {
		header.ProofOfWork.Nonce = nonce
		if header.MeetsTarget(powKey) {
			return
		}
	}
	t.Fatal("failed to find a nonce meeting the test target")
}

// newFundedEngine boots a fresh engine whose genesis block seeds one
// outer account (via a Treasury-sourced, Unsigned regular send — apart
// from miner rewards, the only way a non-Treasury address gets a
// starting balance, since every later block applies its non-reward
// transactions with allowTreasury false).
func newFundedEngine(t *testing.T, funded types.Address, amount types.Money) *Engine {
	t.Helper()
	fundTx := types.Transaction{
		Src:   types.Treasury(),
		Nonce: 1,
		Fee:   0,
		Sig:   types.Unsigned(),
		Data:  types.TransactionData{Kind: types.TxRegularSend, RegularSend: types.RegularSend{Dst: funded, Amount: amount}},
	}
	genesis := types.Block{Body: []types.Transaction{fundTx}}
	genesis.Header.BlockRoot = merkleRoot(genesis.Body)

	var mpnContractId types.ContractId
	cfg := config.Default(mpnContractId)
	cfg.Genesis = genesis

	e, err := New(kvstore.NewMemStore(), cfg, nil)
	require.NoError(t, err)
	return e
}

func signedTransfer(t *testing.T, priv signing.PrivateKey, src, dst types.Address, nonce uint32, amount, fee types.Money) types.Transaction {
	t.Helper()
	tx := types.Transaction{
		Src:  src,
		Nonce: nonce,
		Fee:  fee,
		Data: types.TransactionData{Kind: types.TxRegularSend, RegularSend: types.RegularSend{Dst: dst, Amount: amount}},
	}
	sig, err := priv.Sign(tx.Hash())
	require.NoError(t, err)
	tx.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}
	return tx
}

// extendWithMinedBlock drafts a block containing selected, mines its
// header, and extends the chain with it, returning the applied block.
func extendWithMinedBlock(t *testing.T, e *Engine, miner types.Address, selected []types.Transaction) types.Block {
	t.Helper()
	draft, _, err := e.DraftBlock(miner, selected, time.Unix(1700000600, 0))
	require.NoError(t, err)
	require.NotNil(t, draft)
	block := *draft
	powKey, err := e.PowKey(block.Header.Number)
	require.NoError(t, err)
	mine(t, &block.Header, powKey)
	require.NoError(t, e.Extend(block))
	return block
}

func TestGenesisBoot(t *testing.T) {
	priv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	addr := types.NewPublicKeyAddress(priv.Public().Bytes())

	e := newFundedEngine(t, addr, 1_000_000)

	height, err := e.GetHeight()
	require.NoError(t, err)
	require.EqualValues(t, 1, height)

	acc, err := e.GetAccount(addr)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, acc.Balance)
	require.EqualValues(t, 0, acc.Nonce)

	// Reopening over the same store with the same genesis must not
	// reapply it or error (§9, ErrDifferentGenesis only on mismatch).
	cfg := e.Config()
	e2, err := New(reopenStoreOf(e), cfg, nil)
	require.NoError(t, err)
	h2, err := e2.GetHeight()
	require.NoError(t, err)
	require.Equal(t, height, h2)
}

// reopenStoreOf exposes the engine's underlying store for the
// reopen-compatibility check above; acceptable only because this file
// lives inside package chain.
func reopenStoreOf(e *Engine) kvstore.KVStore { return e.store }

func TestSimpleTransferAndReward(t *testing.T) {
	srcPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	src := types.NewPublicKeyAddress(srcPriv.Public().Bytes())

	dstPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	dst := types.NewPublicKeyAddress(dstPriv.Public().Bytes())

	minerPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	miner := types.NewPublicKeyAddress(minerPriv.Public().Bytes())

	e := newFundedEngine(t, src, 1_000_000)

	tx := signedTransfer(t, srcPriv, src, dst, 1, 1000, 10)
	block := extendWithMinedBlock(t, e, miner, []types.Transaction{tx})

	height, err := e.GetHeight()
	require.NoError(t, err)
	require.EqualValues(t, 2, height)

	srcAcc, err := e.GetAccount(src)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000-1000-10, srcAcc.Balance)
	require.EqualValues(t, 1, srcAcc.Nonce) // P2: exactly +1 per applied non-reward tx

	dstAcc, err := e.GetAccount(dst)
	require.NoError(t, err)
	require.EqualValues(t, 1000, dstAcc.Balance)

	// P9: reward_tx.amount == next_reward(pre-state) + sum(fees).
	reward, err := e.GetAccount(miner)
	require.NoError(t, err)
	wantReward := uint64(e.Config().InitialReward) + 10
	require.EqualValues(t, wantReward, reward.Balance)
	require.Equal(t, types.TxRegularSend, block.Body[0].Data.Kind)
	require.True(t, block.Body[0].Src.IsTreasury())
}

func TestSelfPaymentRejected(t *testing.T) {
	priv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	addr := types.NewPublicKeyAddress(priv.Public().Bytes())

	e := newFundedEngine(t, addr, 1_000_000)
	tx := signedTransfer(t, priv, addr, addr, 1, 100, 0)

	err = e.ValidateTransaction(tx)
	require.ErrorIs(t, err, chainerr.ErrSelfPaymentNotAllowed)
}

func TestIllegalTreasurySpendRejectedOutsideGenesis(t *testing.T) {
	addr := types.NewPublicKeyAddress([]byte("irrelevant"))
	e := newFundedEngine(t, addr, 0)

	tx := types.Transaction{
		Src:  types.Treasury(),
		Sig:  types.Unsigned(),
		Data: types.TransactionData{Kind: types.TxRegularSend, RegularSend: types.RegularSend{Dst: addr, Amount: 1}},
	}
	err := e.ValidateTransaction(tx)
	require.ErrorIs(t, err, chainerr.ErrIllegalTreasuryAccess)
}

func TestRollbackInverse(t *testing.T) {
	srcPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	src := types.NewPublicKeyAddress(srcPriv.Public().Bytes())
	dst := types.NewPublicKeyAddress([]byte("dst-placeholder-pubkey"))
	miner := types.NewPublicKeyAddress([]byte("miner-placeholder-pubkey"))

	e := newFundedEngine(t, src, 1_000_000)

	preHeight, err := e.GetHeight()
	require.NoError(t, err)
	preSrc, err := e.GetAccount(src)
	require.NoError(t, err)

	tx := signedTransfer(t, srcPriv, src, dst, 1, 5000, 1)
	extendWithMinedBlock(t, e, miner, []types.Transaction{tx})

	postHeight, err := e.GetHeight()
	require.NoError(t, err)
	require.Equal(t, preHeight+1, postHeight)

	require.NoError(t, e.Rollback())

	rolledHeight, err := e.GetHeight()
	require.NoError(t, err)
	require.Equal(t, preHeight, rolledHeight)

	rolledSrc, err := e.GetAccount(src)
	require.NoError(t, err)
	require.Equal(t, preSrc, rolledSrc) // P3: byte-identical over the keys this engine owns

	dstAcc, err := e.GetAccount(dst)
	require.NoError(t, err)
	require.Zero(t, dstAcc.Balance)
}

func TestWillExtendFollowsCumulativePower(t *testing.T) {
	addr := types.NewPublicKeyAddress([]byte("pk"))
	e := newFundedEngine(t, addr, 0)

	height, err := e.GetHeight()
	require.NoError(t, err)
	tipPower, err := e.Power(height - 1)
	require.NoError(t, err)

	will, err := e.WillExtend(tipPower + 1)
	require.NoError(t, err)
	require.True(t, will) // P5: strictly greater power wins

	will, err = e.WillExtend(tipPower)
	require.NoError(t, err)
	require.False(t, will) // ties keep the current tip
}

func TestSelectTransactionsDropsInvalidAndCleanupEvictsStale(t *testing.T) {
	srcPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	src := types.NewPublicKeyAddress(srcPriv.Public().Bytes())
	dst := types.NewPublicKeyAddress([]byte("dst"))
	miner := types.NewPublicKeyAddress([]byte("miner"))

	e := newFundedEngine(t, src, 1000)

	good := signedTransfer(t, srcPriv, src, dst, 1, 500, 0)
	tooExpensive := signedTransfer(t, srcPriv, src, dst, 2, 999999, 0)

	txPool, err := mempool.NewTransactionPool(10)
	require.NoError(t, err)
	paymentPool, err := mempool.NewPaymentPool(10)
	require.NoError(t, err)
	zeroPool, err := mempool.NewZeroTxPool(10)
	require.NoError(t, err)

	goodHash := good.Hash()
	require.NoError(t, txPool.Add(goodHash[:], good))
	expensiveHash := tooExpensive.Hash()
	require.NoError(t, txPool.Add(expensiveHash[:], tooExpensive))

	selected, rejected, rejectedZero, err := e.SelectTransactions(txPool, paymentPool, zeroPool, 0)
	require.NoError(t, err)
	require.Empty(t, rejectedZero)
	require.Len(t, selected, 1)
	require.Equal(t, good.Hash(), selected[0].Hash())
	require.Len(t, rejected, 1)
	require.Equal(t, tooExpensive.Hash(), rejected[0].Hash())

	// Commit "good" on-chain, then cleanup must evict it from the pool
	// even though it was never explicitly removed (§4.13, O2): its
	// nonce is now stale against the post-block account state.
	extendWithMinedBlock(t, e, miner, []types.Transaction{good})
	e.CleanupMempools(txPool, zeroPool)
	require.Zero(t, txPool.Len())
}

func TestZeroTransactionNonceExact(t *testing.T) {
	addr := types.NewPublicKeyAddress([]byte("irrelevant"))
	e := newFundedEngine(t, addr, 0)
	cid := e.Config().MpnContractId

	require.NoError(t, e.putContractAccount(e.store, cid, types.ContractAccount{}))

	srcInner, err := signing.GenerateInnerKeyPair()
	require.NoError(t, err)
	dstInner, err := signing.GenerateInnerKeyPair()
	require.NoError(t, err)

	mgr := e.zkManager(e.store)
	_, err = mgr.SetMpnAccount(cid, 1, types.MpnAccount{
		Address: types.InnerAddress{PubKey: srcInner.Public().Bytes()},
		Balance: 1000,
		Nonce:   5,
	})
	require.NoError(t, err)

	wrongNonce := types.ZeroTransaction{
		SrcIndex: 1, DstIndex: 2,
		DstPubKey: types.InnerAddress{PubKey: dstInner.Public().Bytes()},
		Nonce:     4, Amount: 100, Fee: 1,
	}
	sig, err := srcInner.Sign(wrongNonce.Hash())
	require.NoError(t, err)
	wrongNonce.Sig = sig
	err = e.ValidateZeroTransaction(wrongNonce)
	require.Error(t, err)
	require.True(t, errors.Is(err, chainerr.ErrInvalidZeroTransaction))

	right := wrongNonce
	right.Nonce = 5
	sig, err = srcInner.Sign(right.Hash())
	require.NoError(t, err)
	right.Sig = sig

	m := e.store.Mirror()
	require.NoError(t, e.applyZeroTx(m, right))
	require.NoError(t, e.store.Update(m.ToOps()))

	src, err := mgr.GetMpnAccount(cid, 1)
	require.NoError(t, err)
	require.EqualValues(t, 6, src.Nonce) // P10: src.nonce == pre + 1
	require.EqualValues(t, 899, src.Balance)

	dstAcc, err := mgr.GetMpnAccount(cid, 2)
	require.NoError(t, err)
	require.EqualValues(t, 0, dstAcc.Nonce) // P10: dst.nonce unchanged
	require.EqualValues(t, 100, dstAcc.Balance)
}

func TestContractUpdateRecordsCompressedStateHistory(t *testing.T) {
	creatorPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	creator := types.NewPublicKeyAddress(creatorPriv.Public().Bytes())
	miner := types.NewPublicKeyAddress([]byte("miner"))

	e := newFundedEngine(t, creator, 1_000_000)

	vk := types.VerifyingKey{CircuitId: 1}
	initial := types.ZkCompressedState{StateHash: [32]byte{1}, Size: 0}
	createTx := types.Transaction{
		Src:   creator,
		Nonce: 1,
		Data: types.TransactionData{Kind: types.TxCreateContract, CreateContract: types.CreateContract{
			Contract: types.Contract{
				StateModel:   types.StateModel{KeyLengthBits: 32, Arity: 4},
				InitialState: initial,
				Functions:    []types.VerifyingKey{vk},
			},
		}},
	}
	sig, err := creatorPriv.Sign(createTx.Hash())
	require.NoError(t, err)
	createTx.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}
	cid := createTx.NewContractId()

	extendWithMinedBlock(t, e, miner, []types.Transaction{createTx})

	next := types.ZkCompressedState{StateHash: [32]byte{2}, Size: 1}
	proof := zkverify.BuildProof(vk, initial, zkverify.AuxData{Scalar: 0}, next)
	updateTx := types.Transaction{
		Src:   creator,
		Nonce: 2,
		Data: types.TransactionData{Kind: types.TxUpdateContract, UpdateContract: types.UpdateContract{
			ContractId: cid,
			Updates: []types.ContractUpdate{{
				Kind: types.UpdateFunctionCall,
				FunctionCall: types.FunctionCallUpdate{FunctionId: 1, NextState: next, Proof: proof, Fee: 0},
			}},
		}},
	}
	sig, err = creatorPriv.Sign(updateTx.Hash())
	require.NoError(t, err)
	updateTx.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}

	extendWithMinedBlock(t, e, miner, []types.Transaction{updateTx})

	account, err := e.ContractAccount(cid)
	require.NoError(t, err)
	require.Equal(t, next, account.CompressedState)
	require.EqualValues(t, 2, account.Height)

	// P7: compressed_state_at(cid, account.height) == account.compressed_state.
	atHeight, err := e.CompressedStateAt(cid, account.Height)
	require.NoError(t, err)
	require.Equal(t, account.CompressedState, atHeight)
}

func TestDraftBlockWithheldUntilMpnUpdateFloorMet(t *testing.T) {
	creatorPriv, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	creator := types.NewPublicKeyAddress(creatorPriv.Public().Bytes())
	miner := types.NewPublicKeyAddress([]byte("miner"))

	fundTx := types.Transaction{
		Src:   types.Treasury(),
		Nonce: 1,
		Sig:   types.Unsigned(),
		Data:  types.TransactionData{Kind: types.TxRegularSend, RegularSend: types.RegularSend{Dst: creator, Amount: 1_000_000}},
	}
	genesis := types.Block{Body: []types.Transaction{fundTx}}
	genesis.Header.BlockRoot = merkleRoot(genesis.Body)

	var mpnContractId types.ContractId
	cfg := config.Default(mpnContractId)
	cfg.Genesis = genesis
	cfg.MpnNumFunctionCalls = 1

	e, err := New(kvstore.NewMemStore(), cfg, nil)
	require.NoError(t, err)

	cid := e.Config().MpnContractId
	vk := types.VerifyingKey{CircuitId: 9}
	initial := types.ZkCompressedState{StateHash: [32]byte{3}, Size: 0}
	require.NoError(t, e.store.Update([]kvstore.Op{kvstore.Put(kvstore.ContractKey(cid[:]), encodeContract(types.Contract{
		StateModel: types.StateModel{KeyLengthBits: 32, Arity: 4},
		Functions:  []types.VerifyingKey{vk},
	}))}))
	require.NoError(t, e.putContractAccount(e.store, cid, types.ContractAccount{CompressedState: initial, Height: 1}))
	require.NoError(t, e.putCompressedStateAt(e.store, cid, 1, initial))

	plainTransfer := signedTransfer(t, creatorPriv, creator, miner, 1, 10, 0)

	// §8 scenario 6: a draft block with zero MPN function-call txs must
	// return nil, not an error — this mempool just doesn't have enough
	// MPN-contract activity yet to meet the configured floor.
	draft, _, err := e.DraftBlock(miner, []types.Transaction{plainTransfer}, time.Unix(1700000600, 0))
	require.NoError(t, err)
	require.Nil(t, draft)

	next := types.ZkCompressedState{StateHash: [32]byte{4}, Size: 1}
	proof := zkverify.BuildProof(vk, initial, zkverify.AuxData{Scalar: 0}, next)
	mpnUpdate := types.Transaction{
		Src:   creator,
		Nonce: 1,
		Data: types.TransactionData{Kind: types.TxUpdateContract, UpdateContract: types.UpdateContract{
			ContractId: cid,
			Updates: []types.ContractUpdate{{
				Kind:         types.UpdateFunctionCall,
				FunctionCall: types.FunctionCallUpdate{FunctionId: 9, NextState: next, Proof: proof, Fee: 0},
			}},
		}},
	}
	sig, err := creatorPriv.Sign(mpnUpdate.Hash())
	require.NoError(t, err)
	mpnUpdate.Sig = types.Signature{Kind: types.SignaturePresent, Bytes: sig}

	block := extendWithMinedBlock(t, e, miner, []types.Transaction{mpnUpdate})
	require.Len(t, block.Body, 2) // reward + the MPN update

	height, err := e.GetHeight()
	require.NoError(t, err)
	require.EqualValues(t, 2, height)
}

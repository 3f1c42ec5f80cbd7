// Package chain implements the stateful chain engine described in spec
// §4: the object that owns a KV store and an immutable config, and
// implements every state transition — transaction application, block
// validation/apply/rollback, fork choice, mempool selection, and the
// zk state-patch protocol. It is the direct analogue of the Rust
// KvStoreChain in the original bazuka source this spec was distilled
// from (original_source/src/blockchain/mod.rs).
//
// Per spec §5 the engine is single-owner/single-threaded at the
// block/transaction granularity and holds no internal lock: callers are
// expected to serialize mutating calls themselves (typically with one
// RWMutex around the whole engine, the way the teacher guards
// internal/state.State — except here that guard lives in the caller,
// not in this package).
package chain

import (
	"fmt"
	"log"
	"os"

	"github.com/empower1/mpnchain/internal/chainerr"
	"github.com/empower1/mpnchain/internal/config"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/types"
	"github.com/empower1/mpnchain/internal/zkstate"
	"github.com/empower1/mpnchain/internal/zkverify"
)

// Engine is the chain engine (Blockchain trait implementation, §6).
type Engine struct {
	store    kvstore.KVStore
	cfg      config.BlockchainConfig
	verifier zkverify.Verifier
	hasher   zkstate.Hasher
	logger   *log.Logger
}

// New constructs an Engine over store, verifying or installing the
// genesis block. If the store is empty, the genesis block from cfg is
// applied with allow_treasury=true for every tx (§4.6). If the store
// already has a height, the stored genesis header must match cfg's,
// else ErrDifferentGenesis (§9).
func New(store kvstore.KVStore, cfg config.BlockchainConfig, verifier zkverify.Verifier) (*Engine, error) {
	if verifier == nil {
		verifier = zkverify.FrVerifier{}
	}
	e := &Engine{
		store:    store,
		cfg:      cfg,
		verifier: verifier,
		hasher:   zkstate.FrHasher{},
		logger:   log.New(os.Stdout, "CHAIN_ENGINE: ", log.Ldate|log.Ltime|log.Lshortfile),
	}

	height, err := e.GetHeight()
	if err != nil {
		return nil, err
	}
	if height == 0 {
		if err := e.applyBlock(cfg.Genesis, true, true); err != nil {
			return nil, fmt.Errorf("chain: apply genesis: %w", err)
		}
		e.logger.Printf("initialized fresh chain at height 1")
		return e, nil
	}

	storedGenesis, err := e.GetHeader(0)
	if err != nil {
		return nil, err
	}
	if storedGenesis.Hash() != cfg.Genesis.Header.Hash() {
		return nil, chainerr.ErrDifferentGenesis
	}
	return e, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() config.BlockchainConfig { return e.cfg }

func (e *Engine) zkManager(store kvstore.KVStore) *zkstate.Manager {
	return zkstate.New(store, e.hasher, e.cfg.MaxDeltaHistory)
}

// GetHeight returns the number of blocks applied so far (genesis counts
// as height 1, matching scenario 1 of spec §8).
func (e *Engine) GetHeight() (uint64, error) {
	raw, ok, err := e.store.Get(kvstore.HeightKey())
	if err != nil || !ok {
		return 0, err
	}
	return decodeU64(raw), nil
}

func (e *Engine) setHeight(store kvstore.KVStore, h uint64) error {
	return store.Update([]kvstore.Op{kvstore.Put(kvstore.HeightKey(), encodeU64(h))})
}

// Tip returns the header of the current chain tip.
func (e *Engine) Tip() (types.Header, error) {
	h, err := e.GetHeight()
	if err != nil {
		return types.Header{}, err
	}
	if h == 0 {
		return types.Header{}, chainerr.ErrBlockNotFound
	}
	return e.GetHeader(h - 1)
}

// GetHeader returns the header stored at number.
func (e *Engine) GetHeader(number uint64) (types.Header, error) {
	raw, ok, err := e.store.Get(kvstore.HeaderKey(number))
	if err != nil {
		return types.Header{}, err
	}
	if !ok {
		return types.Header{}, chainerr.ErrBlockNotFound
	}
	return decodeHeader(raw)
}

// GetBlock returns the block stored at number.
func (e *Engine) GetBlock(number uint64) (types.Block, error) {
	raw, ok, err := e.store.Get(kvstore.BlockKey(number))
	if err != nil {
		return types.Block{}, err
	}
	if !ok {
		return types.Block{}, chainerr.ErrBlockNotFound
	}
	return decodeBlock(raw)
}

// GetHeaders returns headers [from, from+count).
func (e *Engine) GetHeaders(from uint64, count uint64) ([]types.Header, error) {
	out := make([]types.Header, 0, count)
	for i := uint64(0); i < count; i++ {
		h, err := e.GetHeader(from + i)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// GetBlocks returns blocks [from, from+count).
func (e *Engine) GetBlocks(from uint64, count uint64) ([]types.Block, error) {
	out := make([]types.Block, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := e.GetBlock(from + i)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Power returns the cumulative power up to and including number.
func (e *Engine) Power(number uint64) (uint64, error) {
	raw, ok, err := e.store.Get(kvstore.PowerKey(number))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, chainerr.ErrBlockNotFound
	}
	return decodeU64(raw), nil
}

// GetAccount returns addr's outer account, defaulting per spec §3
// (Treasury defaults to the configured total supply, everyone else to
// zero).
func (e *Engine) GetAccount(addr types.Address) (types.Account, error) {
	return e.getAccount(e.store, addr)
}

func (e *Engine) getAccount(store kvstore.KVStore, addr types.Address) (types.Account, error) {
	raw, ok, err := store.Get(kvstore.AccountKey(addr.Bytes()))
	if err != nil {
		return types.Account{}, err
	}
	if !ok {
		if addr.IsTreasury() {
			return types.Account{Balance: e.cfg.TotalSupply}, nil
		}
		return types.Account{}, nil
	}
	return decodeAccount(raw)
}

func (e *Engine) putAccount(store kvstore.KVStore, addr types.Address, acc types.Account) error {
	return store.Update([]kvstore.Op{kvstore.Put(kvstore.AccountKey(addr.Bytes()), encodeAccount(acc))})
}

// Contract returns the published Contract for cid.
func (e *Engine) Contract(cid types.ContractId) (types.Contract, error) {
	raw, ok, err := e.store.Get(kvstore.ContractKey(cid[:]))
	if err != nil {
		return types.Contract{}, err
	}
	if !ok {
		return types.Contract{}, chainerr.ErrContractNotFound
	}
	return decodeContract(raw)
}

// ContractAccount returns the on-chain ContractAccount record for cid.
func (e *Engine) ContractAccount(cid types.ContractId) (types.ContractAccount, error) {
	return e.getContractAccount(e.store, cid)
}

func (e *Engine) getContractAccount(store kvstore.KVStore, cid types.ContractId) (types.ContractAccount, error) {
	raw, ok, err := store.Get(kvstore.ContractAccountKey(cid[:]))
	if err != nil {
		return types.ContractAccount{}, err
	}
	if !ok {
		return types.ContractAccount{}, chainerr.ErrContractNotFound
	}
	return decodeContractAccount(raw)
}

func (e *Engine) putContractAccount(store kvstore.KVStore, cid types.ContractId, acc types.ContractAccount) error {
	return store.Update([]kvstore.Op{kvstore.Put(kvstore.ContractAccountKey(cid[:]), encodeContractAccount(acc))})
}

// CompressedStateAt returns the compressed state recorded at height h
// for contract cid (I5: present for every h in [1, ContractAccount.Height]).
func (e *Engine) CompressedStateAt(cid types.ContractId, h uint64) (types.ZkCompressedState, error) {
	raw, ok, err := e.store.Get(kvstore.CompressedStateAtKey(cid[:], h))
	if err != nil {
		return types.ZkCompressedState{}, err
	}
	if !ok {
		return types.ZkCompressedState{}, chainerr.ErrCompressedStateNotFound
	}
	return decodeCompressedState(raw), nil
}

func (e *Engine) putCompressedStateAt(store kvstore.KVStore, cid types.ContractId, h uint64, s types.ZkCompressedState) error {
	return store.Update([]kvstore.Op{kvstore.Put(kvstore.CompressedStateAtKey(cid[:], h), encodeCompressedState(s))})
}

// MpnAccount reads one account from the configured MPN contract's tree.
func (e *Engine) MpnAccount(index uint64) (types.MpnAccount, error) {
	return e.zkManager(e.store).GetMpnAccount(e.cfg.MpnContractId, index)
}

// MpnAccounts pages through the MPN contract's populated accounts.
func (e *Engine) MpnAccounts(page, pageSize int) ([]types.MpnAccount, error) {
	return e.zkManager(e.store).GetMpnAccounts(e.cfg.MpnContractId, page, pageSize)
}

// ReadState reads a single locator out of cid's zk tree (§6: read_state).
func (e *Engine) ReadState(cid types.ContractId, locator uint64) ([]byte, bool, error) {
	return e.zkManager(e.store).GetData(cid, locator)
}

// NextReward computes the miner reward for the next block: the
// configured initial reward, halved every RewardHalvingPeriod blocks
// (0 disables halving), grounded on original_source's next_reward()
// halving schedule (SPEC_FULL.md).
func (e *Engine) NextReward() (types.Money, error) {
	height, err := e.GetHeight()
	if err != nil {
		return 0, err
	}
	if e.cfg.RewardHalvingPeriod == 0 {
		return e.cfg.InitialReward, nil
	}
	halvings := height / e.cfg.RewardHalvingPeriod
	reward := uint64(e.cfg.InitialReward)
	for i := uint64(0); i < halvings && reward > 0; i++ {
		reward /= 2
	}
	return types.Money(reward), nil
}

// PowKey implements the §4.8 schedule.
func (e *Engine) PowKey(n uint64) ([]byte, error) {
	return powKeyFor(e, n)
}

// GetOutdatedContracts / GetOutdatedHeights are defined in statepatch.go.

// Package rpcshape defines the request/response shapes the chain
// engine's RPC-facing methods correspond to, field-accurate against
// the original source's src/client/messages.rs so a future transport
// layer (out of scope, SPEC_FULL.md §6) has somewhere to start.
//
// Each shape is plain and JSON-tagged rather than protobuf-generated:
// the teacher's wire protocol (internal/network, proto/) is a
// peer-to-peer gossip format for core.Transaction/core.Block, not an
// RPC client API, and nothing in the pack ships a .proto definition
// for this spec's message set. Hand-writing a new .proto plus codegen
// for a transport this package deliberately doesn't wire up would be
// inventing build tooling nobody asked for; JSON struct tags are the
// idiomatic Go default for a client-facing API shape (see DESIGN.md).
package rpcshape

import (
	"github.com/empower1/mpnchain/internal/statepatch"
	"github.com/empower1/mpnchain/internal/types"
)

// GetStatsRequest carries no fields; kept as a named type so every RPC
// method has a matching request shape even when empty.
type GetStatsRequest struct{}

// GetStatsResponse mirrors messages.rs's GetStatsResponse, minus
// SocialProfiles (an explorer/community-links field out of scope per
// spec §1 Non-goals).
type GetStatsResponse struct {
	Height     uint64      `json:"height"`
	Power      uint64      `json:"power"`
	NextReward types.Money `json:"next_reward"`
	Timestamp  uint64      `json:"timestamp"`
	Version    string      `json:"version"`
}

// GetAccountRequest names the outer address to look up; Address is hex
// of the same bytes types.Address.Bytes() produces.
type GetAccountRequest struct {
	Address string `json:"address"`
}

type GetAccountResponse struct {
	Account types.Account `json:"account"`
}

// GetMpnAccountRequest/Response expose a single MPN tree leaf (§6
// get_mpn_account), the Go analogue of zk::MpnAccount lookups.
type GetMpnAccountRequest struct {
	Index uint64 `json:"index"`
}

type GetMpnAccountResponse struct {
	Account types.MpnAccount `json:"account"`
}

// GetMpnAccountsRequest/Response page through the MPN tree (§6
// get_mpn_accounts), dropping the Rust side's explorer-only
// ExplorerMpnAccount enrichment (out of scope per Non-goals).
type GetMpnAccountsRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type GetMpnAccountsResponse struct {
	Accounts []types.MpnAccount `json:"accounts"`
}

// GetBlocksRequest/Response are bazuka's since/count block range read
// (§6 get_blocks).
type GetBlocksRequest struct {
	Since uint64 `json:"since"`
	Count uint64 `json:"count"`
}

type GetBlocksResponse struct {
	Blocks []types.Block `json:"blocks"`
}

// GetHeadersRequest/Response mirror get_headers, pairing each header
// with the pow key it was mined against (§4.8's PowKey schedule) so a
// light client can re-verify MeetsTarget without fetching full blocks.
type GetHeadersRequest struct {
	Since uint64 `json:"since"`
	Count uint64 `json:"count"`
}

type GetHeadersResponse struct {
	Headers []types.Header `json:"headers"`
	PowKeys [][]byte       `json:"pow_keys"`
}

// PostBlockRequest/Response is how a newly mined or received block,
// plus the zk state patch it carries (§4.11/§4.12), is submitted to a
// peer.
type PostBlockRequest struct {
	Block types.Block               `json:"block"`
	Patch statepatch.BlockchainPatch `json:"patch"`
}

type PostBlockResponse struct{}

// GetOutdatedHeightsRequest/Response carries the per-contract map
// Engine.GetOutdatedContracts returns (§6 get_outdated_heights): each
// contract a lagging peer should re-sync zk state for, with the height
// it needs to reach.
type GetOutdatedHeightsRequest struct{}

type GetOutdatedHeightsResponse struct {
	OutdatedHeights map[types.ContractId]uint64 `json:"outdated_heights"`
}

// GetStatesRequest/Response is the zk resync handshake (§6
// get_states/update_states): a peer reports which contracts it's
// behind on, and receives a patch bringing them current.
type GetStatesRequest struct {
	OutdatedHeights map[types.ContractId]uint64 `json:"outdated_heights"`
	To              string                      `json:"to"`
}

type GetStatesResponse struct {
	Patch statepatch.BlockchainPatch `json:"patch"`
}

// GetBalanceRequest/Response is a convenience accessor over
// GetAccount, matching messages.rs's dedicated balance-only query.
type GetBalanceRequest struct {
	Addr types.Address `json:"addr"`
}

type GetBalanceResponse struct {
	Amount types.Money `json:"amount"`
}

// TransactRequest/Response submits a signed Transaction for mempool
// admission (§4.10's ValidateTransaction path). Unlike the original's
// TransactionAndDelta (which bundles an optional state delta alongside
// the tx for zk contracts), this spec's UpdateContract transactions
// always carry their own proof/NextState inline (types.ContractUpdate),
// so no separate delta needs threading through the RPC layer.
type TransactRequest struct {
	Transaction types.Transaction `json:"transaction"`
}

type TransactResponse struct{}

// TransactZeroRequest/Response submits a ZeroTransaction against the
// MPN contract's tree (§4.10 applies_zero_tx's dry run).
type TransactZeroRequest struct {
	Transaction types.ZeroTransaction `json:"transaction"`
}

type TransactZeroResponse struct{}

// TransactContractPaymentRequest/Response submits a standalone
// ContractPayment for mempool admission, the Go analogue of the
// original's MpnPayment submission path.
type TransactContractPaymentRequest struct {
	Payment types.ContractPayment `json:"payment"`
}

type TransactContractPaymentResponse struct{}

// GetMempoolRequest/Response reports every pending entry across the
// three mempools (§6 get_mempool), dropping the original's TransactionAndDelta
// wrapper for the same reason TransactRequest does.
type GetMempoolRequest struct{}

type GetMempoolResponse struct {
	Transactions     []types.Transaction     `json:"transactions"`
	ContractPayments []types.ContractPayment `json:"contract_payments"`
	ZeroTransactions []types.ZeroTransaction `json:"zero_transactions"`
}

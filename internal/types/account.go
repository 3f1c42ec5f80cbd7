package types

// Account is the outer-chain account state: {balance, nonce}. The
// default for an unknown address is the zero value, except Treasury,
// whose default carries the configured total supply (applied by the
// chain engine, not by this type, since the supply is config-scoped).
type Account struct {
	Balance Money
	Nonce   uint32
}

// ContractAccount is the on-chain record for a zk contract: its
// compressed state commitment, pooled balance, and the number of
// updates applied to it (counting the creating transaction as height 1).
type ContractAccount struct {
	CompressedState ZkCompressedState
	Balance         Money
	Height          uint64
}

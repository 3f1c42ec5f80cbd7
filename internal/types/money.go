// Package types holds the core datatypes of the chain: accounts, blocks,
// headers, transactions, contract updates, and the zk-related value
// types shared between the chain engine and the zk state manager.
package types

// Money is an unsigned amount. All balance and fee arithmetic in the
// engine operates on Money; callers are responsible for checking for
// overflow before a debit/credit pair is applied. The engine checks that
// every debit is covered by the balance it is taken from; credits are
// added without an overflow check.
type Money uint64

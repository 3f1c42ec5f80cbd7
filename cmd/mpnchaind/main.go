// Command mpnchaind is a thin CLI over the chain engine: enough to boot
// a store and inspect its state for local development; it has no
// command for submitting transactions or zero-transactions. The network/consensus/mining loop the teacher
// wires into cmd/empower1d (internal/network.Server, a block-creation
// goroutine) is deliberately not reproduced here — the node-to-node
// wire protocol and PoW search are out of scope per spec §1 Non-goals,
// so this entrypoint only drives the parts SPEC_FULL.md actually
// specifies: the Engine itself.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/empower1/mpnchain/internal/chain"
	"github.com/empower1/mpnchain/internal/config"
	"github.com/empower1/mpnchain/internal/kvstore"
	"github.com/empower1/mpnchain/internal/types"
)

var dbPath string

func main() {
	if err := newCLI().Execute(); err != nil {
		log.Fatalf("mpnchaind: %v", err)
	}
}

func newCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "mpnchaind",
		Short: "mpnchaind runs and inspects a single MPN chain node store.",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "mpnchain.db", "path to the bolt-backed chain store")

	root.AddCommand(heightCmd())
	root.AddCommand(tipCmd())
	root.AddCommand(accountCmd())
	root.AddCommand(mpnAccountCmd())
	root.AddCommand(outdatedCmd())

	return root
}

func openEngine() (*chain.Engine, func(), error) {
	store, err := kvstore.OpenBoltStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	var mpnContractId types.ContractId
	cfg := config.Default(mpnContractId)
	e, err := chain.New(store, cfg, nil)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}
	return e, func() { store.Close() }, nil
}

func heightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "height",
		Short: "Print the current chain height",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			h, err := e.GetHeight()
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
}

func tipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Print the current tip header",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			tip, err := e.Tip()
			if err != nil {
				return err
			}
			hash := tip.Hash()
			fmt.Printf("number=%d hash=%s target=%#x timestamp=%d\n",
				tip.Number, hex.EncodeToString(hash[:]), tip.ProofOfWork.Target, tip.ProofOfWork.Timestamp)
			return nil
		},
	}
}

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account [pubkey-hex]",
		Short: "Print the outer account balance/nonce for a public key, or the treasury if omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()

			addr := types.Treasury()
			if len(args) == 1 {
				pk, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("decode pubkey: %w", err)
				}
				addr = types.NewPublicKeyAddress(pk)
			}
			acc, err := e.GetAccount(addr)
			if err != nil {
				return err
			}
			fmt.Printf("balance=%d nonce=%d\n", acc.Balance, acc.Nonce)
			return nil
		},
	}
}

func mpnAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mpn-account [index]",
		Short: "Print one account from the MPN contract's tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			var index uint64
			if _, err := fmt.Sscanf(args[0], "%d", &index); err != nil {
				return fmt.Errorf("parse index: %w", err)
			}
			acc, err := e.MpnAccount(index)
			if err != nil {
				return err
			}
			fmt.Printf("address=%s balance=%d nonce=%d\n",
				hex.EncodeToString(acc.Address.PubKey), acc.Balance, acc.Nonce)
			return nil
		},
	}
}

func outdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List contracts whose local zk tree has fallen behind their on-chain account height",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine()
			if err != nil {
				return err
			}
			defer closeFn()
			outdated, err := e.GetOutdatedContracts()
			if err != nil {
				return err
			}
			if len(outdated) == 0 {
				fmt.Fprintln(os.Stdout, "no outdated contracts")
				return nil
			}
			for cid, height := range outdated {
				fmt.Printf("%s -> %d\n", cid.String(), height)
			}
			return nil
		},
	}
}

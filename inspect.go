package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/ftchann/uniswap-compounder/lib/storage/pebble"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the manager state saved by simulate --db",
		RunE:  runInspect,
	}
	cmd.Flags().String("db", "./data/state", "pebble directory")
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("db")
	store, err := pebble.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	st, timestamp, err := store.LoadState(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "timestamp:       %d\n", timestamp)
	fmt.Fprintf(out, "total liquidity: %s\n", st.TotalLiquidity.ToBig())
	fmt.Fprintf(out, "total supply:    %s\n", st.TotalSupply.ToBig())

	owners := make([]common.Address, 0, len(st.Balances))
	for owner := range st.Balances {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].Hex() < owners[j].Hex() })
	for _, owner := range owners {
		fmt.Fprintf(out, "  %s %s\n", owner.Hex(), st.Balances[owner].ToBig())
	}
	return nil
}

package cli

import (
	"encoding/json"

	"github.com/canopy-network/stakebatch/cmd/rpc"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "owner and operator operations",
}

var (
	caller, newOwner, update string
	force                    bool
)

func init() {
	adminCmd.PersistentFlags().StringVar(&caller, "caller", "", "the account that calls the owner operation")
	adminCmd.PersistentFlags().StringVar(&amount, "amount", "0", "the amount in yocto NEAR")
	adminCmd.PersistentFlags().BoolVar(&all, "all", false, "use the entire owner balance instead of --amount")
	adminCmd.PersistentFlags().StringVar(&newOwner, "new-owner", "", "the account that receives the ownership")
	adminCmd.PersistentFlags().StringVar(&update, "update", "{}", "the json encoded options to merge")
	adminCmd.PersistentFlags().BoolVar(&force, "force", false, "skip the gas range checks")
	adminCmd.AddCommand(routeCmd(rpc.CollectEarningsRouteName, "book NEAR earned outside the staked balance", ownerArgs))
	adminCmd.AddCommand(routeCmd(rpc.OwnerStakeRouteName, "deposit owner balance into the owner's stake batch", ownerArgs))
	adminCmd.AddCommand(routeCmd(rpc.OwnerWithdrawRouteName, "withdraw owner balance", ownerArgs))
	adminCmd.AddCommand(routeCmd(rpc.TransferOwnershipRouteName, "hand the contract to another registered account", func() any {
		return map[string]any{"caller": caller, "newOwner": newOwner}
	}))
	adminCmd.AddCommand(routeCmd(rpc.ClearStakeLockRouteName, "reset a wedged stake round", ownerArgs))
	adminCmd.AddCommand(routeCmd(rpc.ClearRedeemLockRouteName, "reset a wedged unstake round", ownerArgs))
	adminCmd.AddCommand(routeCmd(rpc.UpdateGasRouteName, "merge new gas budgets, e.g. --update='{\"withdraw\":60000000000000}'", func() any {
		return map[string]any{"caller": caller, "update": updateFlag(), "force": force}
	}))
	adminCmd.AddCommand(routeCmd(rpc.UpdateConfigRouteName, "merge new engine options, e.g. --update='{\"ownerEarningsPercentage\":20}'", func() any {
		return map[string]any{"caller": caller, "update": updateFlag()}
	}))
	adminCmd.AddCommand(routeCmd(rpc.ResourceUsageRouteName, "print the process and host resource usage", noArgs))
}

func ownerArgs() any {
	return map[string]any{"caller": caller, "amount": amountFlag(), "all": all}
}

// updateFlag() validates --update as a json object
func updateFlag() json.RawMessage {
	if !json.Valid([]byte(update)) {
		l.Fatalf("--update is not valid json: %s", update)
	}
	return json.RawMessage(update)
}

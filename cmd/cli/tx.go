package cli

import (
	"encoding/json"

	"github.com/canopy-network/stakebatch/cmd/rpc"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/spf13/cobra"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "submit account operations to the engine rpc",
}

var (
	to, amount string
	all        bool
)

func init() {
	txCmd.PersistentFlags().StringVar(&accountId, "account", "", "the account that submits the operation")
	txCmd.PersistentFlags().StringVar(&to, "to", "", "the receiving account of a transfer")
	txCmd.PersistentFlags().StringVar(&amount, "amount", "0", "the amount in yocto units")
	txCmd.PersistentFlags().BoolVar(&all, "all", false, "use the entire balance instead of --amount")
	txCmd.AddCommand(routeCmd(rpc.RegisterRouteName, "register an account, --amount is the attached storage deposit", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.UnregisterRouteName, "unregister an empty account and return its storage escrow", accountArgs))
	txCmd.AddCommand(routeCmd(rpc.DepositRouteName, "deposit NEAR into the stake batch", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.DepositAndStakeRouteName, "deposit NEAR into the stake batch and run the stake round", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.WithdrawStakeBatchRouteName, "withdraw NEAR from the open stake batch", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.RedeemRouteName, "move STAKE into the redeem batch", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.RedeemAllRouteName, "move the entire STAKE balance into the redeem batch", accountArgs))
	txCmd.AddCommand(routeCmd(rpc.RedeemAndUnstakeRouteName, "move STAKE into the redeem batch and run the unstake round", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.RemoveRedeemRouteName, "take STAKE back out of the open redeem batch", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.ClaimRouteName, "settle the account's completed batches", accountArgs))
	txCmd.AddCommand(routeCmd(rpc.WithdrawNearRouteName, "withdraw available NEAR", amountArgs))
	txCmd.AddCommand(routeCmd(rpc.TransferNearRouteName, "transfer available NEAR to another account", transferArgs))
	txCmd.AddCommand(routeCmd(rpc.FtTransferRouteName, "transfer STAKE to another account", transferArgs))
	txCmd.AddCommand(routeCmd(rpc.StakeRouteName, "run the stake round", noArgs))
	txCmd.AddCommand(routeCmd(rpc.UnstakeRouteName, "run the unstake round or withdraw the pending one", noArgs))
	txCmd.AddCommand(routeCmd(rpc.RefreshRouteName, "refresh the STAKE token value from the venue", noArgs))
}

// amountFlag() validates --amount as a base 10 yocto amount
func amountFlag() json.RawMessage {
	a, err := lib.ParseYoctoNear(amount)
	if err != nil {
		l.Fatal(err.Error())
	}
	bz, err := lib.MarshalJSON(a)
	if err != nil {
		l.Fatal(err.Error())
	}
	return bz
}

func amountArgs() any {
	return map[string]any{"accountId": accountId, "amount": amountFlag(), "all": all}
}

func transferArgs() any {
	return map[string]any{"from": accountId, "to": to, "amount": amountFlag()}
}

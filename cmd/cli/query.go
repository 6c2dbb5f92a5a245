package cli

import (
	"encoding/json"
	"fmt"

	"github.com/canopy-network/stakebatch/cmd/rpc"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the engine rpc",
}

var (
	accountId, eventType string
	batchId              uint64
	pageNumber, perPage  int
)

func init() {
	queryCmd.PersistentFlags().StringVar(&accountId, "account", "", "the account id of the query")
	queryCmd.PersistentFlags().Uint64Var(&batchId, "batch", 0, "the batch id of a receipt query")
	queryCmd.PersistentFlags().StringVar(&eventType, "type", "", "only events of this type")
	queryCmd.PersistentFlags().IntVar(&pageNumber, "page-number", 0, "page number on a paginated call")
	queryCmd.PersistentFlags().IntVar(&perPage, "per-page", 0, "number of items per page on a paginated call")
	queryCmd.AddCommand(statusCmd)
	queryCmd.AddCommand(routeCmd(rpc.AccountRouteName, "query the stored account", accountArgs))
	queryCmd.AddCommand(routeCmd(rpc.AccountViewRouteName, "query the account as it would look once its receipts are claimed", accountArgs))
	queryCmd.AddCommand(routeCmd(rpc.AccountsRouteName, "query the registered accounts", pageArgs))
	queryCmd.AddCommand(routeCmd(rpc.ContractRouteName, "query the contract summary", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.TokenValueRouteName, "query the STAKE token value", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.StakeReceiptRouteName, "query the receipt of a staked batch", receiptArgs))
	queryCmd.AddCommand(routeCmd(rpc.RedeemReceiptRouteName, "query the receipt of an unstaked redeem batch", receiptArgs))
	queryCmd.AddCommand(routeCmd(rpc.PendingWithdrawalRouteName, "query the receipt awaiting its withdrawal", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.BatchesRouteName, "query the open batches", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.MinDepositRouteName, "query the smallest accepted deposit", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.EventsRouteName, "query the event log, newest first", eventsArgs))
	queryCmd.AddCommand(routeCmd(rpc.TasksRouteName, "query the scheduled venue calls", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.ConfigRouteName, "query the engine and gas options in effect", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.FtTotalSupplyRouteName, "query the STAKE supply", noArgs))
	queryCmd.AddCommand(routeCmd(rpc.FtBalanceOfRouteName, "query the STAKE balance of an account", accountArgs))
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "print a summary of the contract",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := client.Contract()
		if err != nil {
			l.Fatal(err.Error())
		}
		fmt.Printf("height:              %d\n", c.BlockHeight)
		fmt.Printf("owner:               %s\n", c.OwnerId)
		fmt.Printf("accounts:            %d\n", c.RegisteredAccounts)
		fmt.Printf("stake supply:        %s STAKE\n", near(c.TotalStakeSupply))
		fmt.Printf("staked near:         %s NEAR\n", near(c.StakeTokenValue.TotalStakedNearBalance))
		fmt.Printf("stake value:         %s NEAR\n", near(c.NearValue))
		fmt.Printf("liquidity pool:      %s NEAR\n", near(c.NearLiquidityPool))
		fmt.Printf("collected earnings:  %s NEAR\n", near(c.CollectedEarnings))
		fmt.Printf("owner balance:       %s NEAR\n", near(c.OwnerBalance))
		fmt.Printf("stake lock:          %s\n", c.StakeLock.State)
		fmt.Printf("redeem lock:         %s\n", c.RedeemLock.State)
		fmt.Printf("scheduled tasks:     %d\n", c.ScheduledTasks)
	},
}

// routeCmd() creates a command that calls the named route with the request built from the flags
func routeCmd(name, short string, request func() any) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			result := json.RawMessage{}
			err := client.Call(name, request(), &result)
			writeToConsole(result, err)
		},
	}
}

func noArgs() any { return nil }

func accountArgs() any { return map[string]any{"accountId": accountId} }

func receiptArgs() any { return map[string]any{"batchId": batchId} }

func pageArgs() any { return lib.PageParams{PageNumber: pageNumber, PerPage: perPage} }

func eventsArgs() any {
	return map[string]any{"pageNumber": pageNumber, "perPage": perPage, "type": eventType}
}

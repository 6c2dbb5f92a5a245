package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/canopy-network/stakebatch/cmd/rpc"
	"github.com/canopy-network/stakebatch/controller"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/store"
	"github.com/canopy-network/stakebatch/venue"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rootCmd = &cobra.Command{
	Use:   "stakebatch",
	Short: "the batched staking settlement engine",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(rpc.SoftwareVersion)
	},
}

var (
	client, config, l = &rpc.Client{}, lib.Config{}, lib.LoggerI(nil)
	DataDir           = ""
	simulate          = false
	epochSeconds      = 0
)

func init() {
	flag.Parse()
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
	startCmd.Flags().BoolVar(&simulate, "simulate", false, "run against an in-memory staking venue instead of the configured one")
	startCmd.Flags().IntVar(&epochSeconds, "epoch-seconds", 10, "how often the simulated venue advances an epoch")
	config = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
	l = lib.NewLogger(lib.LoggerConfig{Level: config.GetLogLevel()}, config.DataDirPath)
	client = rpc.NewClient(config.RPCUrl, config.AdminRPCUrl)
}

// Execute() runs the command line
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the settlement engine",
	Run: func(cmd *cobra.Command, args []string) {
		Start()
	},
}

// Start() is the entrypoint of the application
func Start() {
	// initialize the metrics server
	metrics := lib.NewMetricsServer(config.MetricsConfig, l)
	// create a new database object from the config
	db, err := store.New(config.StoreConfig, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	// connect the staking venue
	ctx, cancel := context.WithCancel(context.Background())
	v, group := venue.Venue(venue.NewHTTPVenue(config.VenueConfig, l)), new(errgroup.Group)
	if simulate {
		sim := venue.NewSimulator(config.VenueConfig.AccountId)
		group.Go(func() error { return runEpochs(ctx, sim, time.Duration(epochSeconds)*time.Second) })
		v = sim
		l.Warn("Running against a simulated staking venue")
	} else if e := v.Ping(ctx); e != nil {
		l.Warnf("Staking venue at %s is unreachable: %s", config.VenueConfig.Url, e.Error())
	}
	// create a new instance of the application
	app, err := controller.New(config, db, v, metrics, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	// initialize the rpc server
	rpcServer := rpc.NewServer(app, config, l)
	// start the metrics server
	metrics.Start()
	// start the application
	app.Start()
	// start the rpc server
	rpcServer.Start()
	// block until a kill signal is received
	waitForKill()
	cancel()
	// gracefully stop the rpc server
	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	rpcServer.Stop(shutdown)
	// gracefully stop the app
	app.Stop()
	// gracefully stop the metrics server
	metrics.Stop()
	if e := group.Wait(); e != nil {
		l.Error(e.Error())
	}
	// exit
	os.Exit(0)
}

// runEpochs() advances the simulated venue clock until the context is cancelled
func runEpochs(ctx context.Context, sim *venue.Simulator, every time.Duration) error {
	if every <= 0 {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sim.AdvanceEpochs(1)
		}
	}
}

// waitForKill() blocks until a kill signal is received
func waitForKill() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	// block until kill signal is received
	s := <-stop
	l.Infof("Exit command %s received", s)
}

// InitializeDataDirectory() populates the data directory with the configuration file if missing
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config) {
	// make the data dir if missing
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		log.Fatal(err.Error())
	}
	// make the config.json file if missing
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			log.Fatal(err.Error())
		}
	}
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		log.Fatal(err.Error())
	}
	c.DataDirPath = dataDirPath
	return
}

// writeToConsole() prints a result or exits with its error
func writeToConsole(a any, err lib.ErrorI) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch v := a.(type) {
	case string:
		fmt.Println(v)
	case json.RawMessage:
		var j any
		if e := json.Unmarshal(v, &j); e != nil {
			fmt.Println(string(v))
			return
		}
		writeToConsole(j, nil)
	default:
		s, e := lib.MarshalJSONIndentString(a)
		if e != nil {
			l.Fatal(e.Error())
		}
		fmt.Println(s)
	}
}

// near() formats a yocto NEAR amount as whole NEAR with thousands separators
func near[D lib.Denomination](amount lib.Amount[D]) string {
	return message.NewPrinter(language.English).Sprintf("%.6f", amount.Float64()/1e24)
}

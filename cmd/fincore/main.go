package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edupay/fincore/config"
)

const version = "0.1.0"

// Cli wraps the root cobra command.
type Cli struct {
	cmd *cobra.Command
}

type appState struct {
	cnf *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration before any command executes. Commands read the
// loaded config through config.Fetch.
func preRun(app *appState) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig("fincore.json"); err != nil {
			log.Fatal("error loading config: ", err)
		}
		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

func NewCLI() *Cli {
	var app appState

	rootCmd := &cobra.Command{
		Use:               "fincore",
		Short:             "ledger and reservation core for the edupay platform",
		PersistentPreRunE: preRun(&app),
	}
	rootCmd.AddCommand(migrateCommands(&app))
	rootCmd.AddCommand(versionCommands())

	return &Cli{cmd: rootCmd}
}

func versionCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the fincore version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fincore", version)
		},
	}
}

func (c Cli) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	NewCLI().executeCLI()
}

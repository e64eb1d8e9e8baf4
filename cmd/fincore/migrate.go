package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/edupay/fincore/database"
)

// migrateCommands creates the schema management command. The schema is
// idempotent CREATE IF NOT EXISTS statements, so re-running migrate against
// an up-to-date database is a no-op.
func migrateCommands(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the fincore schema",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := database.ConnectDB(app.cnf.DataSource.Dns)
			if err != nil {
				log.Fatalf("migration failed: %v", err)
			}
			defer func() { _ = db.Close() }()
			fmt.Println("fincore schema is up to date")
		},
	}
}

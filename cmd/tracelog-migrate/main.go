// cmd/tracelog-migrate/main.go
package main

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/muizidn/cs-ai-help-admin-management/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{Use: "tracelog-migrate"}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the execution_logs schema of the PostgreSQL backend",
	Run: func(cmd *cobra.Command, args []string) {
		connStr, _ := cmd.Flags().GetString("db")
		source, _ := cmd.Flags().GetString("source")
		down, _ := cmd.Flags().GetBool("down")
		if connStr == "" {
			cfg, err := config.Load(func(c *config.Config) { c.StoreBackend = config.BackendPostgres })
			if err != nil {
				fmt.Println("Error: --db flag, DATABASE_URL or complete DB_* env vars (DB_USERNAME, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME) required")
				os.Exit(1)
			}
			connStr = cfg.PostgresDSN
		}

		m, err := migrate.New(source, connStr)
		if err != nil {
			fmt.Printf("Failed to initialize migrations: %v\n", err)
			os.Exit(1)
		}
		if down {
			err = m.Down()
		} else {
			err = m.Up()
		}
		if err != nil && err != migrate.ErrNoChange {
			fmt.Printf("Failed to apply migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully")
	},
}

func main() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("db", "", "Database connection string (optional if DATABASE_URL or DB_* env vars are set)")
	migrateCmd.Flags().String("source", "file://migrations", "Migration source URL")
	migrateCmd.Flags().Bool("down", false, "Roll back every migration")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

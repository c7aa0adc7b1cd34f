package main

import (
	"fmt"
	"os"

	"github.com/muizidn/cs-ai-help-admin-management/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tracelog",
	Short: "Inspect AI execution logs",
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

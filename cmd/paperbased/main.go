package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperbase-ai/paperbase/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paperbased",
		Short: "Paperbase daemon and admin CLI",
		Long:  "Paperbase daemon for running the API server and managing users and the vector index",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.IndexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

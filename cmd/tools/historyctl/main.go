package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	driverFlag string
	pathFlag   string
	rootCmd    = &cobra.Command{
		Use:          "historyctl",
		Short:        "Inspect and maintain persisted interaction history",
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&driverFlag, "driver", "d", envOr("LEXDESK_STORAGE_DRIVER", "file"), "Storage driver (file, bolt, sqlite)")
	rootCmd.PersistentFlags().StringVarP(&pathFlag, "path", "p", envOr("LEXDESK_STORAGE_PATH", "data/history"), "Storage path")

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored history keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(cmd.Context(), openAdapter, cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(keysCmd)

	listCmd := &cobra.Command{
		Use:   "list <feature>",
		Short: "List the records of a feature, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runList(cmd.Context(), openAdapter, args[0], limit, cmd.OutOrStdout())
		},
	}
	listCmd.Flags().IntP("limit", "n", 20, "Maximum records to print (0 for all)")
	rootCmd.AddCommand(listCmd)

	exportCmd := &cobra.Command{
		Use:   "export <feature>",
		Short: "Write a feature's history as indented JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return runExport(cmd.Context(), openAdapter, args[0], out, cmd.OutOrStdout())
		},
	}
	exportCmd.Flags().StringP("out", "o", "", "Output file (defaults to the feature's export name, - for stdout)")
	rootCmd.AddCommand(exportCmd)

	clearCmd := &cobra.Command{
		Use:   "clear <feature>",
		Short: "Delete a feature's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			return runClear(cmd.Context(), openAdapter, args[0], cmd.OutOrStdout())
		},
	}
	clearCmd.Flags().BoolP("yes", "y", false, "Confirm the deletion")
	rootCmd.AddCommand(clearCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

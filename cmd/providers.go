package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provider-cli/internal/store"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect stored provider records",
}

// -- providers list --

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored providers, most recently updated first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		statusFlag, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		status, err := parseStatus(statusFlag)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		providers, err := st.ListProviders(ctx, store.ProviderFilter{Status: status, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "providers list")
		}

		if len(providers) == 0 {
			fmt.Fprintln(os.Stderr, "No providers found.")
			return nil
		}

		formatProvidersList(os.Stdout, providers)
		return nil
	},
}

// -- providers show --

var providersShowCmd = &cobra.Command{
	Use:   "show <npi>",
	Short: "Show a stored provider record with its audit log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.GetProvider(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "providers show")
		}
		return writeJSON(os.Stdout, p)
	},
}

func init() {
	providersListCmd.Flags().String("status", "", "filter by final status (APPROVED, NEEDS_REVIEW, REJECTED)")
	providersListCmd.Flags().Int("limit", 50, "max number of providers to display")

	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersShowCmd)
	rootCmd.AddCommand(providersCmd)
}

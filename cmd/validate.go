package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provider-cli/internal/config"
	"github.com/sells-group/provider-cli/internal/model"
)

var (
	validateInput model.Provider
	validateEnv   envOptions
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run one provider record through the pipeline",
	Long:  "Processes a single provider given on the command line, stores the final record, and prints the full result as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runValidate(cmd.Context(), validateInput, validateEnv, os.Stdout)
	},
}

func runValidate(ctx context.Context, in model.Provider, opts envOptions, out io.Writer) error {
	if in.NPI == "" && in.Name == "" {
		return eris.New("validate: --npi or --name is required")
	}

	env, err := initPipeline(ctx, config.ModeOnline, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	return writeJSON(out, env.Pipeline.ProcessProvider(ctx, in))
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateInput.NPI, "npi", "", "10-digit NPI")
	f.StringVar(&validateInput.Name, "name", "", "provider name")
	f.StringVar(&validateInput.Phone, "phone", "", "phone number")
	f.StringVar(&validateInput.Email, "email", "", "email address")
	f.StringVar(&validateInput.Address, "address", "", "street address")
	f.StringVar(&validateInput.City, "city", "", "city")
	f.StringVar(&validateInput.State, "state", "", "state")
	f.StringVar(&validateInput.Zip, "zip", "", "zip code")
	f.StringVar(&validateInput.Specialty, "specialty", "", "existing specialty, if any")
	addEnvFlags(validateCmd, &validateEnv)
	rootCmd.AddCommand(validateCmd)
}

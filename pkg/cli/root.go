// Package cli implements the synth command-line interface for the SynthLab
// workspace API.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"synthlab/pkg/client"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host      string
		principal string
		output    string
		profile   string
	)

	rootCmd := &cobra.Command{
		Use:           "synth",
		Short:         "SynthLab workspace CLI",
		Long:          "Command-line interface for the SynthLab synthetic-dataset workspace API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVar(&principal, "principal", "", "Principal name recorded in the audit log")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")

	c := client.New(host)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// Load config from profile if flags/env not set. The file is optional.
		cfg, err := LoadUserConfig()
		if err != nil {
			cfg = &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
		}
		prof := cfg.ActiveProfile(profile)

		// Precedence: flag > env > profile > default.
		host = resolveSetting(cmd.Flags(), "host", "SYNTH_HOST", prof.Host, host)
		principal = resolveSetting(cmd.Flags(), "principal", "SYNTH_PRINCIPAL", prof.Principal, principal)
		output = resolveSetting(cmd.Flags(), "output", "SYNTH_OUTPUT", prof.Output, output)
		if err := validateOutputFormat(output); err != nil {
			return err
		}

		c.BaseURL = host
		c.Principal = principal
		return nil
	}

	rootCmd.AddCommand(newDatasetsCmd(c))
	rootCmd.AddCommand(newStepsCmd(c))
	rootCmd.AddCommand(newPreviewCmd(c))
	rootCmd.AddCommand(newSourceCmd(c))
	rootCmd.AddCommand(newApplyCmd(c))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// resolveSetting applies the flag > env > profile > default precedence for
// one persistent setting. current holds the flag value, which doubles as the
// built-in default when nothing else overrides it.
func resolveSetting(flags *pflag.FlagSet, name, envVar, profileVal, current string) string {
	if flags.Changed(name) {
		return current
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if profileVal != "" {
		return profileVal
	}
	return current
}

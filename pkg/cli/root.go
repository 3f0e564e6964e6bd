// Package cli implements the mockidp command-line interface.
package cli

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "mockidp",
	Short: "Mock OpenID Connect identity provider for integration tests",
	Long: `mockidp serves the discovery endpoints (JWKS, OpenID configuration) a
relying party needs to validate tokens, and issues arbitrarily shaped
signed access tokens on demand - without running a real identity
provider.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

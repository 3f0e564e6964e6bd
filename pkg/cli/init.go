package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mockidp/mockidp/pkg/config"
)

var initFlags struct {
	output string
	force  bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initFlags.output, "output", "o", "mockidp.yaml", "path of the configuration file to write")
	initCmd.Flags().BoolVarP(&initFlags.force, "force", "f", false, "overwrite an existing file")
}

func runInit(_ *cobra.Command, _ []string) error {
	if !initFlags.force {
		if _, err := os.Stat(initFlags.output); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", initFlags.output)
		}
	}

	portStr := "8000"
	realm := "master"
	algorithm := "RS256"
	useTLS := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Port").
				Value(&portStr).
				Validate(func(s string) error {
					port, err := strconv.Atoi(s)
					if err != nil || port < 0 || port > 65535 {
						return errors.New("port must be a number between 0 and 65535")
					}
					return nil
				}),
			huh.NewInput().
				Title("Realm").
				Value(&realm).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("realm is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Signing algorithm").
				Options(huh.NewOptions("RS256", "ES256", "HS256")...).
				Value(&algorithm),
			huh.NewConfirm().
				Title("Serve over TLS (self-signed certificate)?").
				Value(&useTLS),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}

	cfg := config.DefaultServerConfig()
	cfg.Port = port
	cfg.Realm = realm
	cfg.Algorithm = algorithm
	cfg.TLS = useTLS
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(initFlags.output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", initFlags.output, err)
	}

	fmt.Printf("Created %s\n", initFlags.output)
	return nil
}

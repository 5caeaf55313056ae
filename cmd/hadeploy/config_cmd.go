package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage hadeploy configuration. Subcommands allow viewing the loaded
configuration and generating a starter config file.`,
		Example: `  hadeploy config show
  hadeploy config init`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration in YAML format, after defaults and
validation have been applied.`,
		Example: `  hadeploy config show
  hadeploy config show --config /etc/hadeploy/hadeploy.yaml`,
		RunE: configShowRun,
	}

	return cmd
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println(string(data))

	return nil
}

var configInitForce bool

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Write a commented starter config file. The default path is hadeploy.yaml
in the current directory. Existing files are not overwritten unless
--force is given.`,
		Example: `  hadeploy config init
  hadeploy config init /etc/hadeploy/hadeploy.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: configInitRun,
	}

	cmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	return cmd
}

const starterConfig = `# hadeploy configuration
target:
  host: homeassistant.local
  port: 22
  user: hass
  # key_path: ~/.ssh/id_ed25519
  # known_hosts: ~/.ssh/known_hosts
  # strict_host_key: true
  sudo: true
  connect_timeout: 30s

artifacts:
  - name: dashboard
    local_path: dashboards/plants.yaml
    remote_path: /config/dashboards/plants.yaml
    backup: true
  - name: plants-integration
    local_path: custom_components/plants
    remote_path: /config/custom_components/plants
    backup: true

api:
  # env file providing HA_URL and HA_TOKEN
  env_file: .env
  restart: true

staging:
  remote_dir: .hadeploy/staging

history:
  # db_path: ~/.local/share/hadeploy/hadeploy.db
`

func configInitRun(cmd *cobra.Command, args []string) error {
	path := "hadeploy.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if !configInitForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}

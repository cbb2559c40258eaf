// Package cli implements the agenthub command line: serving the HTTP API,
// listing the agent registry and printing the version.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/fialabdata/agenthub/internal/common/logtrace"
	"github.com/fialabdata/agenthub/internal/hub/agents"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/memory"
	"github.com/fialabdata/agenthub/internal/hub/server"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agenthub [command] [flags]",
		Short: "agenthub - routes chat requests to third-party backed agents",
		Long: `agenthub serves an HTTP API that routes chat requests to one of several agents,
each backed by a third-party service (OpenAI, Firecrawl, Pinecone, Flowise, MCP tool
servers), and keeps a short conversation memory per session and agent.

Examples:
  # Start the server with the built-in defaults
  agenthub serve

  # Start the server with a configuration file
  agenthub serve --config /etc/agenthub/agenthub.conf

  # Show which agents are available with the current credentials
  agenthub agents`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to the configuration file; defaults are used when empty")
	root.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAgentsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command. It is called once by main.main.
func Execute() {
	rootCmd := newRootCmd()
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// hub is everything built from the configuration at startup.
type hub struct {
	cfg        *config.ConfigParam
	creds      config.Credentials
	dispatcher *dispatcher.Dispatcher
}

// setup loads the configuration and credentials, initializes logging and builds
// the agent registry.
func setup(configFile string) (*hub, error) {
	if err := config.LoadConfig(configFile); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	cfg := config.Config()
	logtrace.InitLogger(cfg.LogLevel)

	creds, err := config.LoadCredentials(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	d, err := agents.Build(cfg, creds, memory.NewStore(cfg.Memory.Capacity), server.Version)
	if err != nil {
		return nil, fmt.Errorf("building agent registry: %w", err)
	}
	return &hub{cfg: cfg, creds: creds, dispatcher: d}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of agenthub",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version":        server.Version,
					"config_version": config.ConfigFormatVersion,
				})
				return
			}
			cmd.Printf("agenthub %s\n", server.Version)
			cmd.Printf("Config format: %s\n", config.ConfigFormatVersion)
		},
	}
}

// printJSON prints data as indented JSON to stdout.
func printJSON(data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

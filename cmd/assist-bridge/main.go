// Command assist-bridge runs the bridge between Home Assistant and
// Vertex AI-hosted Claude and Gemini models.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "assist-bridge",
		Short: "Bridge between Home Assistant and Vertex AI models",
		Long: `assist-bridge exposes conversation, speech synthesis, transcription
and AI task endpoints backed by Claude and Gemini models on Vertex AI,
with user-defined custom tools dispatched as Home Assistant services.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A local .env may carry tokens and project settings
			if err := godotenv.Load(); err == nil {
				log.Println("Loaded environment from .env")
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the bridge config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, err := buildBridge(cmd.Context(), configPath)
			if err != nil {
				return err
			}

			shutdown := make(chan struct{})
			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
				<-sig
				close(shutdown)
			}()

			return bridge.Server.ListenAndServeWithGracefulShutdown(shutdown)
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file, credentials and custom tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := validateSetup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			for _, line := range report {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the parsed custom tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTools(configPath)
		},
	}
}

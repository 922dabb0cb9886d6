package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeyupan/autonotes/config"
	srv "github.com/zeyupan/autonotes/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "autonotes"}

	var serveAddr string
	var configPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if serveAddr == "" {
				serveAddr = os.Getenv("AUTONOTES_HTTP_ADDR")
			}
			return srv.Run(serveAddr, cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to general.listen)")
	serve.Flags().StringVar(&configPath, "config", "", "path to config file")

	var checkConfigPath string
	var checkConfig = &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(checkConfigPath)
			if err != nil {
				return err
			}
			fmt.Printf("config ok: %d providers, note=%s structuring=%s network=%s\n",
				len(cfg.LLM.Providers), cfg.LLM.Routing.Note, cfg.LLM.Routing.Structuring, cfg.LLM.Routing.Network)
			return nil
		},
	}
	checkConfig.Flags().StringVar(&checkConfigPath, "config", "", "path to config file")

	root.AddCommand(serve, checkConfig)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

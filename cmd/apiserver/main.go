package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cnst.CommandName, version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:          cnst.CommandName,
		Short:        "SyncWave CRM API server",
		Long:         `SyncWave CRM API server manages companies, contacts and WhatsApp campaigns`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.ApiServerYaml, "path to configuration file")
	rootCmd.AddCommand(versionCmd, createMasterCmd, listCompaniesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

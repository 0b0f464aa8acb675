package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var accountsServer string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List live accounts on a managed server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		reg, cleanup, err := buildRegistrar(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		accounts, err := reg.Accounts(accountsServer)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tNICKNAME\tTYPE\tRIGHTS")
		for _, acc := range accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", acc.Username, acc.Nickname, acc.Type, acc.Rights)
		}
		return w.Flush()
	},
}

func init() {
	accountsCmd.Flags().StringVar(&accountsServer, "server", "", "managed server name")
	_ = accountsCmd.MarkFlagRequired("server")
	rootCmd.AddCommand(accountsCmd)
}

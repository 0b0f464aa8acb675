package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var pendingServer string

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List registrations waiting for approval",
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

		entries, err := reg.Pending(pendingServer)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSERVER\tUSERNAME\tQUEUED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, e.ServerName, e.Account.Username, e.QueuedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	pendingCmd.Flags().StringVar(&pendingServer, "server", "", "filter by managed server name")
	rootCmd.AddCommand(pendingCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var acceptCmd = &cobra.Command{
	Use:   "accept <key>",
	Short: "Approve a pending registration by its key",
	Args:  cobra.ExactArgs(1),
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

		username, err := reg.Accept(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("account %q created\n", username)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <key>",
	Short: "Drop a pending registration without creating the account",
	Args:  cobra.ExactArgs(1),
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

		if err := reg.Reject(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("entry removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(rejectCmd)
}

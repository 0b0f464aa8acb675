package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avoronkov/vcadmin/internal/register"
)

var registerFlags register.Request

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an account on a managed server",
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

		res, err := reg.Register(cmd.Context(), registerFlags)
		if err != nil {
			return err
		}

		switch res.Status {
		case register.StatusCreated:
			fmt.Printf("account %q created on %q\n", res.Username, registerFlags.Server)
		case register.StatusPending:
			fmt.Printf("account %q queued for approval on %q\n", res.Username, registerFlags.Server)
			fmt.Printf("approval key: %s\n", res.Key)
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerFlags.Server, "server", "", "managed server name")
	registerCmd.Flags().StringVar(&registerFlags.Username, "username", "", "account username")
	registerCmd.Flags().StringVar(&registerFlags.Password, "password", "", "account password")
	registerCmd.Flags().StringVar(&registerFlags.Nickname, "nickname", "", "account nickname")
	registerCmd.Flags().BoolVar(&registerFlags.Direct, "direct", false, "create the account immediately, skipping premoderation")
	_ = registerCmd.MarkFlagRequired("server")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("password")
	_ = registerCmd.MarkFlagRequired("nickname")
	rootCmd.AddCommand(registerCmd)
}

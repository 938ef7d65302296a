package cmd

import (
	"fmt"

	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/broker/api"
	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/view"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List, add and remove trading accounts",
	Long: `Manage the trading accounts held by the backend.

Subcommands:
  list    - List accounts and their connection status
  add     - Register a broker account
  remove  - Delete an account

Examples:
  acctdash accounts list
  acctdash accounts add --login 1001 --server Demo-1 --password secret
  acctdash accounts remove <account-id>`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a broker account",
	Args:  cobra.NoArgs,
	RunE:  runAccountsAdd,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

var (
	accountsPlain bool
	addReq        broker.CreateAccountRequest
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsAddCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)

	accountsListCmd.Flags().BoolVar(&accountsPlain, "plain", false, "print markdown without styling")

	accountsAddCmd.Flags().StringVar(&addReq.Login, "login", "", "broker login")
	accountsAddCmd.Flags().StringVar(&addReq.Server, "server", "", "broker server")
	accountsAddCmd.Flags().StringVar(&addReq.Password, "password", "", "broker password")
	accountsAddCmd.Flags().StringVar(&addReq.Name, "name", "", "display name")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	_, c, err := authedClient(cmd.Context())
	if err != nil {
		return err
	}

	accts, err := c.ListAccounts(cmd.Context())
	if err != nil {
		return userError("list accounts", err)
	}

	md := view.Markdown(dashboard.State{Accounts: accts})
	if accountsPlain {
		fmt.Print(md)
		return nil
	}
	out, err := view.Render(md, "", 100)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	// fail on missing fields before touching the session or the network
	if err := api.ValidateCreate(addReq); err != nil {
		return err
	}

	_, c, err := authedClient(cmd.Context())
	if err != nil {
		return err
	}

	a, err := c.CreateAccount(cmd.Context(), addReq)
	if err != nil {
		return userError("add account", err)
	}

	fmt.Printf("✓ Added account %s (%s on %s)\n", a.ID, a.Info.Login, a.Info.Server)
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	_, c, err := authedClient(cmd.Context())
	if err != nil {
		return err
	}

	if err := c.DeleteAccount(cmd.Context(), args[0]); err != nil {
		return userError("remove account", err)
	}
	fmt.Printf("✓ Removed account %s\n", args[0])
	return nil
}

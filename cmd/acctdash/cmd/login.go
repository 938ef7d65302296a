package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the backend",
	Long: `Authenticate with the operator's email and password and store the
session for later commands.

The password may also be supplied through ACCTDASH_PASSWORD.

Example:
  acctdash login --email ops@example.com --password secret`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var (
	loginEmail    string
	loginPassword string
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "operator email (required)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "operator password")
	loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginPassword == "" {
		loginPassword = os.Getenv("ACCTDASH_PASSWORD")
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	c, err := newClient(nil)
	if err != nil {
		return err
	}

	res, err := c.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return userError("login failed", err)
	}

	s.SetLogin(loginEmail, res.Token, res.Cookies)
	if err := s.Save(); err != nil {
		return err
	}

	fmt.Printf("✓ Logged in as %s\n", loginEmail)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	if s.LoggedIn {
		c, err := newClient(s)
		if err != nil {
			return err
		}
		if err := c.Logout(cmd.Context()); err != nil {
			// the local session is dropped regardless
			slog.Warn("backend logout failed", "err", err)
		}
	}

	if err := s.Clear(); err != nil {
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	adminauth "github.com/hallgate/adminauth"
	"github.com/hallgate/adminauth/password"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Provision administrative accounts in the configured credential store. Accounts are never created through the HTTP API.",
	}

	cmd.AddCommand(newAdminCreateCmd())

	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		email string
		pw    string
		super bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Example: `  adminauthd admin create --email admin@example.com --password secret
  adminauthd admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, pw, super)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&pw, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().BoolVar(&super, "super", false, "Grant super-admin privilege")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, pw string, super bool) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if pw == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		pw = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if pw != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(pw) < 12 {
		return fmt.Errorf("password must be at least 12 characters")
	}

	backend, err := openBackend()
	if err != nil {
		return err
	}
	defer backend.close()

	hasher, err := password.New(engineConfig().Password)
	if err != nil {
		return fmt.Errorf("init password hasher: %w", err)
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cred := &adminauth.AdminCredential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      true,
		IsSuperAdmin: super,
	}
	if err := backend.provision(context.Background(), cred); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	fmt.Printf("Created admin account %q (%s)\n", email, cred.UserID)
	return nil
}

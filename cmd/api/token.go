package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/domain"
)

var (
	tokenStaffID string
	tokenRole    string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a staff access token for scripts and operations",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenStaffID, "staff-id", "", "staff member id (uuid)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.StaffRoleAdmin), "admin or callcentre")
	_ = tokenCmd.MarkFlagRequired("staff-id")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if _, err := uuid.Parse(tokenStaffID); err != nil {
		return fmt.Errorf("--staff-id: %w", err)
	}
	role := domain.StaffRole(strings.ToLower(tokenRole))
	if !role.Valid() {
		return fmt.Errorf("--role must be admin or callcentre, got %q", tokenRole)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(tokenStaffID, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

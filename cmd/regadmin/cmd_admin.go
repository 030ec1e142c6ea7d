package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

var seedFlags struct {
	email    string
	password string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed canonical spheres and the first super admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.SeedSpheres(db.Conn()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d canonical sphere(s).\n", len(db.CanonicalSpheres))

		if seedFlags.email == "" {
			return nil
		}
		var existing models.User
		err := db.Conn().
			Where("email = ? AND role = ?", seedFlags.email, models.RoleSuperAdmin).
			First(&existing).Error
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Super admin %s already exists (ID %d).\n", existing.Email, existing.ID)
			return nil
		}

		password := seedFlags.password
		if password == "" {
			b := make([]byte, 12)
			if _, err := rand.Read(b); err != nil {
				return err
			}
			password = hex.EncodeToString(b)
		}
		if len(password) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.User{
			Email:    strings.TrimSpace(seedFlags.email),
			Password: string(hash),
			Role:     models.RoleSuperAdmin,
			IsActive: true,
		}
		if err := db.Conn().Create(&admin).Error; err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created super admin %s (ID %d).\n", admin.Email, admin.ID)
		if seedFlags.password == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Generated password: %s\n", password)
		}
		return nil
	},
}

var resetPwFlags struct {
	email    string
	password string
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-admin-password",
	Short: "Reset an admin's password and revoke their API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetPwFlags.email == "" {
			return fmt.Errorf("--email is required")
		}
		if len(resetPwFlags.password) < 8 {
			return fmt.Errorf("--password must be at least 8 characters")
		}
		var admin models.User
		err := db.Conn().
			Where("email = ? AND role IN ?", strings.TrimSpace(resetPwFlags.email),
				[]string{models.RoleAdmin, models.RoleSuperAdmin}).
			First(&admin).Error
		if err != nil {
			return fmt.Errorf("no admin account with email %q", resetPwFlags.email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(resetPwFlags.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		err = db.Conn().Model(&admin).
			Updates(map[string]any{"password": string(hash), "api_token": ""}).Error
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s (ID %d); existing sessions revoked.\n",
			admin.Email, admin.ID)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.email, "email", "", "create a super admin with this email")
	seedCmd.Flags().StringVar(&seedFlags.password, "password", "", "super admin password (default: generated)")
	resetPasswordCmd.Flags().StringVar(&resetPwFlags.email, "email", "", "admin account email")
	resetPasswordCmd.Flags().StringVar(&resetPwFlags.password, "password", "", "new password")

	rootCmd.AddCommand(seedCmd, resetPasswordCmd)
}

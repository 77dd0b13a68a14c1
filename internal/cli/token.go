package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
)

// NewTokenCmd mints a bearer token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			raw, err := issueToken(cfg, user, domain.Role(strings.ToUpper(role)), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), raw)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "username placed in the token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "USER or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(cfg config.Config, user string, role domain.Role, ttl time.Duration) (string, error) {
	if cfg.Auth.JWTSecret == "" {
		return "", fmt.Errorf("auth.jwt_secret not configured")
	}
	if ttl <= 0 {
		ttl = config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	}
	return auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(user, role, ttl)
}

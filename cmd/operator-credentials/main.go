// Command operator-credentials hashes the operator secret for OPERATOR_SECRET_HASH and
// mints long-lived integration tokens signed with JWT_SECRET.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/auth"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

const (
	// MinSecretLength is the minimum operator secret length requirement
	MinSecretLength = 12
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasNumber = regexp.MustCompile(`[0-9]`)
)

type tokenEnv struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

func main() {
	secret := flag.String("secret", "", "Operator secret to hash (min 12 chars, letters and numbers)")
	mint := flag.Bool("mint", false, "Mint a token instead of hashing a secret (needs JWT_SECRET)")
	subject := flag.String("subject", "", "Token subject, e.g. the integration name")
	role := flag.String("role", auth.RoleIntegrator, "Token role: integrator or operator")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "Token lifetime")
	flag.Parse()

	var (
		out string
		err error
	)
	if *mint {
		out, err = mintToken(*subject, *role, *ttl)
	} else {
		out, err = hashSecret(*secret)
	}
	if err != nil {
		telemetry.Logger.Error("operator_credentials_failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func hashSecret(secret string) (string, error) {
	if err := validateSecret(secret); err != nil {
		return "", fmt.Errorf("validation error: %w", err)
	}
	return auth.HashSecret(secret)
}

func mintToken(subject, role string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	roles, err := rolesFor(role)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	var cfg tokenEnv
	if err := env.Parse(&cfg); err != nil {
		return "", fmt.Errorf("failed to read environment: %w", err)
	}
	jm, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		return "", err
	}
	return jm.GenerateToken(context.Background(), subject, roles, ttl)
}

// validateSecret enforces the operator secret strength requirements
func validateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("secret must be at least %d characters long", MinSecretLength)
	}
	if !hasLetter.MatchString(secret) || !hasNumber.MatchString(secret) {
		return fmt.Errorf("secret must contain at least one letter and one number")
	}
	return nil
}

func rolesFor(role string) ([]string, error) {
	switch role {
	case auth.RoleOperator:
		return []string{auth.RoleOperator, auth.RoleIntegrator}, nil
	case auth.RoleIntegrator:
		return []string{auth.RoleIntegrator}, nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/fatih/color"
	"github.com/jrsteele09/member-portal/credentials"
	"github.com/jrsteele09/member-portal/identity"
	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

const bootstrapAdminName = "System Administrator"

// InitialiseSystem creates the bootstrap operator named by
// BOOTSTRAP_ADMIN_SIGLA when it does not exist yet. An existing operator is
// never modified. A generated secret is printed once.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	sigla := identity.NormalizeSigla(s.config.GetBootstrapAdminSigla())
	if sigla == "" {
		return nil
	}
	if !identity.ValidSigla(sigla) {
		return fmt.Errorf("[Server InitialiseSystem] invalid bootstrap sigla %q: %w", sigla, apperrors.ErrInvalidRequest)
	}

	existing, err := s.repos.Admins.GetBySigla(ctx, sigla)
	switch {
	case err == nil && existing != nil:
		log.Info().Str("sigla", sigla).Msg("bootstrap operator already exists")
		return nil
	case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("[Server InitialiseSystem] failed to look up bootstrap operator: %w", err)
	}

	secret := s.config.GetBootstrapAdminSecret()
	generated := secret == ""
	if generated {
		if secret, err = generateSecret(); err != nil {
			return fmt.Errorf("[Server InitialiseSystem] %w", err)
		}
	}

	hash, err := credentials.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to hash secret: %w", err)
	}

	admin := &credentials.Admin{
		Sigla:      sigla,
		Name:       bootstrapAdminName,
		Role:       identity.NormalizeRole(s.config.GetBootstrapAdminRole()),
		SecretHash: hash,
		Active:     true,
	}
	if err := s.repos.Admins.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to create bootstrap operator: %w", err)
	}

	log.Info().Str("sigla", sigla).Str("role", admin.Role).Msg("bootstrap operator created")
	if generated {
		fmt.Println()
		fmt.Println(color.New(color.Bold).Sprint("Bootstrap operator"))
		fmt.Printf("   Base URL:  %s\n", s.config.GetBaseURL())
		fmt.Printf("   Sigla:     %s\n", sigla)
		fmt.Printf("   Role:      %s\n", admin.Role)
		fmt.Printf("   Password:  %s\n", color.YellowString(secret))
		fmt.Println(color.RedString("   Save this password, it will not be displayed again."))
		fmt.Println()
	}
	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

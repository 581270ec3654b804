package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-edu-portal/navigation"
	"github.com/jrsteele09/go-edu-portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultAdminFullName = "Portal Administrator"

// Seeder is implemented by backends that store their own accounts.
type Seeder interface {
	SeedUser(ctx context.Context, email, password string, role users.RoleType, fullName string) (*users.User, bool, error)
}

// InitialiseSystem creates the configured admin account when the backend
// keeps its own users. A configured name without a domain is expanded from
// the base URL.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	adminUser := strings.TrimSpace(s.config.GetSeedAdminEmail())
	if adminUser == "" {
		return nil
	}
	seeder, ok := s.backend.(Seeder)
	if !ok {
		log.Info().Msg("auth backend manages its own accounts, skipping admin seed")
		return nil
	}

	email := adminUser
	if !strings.Contains(email, "@") {
		email = generateEmailFromBaseURL(adminUser, s.config.GetBaseURL())
	}

	password := s.config.GetSeedAdminPassword()
	generated := password == ""
	if generated {
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return errors.Wrap(err, "[Server InitialiseSystem] failed to generate password")
		}
		password = base64.URLEncoding.EncodeToString(passwordBytes)
	}

	admin, created, err := seeder.SeedUser(ctx, email, password, users.RoleAdmin, DefaultAdminFullName)
	if err != nil {
		return errors.Wrap(err, "[Server InitialiseSystem] failed to seed admin")
	}
	if !created {
		log.Debug().Str("email", admin.Email).Msg("admin account already exists")
		return nil
	}

	evt := log.Info().Str("email", admin.Email).Str("dashboard", s.config.GetBaseURL()+navigation.RouteDashboardAdmin)
	if generated {
		evt = evt.Str("password", password)
	}
	evt.Msg("admin account created")
	return nil
}

// generateEmailFromBaseURL creates an email address from a username and base URL
// Example: ("admin", "https://portal.example.com/path") -> "admin@portal.example.com"
func generateEmailFromBaseURL(user, baseURL string) string {
	domain := strings.ReplaceAll(strings.ReplaceAll(baseURL, "https://", ""), "http://", "")
	domain = strings.SplitN(domain, "/", 2)[0]
	domain = strings.SplitN(domain, ":", 2)[0]
	return fmt.Sprintf("%s@%s", user, domain)
}

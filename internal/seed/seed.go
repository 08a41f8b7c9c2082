// Package seed registers development accounts at startup.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
)

const (
	seedRetryAttempts = 3
	usersFileName     = "import/users.json"
)

var seedRetryDelay = 2 * time.Second

// SeedUser is one account in the users seed file.
type SeedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// usersFile is the JSON structure for the users seed file.
type usersFile struct {
	Users []SeedUser `json:"users"`
}

// DevUsers registers dev users from import/users.json. Already-registered
// accounts are not errors. Non-fatal: if the backend is unreachable after
// retries, logs a warning and returns.
func DevUsers(ctx context.Context, auth interfaces.AuthBackend, logger *common.Logger) {
	path := findUsersFile()
	if path == "" {
		logger.Warn().Msg("seed: import/users.json not found, skipping dev user seeding")
		return
	}
	Users(ctx, auth, path, logger)
}

// Users registers the accounts listed in the file at path.
func Users(ctx context.Context, auth interfaces.AuthBackend, path string, logger *common.Logger) {
	users, err := loadUsersFile(path)
	if err != nil {
		logger.Error().Str("error", err.Error()).Str("path", path).Msg("seed: failed to load users file")
		return
	}

	if len(users) == 0 {
		logger.Warn().Msg("seed: users file is empty, skipping dev user seeding")
		return
	}

	seedWithRetry(ctx, auth, users, logger)
}

// findUsersFile searches for import/users.json relative to the executable
// directory first, then falls back to the current working directory.
func findUsersFile() string {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), usersFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat(usersFileName); err == nil {
		return usersFileName
	}

	return ""
}

// loadUsersFile reads and parses the users JSON file.
func loadUsersFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var f usersFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	return f.Users, nil
}

// seedWithRetry attempts to seed users with retries.
func seedWithRetry(ctx context.Context, auth interfaces.AuthBackend, users []SeedUser, logger *common.Logger) {
	var err error
	for attempt := 1; attempt <= seedRetryAttempts; attempt++ {
		err = seedAll(ctx, auth, users, logger)
		if err == nil {
			logger.Info().Int("users", len(users)).Msg("seed: dev users seeded successfully")
			return
		}
		logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", seedRetryAttempts).
			Str("error", err.Error()).
			Msg("seed: failed to seed users, retrying")
		if attempt < seedRetryAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(seedRetryDelay):
			}
		}
	}

	logger.Warn().
		Int("attempts", seedRetryAttempts).
		Str("error", err.Error()).
		Msg("seed: failed to seed dev users after retries, continuing without seeding")
}

// seedAll registers each user, returning on the first error that is not a
// duplicate or an invalid entry.
func seedAll(ctx context.Context, auth interfaces.AuthBackend, users []SeedUser, logger *common.Logger) error {
	for _, u := range users {
		role, ok := models.ParseRole(u.Role)
		if !ok {
			logger.Warn().Str("username", u.Username).Str("role", u.Role).Msg("seed: unknown role, skipping user")
			continue
		}

		err := auth.Register(ctx, u.Username, u.Password, role)
		switch {
		case err == nil:
			logger.Debug().Str("username", u.Username).Msg("seed: registered user")
		case errors.Is(err, errs.ErrConflict):
			logger.Debug().Str("username", u.Username).Msg("seed: user already exists")
		case errors.Is(err, errs.ErrValidation):
			logger.Warn().Str("username", u.Username).Str("error", err.Error()).Msg("seed: invalid user, skipping")
		default:
			return fmt.Errorf("register %s: %w", u.Username, err)
		}
	}
	return nil
}

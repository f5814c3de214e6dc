package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/ussdgw/internal/auth"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/validation"
	"github.com/google/uuid"
)

// RegisterUser creates an account for the calling phone number.
// The plain password is cleared from the answers it returns.
func (s *Service) RegisterUser(ctx context.Context, answers map[string]string) (map[string]string, error) {
	out := map[string]string{KeyRegistrationPassword: ""}

	phone := validation.NormalizePhone(answers[domain.KeyPhone])
	name := strings.TrimSpace(answers[KeyRegistrationName])
	password := answers[KeyRegistrationPassword]

	if phone == "" || name == "" {
		out[KeyRegistrationStatus] = "Registration failed: missing name or phone number."
		return out, nil
	}
	if err := validation.Password(password); err != nil {
		out[KeyRegistrationStatus] = "Registration failed: " + err.Error()
		return out, nil
	}

	email := strings.TrimSpace(answers[KeyRegistrationEmail])
	if email == "0" {
		email = ""
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         name,
		Phone:        phone,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	err = s.users.CreateUser(ctx, u)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		out[KeyRegistrationStatus] = "Phone number already registered"
		return out, nil
	case err != nil:
		return nil, fmt.Errorf("store user: %w", err)
	}

	s.logger.Info("User registered", "user_id", u.ID)
	out[KeyRegistrationStatus] = fmt.Sprintf("Registration successful. Welcome, %s!", name)
	return out, nil
}

// Authenticate resolves the user registered for phone. A missing user is not
// an error: it returns nil so the dialog can offer registration.
func (s *Service) Authenticate(ctx context.Context, phone string) (*domain.User, error) {
	u, err := s.users.FindUserByPhone(ctx, validation.NormalizePhone(phone))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

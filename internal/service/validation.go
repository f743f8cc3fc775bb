package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"portfolio-server/internal/models"
	"portfolio-server/internal/security"

	"github.com/google/uuid"
)

const (
	maxNameLength     = 255
	maxUsernameLength = 255
)

// CreateUserInput describes a user to create.
type CreateUserInput struct {
	Email       string
	Username    string // defaults to the email local part plus a random suffix
	Name        string
	Password    string
	Role        string // defaults to models.RoleUser
	IsActive    *bool  // defaults to true
	IsSuperuser bool
}

func validateEmail(email string) (string, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", models.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email format", models.ErrInvalidInput)
	}
	return email, nil
}

func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", models.ErrInvalidInput)
	}
	return nil
}

func validateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username must not be empty", models.ErrInvalidInput)
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("%w: username is too long", models.ErrInvalidInput)
	}
	return username, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name is too long", models.ErrInvalidInput)
	}
	return name, nil
}

func validateRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", fmt.Errorf("%w: role must not be empty", models.ErrInvalidInput)
	}
	if len(role) > models.MaxRoleLength {
		return "", fmt.Errorf("%w: role is too long", models.ErrInvalidInput)
	}
	return role, nil
}

// defaultUsername derives a username from the local part of email plus a
// random suffix, so the full address never ends up reserved as a username.
func defaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func hashOrInvalid(hasher *security.Hasher, password string) (string, error) {
	digest, err := hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password is too long", models.ErrInvalidInput)
	}
	return digest, err
}

// buildUser validates in and returns a user ready to insert.
func buildUser(hasher *security.Hasher, in CreateUserInput) (*models.User, error) {
	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	username := in.Username
	if strings.TrimSpace(username) == "" {
		username = defaultUsername(email)
	}
	if username, err = validateUsername(username); err != nil {
		return nil, err
	}
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role, err = validateRole(role); err != nil {
		return nil, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	digest, err := hashOrInvalid(hasher, in.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Email:          email,
		Username:       username,
		Name:           name,
		Role:           role,
		HashedPassword: digest,
		IsActive:       active,
		IsSuperuser:    in.IsSuperuser,
	}, nil
}

// prepareUpdate validates upd and replaces a plaintext Password with its
// digest.
func prepareUpdate(hasher *security.Hasher, upd models.UserUpdate) (models.UserUpdate, error) {
	if upd.Email != nil {
		email, err := validateEmail(*upd.Email)
		if err != nil {
			return upd, err
		}
		upd.Email = &email
	}
	if upd.Username != nil {
		username, err := validateUsername(*upd.Username)
		if err != nil {
			return upd, err
		}
		upd.Username = &username
	}
	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return upd, err
		}
		upd.Name = &name
	}
	if upd.Role != nil {
		role, err := validateRole(*upd.Role)
		if err != nil {
			return upd, err
		}
		upd.Role = &role
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return upd, err
		}
		digest, err := hashOrInvalid(hasher, *upd.Password)
		if err != nil {
			return upd, err
		}
		upd.HashedPassword = &digest
		upd.Password = nil
	}
	return upd, nil
}

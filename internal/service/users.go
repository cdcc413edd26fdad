package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

// Users handles onboarding writes and credential checks.
type Users struct {
	store    store.Store
	logger   *slog.Logger
	hashCost int
}

// NewUsers binds the user service to st.
func NewUsers(st store.Store, opts ...Option) *Users {
	o := buildOptions(opts)
	cost := o.hashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Users{store: st, logger: o.logger, hashCost: cost}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdateFieldValue re-validates the value for its field type, normalises it
// and writes it to the target user's property.
func (u *Users) UpdateFieldValue(ctx context.Context, update account.FieldUpdate) (account.User, error) {
	prop, err := account.ParseProperty(update.UserProperty)
	if err != nil {
		return account.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !update.FieldType.Valid() {
		return account.User{}, &ValidationError{Property: string(prop), Message: fmt.Sprintf("Unsupported field type %q.", string(update.FieldType))}
	}
	result := validation.Validate(update.FieldType, false, update.Value)
	if !result.OK() {
		return account.User{}, &ValidationError{Property: string(prop), Message: result.Message}
	}

	value, err := u.storedValue(prop, result)
	if err != nil {
		return account.User{}, err
	}

	var updated account.User
	err = u.store.InTx(ctx, func(tx store.Tx) error {
		id := account.DemoUserID
		if email := normaliseEmail(update.Email); email != "" {
			target, err := tx.UserByEmail(ctx, email)
			if err != nil {
				return err
			}
			id = target.ID
		}
		if err := tx.SetUserProperty(ctx, id, prop, value); err != nil {
			return err
		}
		updated, err = tx.UserByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalid) {
			return account.User{}, &ValidationError{Property: string(prop), Message: "Value does not fit this property."}
		}
		return account.User{}, fmt.Errorf("service: update %s: %w", prop, err)
	}
	u.logger.Debug("user field updated", "user", updated.ID, "property", prop)
	return updated, nil
}

func (u *Users) storedValue(prop account.Property, result validation.Result) (any, error) {
	switch prop {
	case account.PropertyBirthdate:
		switch v := result.Value.(type) {
		case nil:
			return nil, nil
		case time.Time:
			return v, nil
		default:
			return nil, &ValidationError{Property: string(prop), Message: "Birthdate must be a valid date."}
		}
	case account.PropertyPassword:
		if result.Value == nil {
			return nil, &ValidationError{Property: string(prop), Message: "Password is required."}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(validation.Canonical(result)), u.hashCost)
		if err != nil {
			return nil, fmt.Errorf("service: hash password: %w", err)
		}
		return string(hash), nil
	case account.PropertyEmail:
		return normaliseEmail(validation.Canonical(result)), nil
	default:
		return validation.Canonical(result), nil
	}
}

// Authenticate verifies credentials. Unknown emails are registered with the
// given password; a known user without a password adopts it.
func (u *Users) Authenticate(ctx context.Context, email, password string) (account.AuthResult, error) {
	if res := validation.Validate(layout.FieldTypeEmail, true, strings.TrimSpace(email)); !res.OK() {
		return account.AuthResult{Message: res.Message}, nil
	}
	if res := validation.Validate(layout.FieldTypePassword, true, password); !res.OK() {
		return account.AuthResult{Message: res.Message}, nil
	}
	email = normaliseEmail(email)

	var result account.AuthResult
	err := u.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.UserByEmail(ctx, email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(password), u.hashCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if _, err := tx.CreateUser(ctx, account.User{Email: email, PasswordHash: string(hash)}); err != nil {
				return err
			}
			result = account.AuthResult{Success: true, Created: true}
			return nil
		case err != nil:
			return err
		}

		if existing.PasswordHash == "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), u.hashCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if err := tx.SetUserProperty(ctx, existing.ID, account.PropertyPassword, string(hash)); err != nil {
				return err
			}
			result = account.AuthResult{Success: true}
			return nil
		}
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
			result = account.AuthResult{Message: "Incorrect email or password."}
			return nil
		}
		result = account.AuthResult{Success: true}
		return nil
	})
	if err != nil {
		return account.AuthResult{}, fmt.Errorf("service: authenticate: %w", err)
	}
	u.logger.Info("authentication attempt", "email", email, "success", result.Success, "created", result.Created)
	return result, nil
}

// ListUsers returns every user ordered by creation time.
func (u *Users) ListUsers(ctx context.Context) ([]account.User, error) {
	users, err := u.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list users: %w", err)
	}
	return users, nil
}

// UserExists reports whether a user with email is registered.
func (u *Users) UserExists(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	_, err := u.store.UserByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("service: user exists: %w", err)
	}
	return true, nil
}

// UserByEmail returns the user registered under email.
func (u *Users) UserByEmail(ctx context.Context, email string) (account.User, error) {
	if strings.TrimSpace(email) == "" {
		return account.User{}, fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	user, err := u.store.UserByEmail(ctx, normaliseEmail(email))
	if err != nil {
		return account.User{}, fmt.Errorf("service: user by email: %w", err)
	}
	return user, nil
}

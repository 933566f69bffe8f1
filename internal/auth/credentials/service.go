package credentials

import (
	"context"
	"errors"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("account already exists")
)

// Service implements password sign-in against the same CMS list the OAuth
// flow links into. The bcrypt hash lives in a configured secret field of
// the record; there is no separate credentials table.
type Service struct {
	list        keystone.ListAPI
	emailField  string
	secretField string
}

func NewService(list keystone.ListAPI, emailField, secretField string) *Service {
	return &Service{
		list:        list,
		emailField:  emailField,
		secretField: secretField,
	}
}

func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	existing, err := s.list.FindMany(ctx, map[string]any{s.emailField: email}, "id")
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", ErrAlreadyRegistered
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	item, err := s.list.CreateOne(ctx, map[string]any{
		s.emailField:  email,
		s.secretField: hash,
	})
	if errors.Is(err, keystone.ErrDuplicate) {
		// Two registrations for the same email raced past the lookup;
		// the unique index on the email field catches the loser.
		return "", ErrAlreadyRegistered
	}
	if err != nil {
		return "", err
	}

	return keystone.StringID(item["id"]), nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (string, error) {

	items, err := s.list.FindMany(
		ctx,
		map[string]any{s.emailField: email},
		"id "+s.secretField,
	)
	if err != nil {
		return "", err
	}

	// hide whether the account exists or not
	if len(items) != 1 {
		return "", ErrInvalidCredentials
	}

	hash, _ := items[0][s.secretField].(string)
	if hash == "" {
		return "", ErrInvalidCredentials
	}
	if err := VerifyPassword(hash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return keystone.StringID(items[0]["id"]), nil
}

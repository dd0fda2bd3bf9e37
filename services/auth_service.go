package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/camden-git/signabackend/metrics"
	"github.com/camden-git/signabackend/models"
	"github.com/camden-git/signabackend/repository"
)

const authFailureDetail = "invalid username or password"

// AuthService registers people and authenticates their credentials.
type AuthService struct {
	useCase
	uow       repository.UnitOfWork
	passwords *PasswordService
	tokens    *TokenService
	dummyHash string
}

// NewAuthService wires the service. The dummy hash used for unknown users is
// computed here with the configured cost.
func NewAuthService(uow repository.UnitOfWork, passwords *PasswordService, tokens *TokenService, logger *slog.Logger, m *metrics.Metrics) *AuthService {
	s := &AuthService{
		useCase:   newUseCase(logger, m),
		uow:       uow,
		passwords: passwords,
		tokens:    tokens,
	}
	// compared against for unknown usernames so every failure costs one bcrypt run
	if hash, err := passwords.HashPassword("signa-unknown-user"); err == nil {
		s.dummyHash = hash
	}
	return s
}

// RegisterInput holds the person fields of a self registration.
type RegisterInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (in *RegisterInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
}

// Validate requires every field and an email containing "@".
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Surname, validation.Required),
		validation.Field(&in.Email, validation.Required, models.EmailRule),
		validation.Field(&in.Address, validation.Required),
	)
}

// Registration is the outcome of Register. Password is the plaintext
// generated for the new credential and is never stored.
type Registration struct {
	Person   *models.Person
	Password string
}

// Register creates a person and its credential in one unit of work.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.trim()

	var reg *Registration
	err := s.run("register", func() error {
		if err := in.Validate(); err != nil {
			return err
		}
		return s.uow.Do(ctx, func(stores repository.Stores) error {
			_, err := stores.People.GetByEmail(in.Email)
			switch {
			case err == nil:
				return duplicateEmail(in.Email)
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			person, plain, err := provisionPerson(stores, s.passwords, in.Name, in.Surname, in.Email, in.Address)
			if err != nil {
				return err
			}
			reg = &Registration{Person: person, Password: plain}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPeopleCreated()
	s.logger.Info("person registered", "person_id", reg.Person.ID)
	return reg, nil
}

// Authenticate returns the person owning the credential. Unknown users,
// inactive credentials and wrong passwords all fail with the same
// AuthenticationFailure detail. An outdated hash is upgraded on success.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Person, error) {
	var person *models.Person
	err := s.run("authenticate", func() error {
		failure := newError(KindAuthentication, authFailureDetail)
		username = strings.TrimSpace(username)
		if username == "" || password == "" {
			return failure
		}

		return s.uow.Do(ctx, func(stores repository.Stores) error {
			cred, err := stores.Credentials.GetByUsername(username)
			if errors.Is(err, repository.ErrNotFound) {
				s.passwords.VerifyPassword(password, s.dummyHash)
				return failure
			}
			if err != nil {
				return err
			}
			if !s.passwords.VerifyPassword(password, cred.Password) {
				return failure
			}

			if s.passwords.NeedsRehash(cred.Password) {
				s.rehash(stores, cred.ID, password)
			}

			p, err := stores.People.GetByEmail(cred.Username)
			if errors.Is(err, repository.ErrNotFound) {
				return failure
			}
			if err != nil {
				return err
			}
			person = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

func (s *AuthService) rehash(stores repository.Stores, credentialID uint, password string) {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "credential_id", credentialID, "error", err)
		return
	}
	if _, err := stores.Credentials.Update(credentialID, models.CredentialUpdate{Password: &hash}); err != nil {
		s.logger.Warn("failed to store rehashed password", "credential_id", credentialID, "error", err)
		return
	}
	s.logger.Info("password hash upgraded", "credential_id", credentialID)
}

// LoginResult is a signed token for an authenticated person.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Person    *models.Person
}

// Login authenticates and issues a bearer token for the person.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	person, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	var result *LoginResult
	err = s.run("issue_token", func() error {
		token, err := s.tokens.CreateToken(ClaimsFor(person))
		if err != nil {
			return err
		}
		result = &LoginResult{
			Token:     token,
			ExpiresAt: time.Now().Add(s.tokens.TTL()),
			Person:    person,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimsFor builds the token claims for person. The username is the email,
// which is what the credential was provisioned with.
func ClaimsFor(person *models.Person) Claims {
	return Claims{
		UserID:   person.ID,
		Username: person.Email,
		Name:     person.Name,
		Surname:  person.Surname,
		Email:    person.Email,
	}
}

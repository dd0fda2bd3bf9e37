package services

import (
	"errors"

	"github.com/camden-git/signabackend/models"
	"github.com/camden-git/signabackend/repository"
)

// provisionPerson creates an active person and its paired credential inside
// the caller's unit of work. The returned plaintext password exists only for
// one-time display.
func provisionPerson(stores repository.Stores, passwords *PasswordService, name, surname, email, address string) (*models.Person, string, error) {
	person, err := models.NewPerson(name, surname, email, address)
	if err != nil {
		return nil, "", err
	}
	if err := stores.People.Create(person); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", duplicateEmail(email)
		}
		return nil, "", err
	}

	plain, err := passwords.GenerateRandomPassword(0)
	if err != nil {
		return nil, "", err
	}
	hash, err := passwords.HashPassword(plain)
	if err != nil {
		return nil, "", err
	}

	credential, err := models.NewCredential(person, hash)
	if err != nil {
		return nil, "", err
	}
	if err := stores.Credentials.Create(credential); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", duplicateEmail(email)
		}
		return nil, "", err
	}
	return person, plain, nil
}

func duplicateEmail(email string) *Error {
	return newError(KindDuplicateEmail, "email %s is already registered", email)
}

func duplicateName(name string) *Error {
	return newError(KindDuplicateName, "a sign named %q already exists", name)
}

// notFound converts repository.ErrNotFound into a NotFound use case error
// and passes any other error through.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, format, args...)
	}
	return err
}

package repository

import (
	"context"
	"errors"

	"github.com/camden-git/signabackend/models"
)

var (
	// ErrNotFound is returned for rows that do not exist or are inactive.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates an active-row unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// PersonRepository defines the methods for person data operations.
// Lookups only see active people.
type PersonRepository interface {
	Create(person *models.Person) error
	GetByID(id uint) (*models.Person, error)
	GetByEmail(email string) (*models.Person, error)
	Update(id uint, upd models.PersonUpdate) (*models.Person, error)
}

// CredentialRepository defines the methods for credential data operations
type CredentialRepository interface {
	Create(credential *models.Credential) error
	GetByUsername(username string) (*models.Credential, error)
	Update(id uint, upd models.CredentialUpdate) (*models.Credential, error)
}

// MarkRepository defines the methods for mark data operations
type MarkRepository interface {
	Create(mark *models.Mark) error
	GetByID(id uint) (*models.Mark, error)
	GetByName(name string) (*models.Mark, error)
	Update(id uint, upd models.MarkUpdate) (*models.Mark, error)
	SoftDelete(id uint) (bool, error)

	// joins with the owning person, both sides active
	ListActiveWithPeople() ([]models.MarkWithPerson, error)
	GetByIDWithPerson(id uint) (*models.MarkWithPerson, error)
}

// Stores groups the repositories bound to one unit of work.
type Stores struct {
	People      PersonRepository
	Credentials CredentialRepository
	Marks       MarkRepository
}

// UnitOfWork runs a group of repository calls atomically.
type UnitOfWork interface {
	// Do commits every write made through stores when fn returns nil and
	// rolls all of them back otherwise.
	Do(ctx context.Context, fn func(stores Stores) error) error
	// Read runs fn in a transaction that is always rolled back.
	Read(ctx context.Context, fn func(stores Stores) error) error
}

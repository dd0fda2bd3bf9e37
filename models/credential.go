package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Credential is the login identity paired 1:1 with a Person.
// ID is the owning person's ID and is never generated independently.
type Credential struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username  string    `gorm:"size:150;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never plaintext
	Active    bool      `gorm:"not null;default:true" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (Credential) TableName() string {
	return "credentials"
}

// NewCredential pairs a credential with an already persisted person.
func NewCredential(person *Person, passwordHash string) (*Credential, error) {
	c := &Credential{
		ID:       person.ID,
		Username: person.Email,
		Password: passwordHash,
		Active:   true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c Credential) Validate() error {
	return validation.Errors{
		"id":       validation.Validate(c.ID, validation.Required),
		"username": validation.Validate(c.Username, validation.Required),
		"password": validation.Validate(c.Password, validation.Required),
	}.Filter()
}

// CredentialUpdate carries optional credential fields. Password must already be hashed.
type CredentialUpdate struct {
	Username *string
	Password *string
}

func (u CredentialUpdate) IsEmpty() bool {
	return u.Username == nil && u.Password == nil
}

func (u CredentialUpdate) Apply(c *Credential) {
	if u.Username != nil {
		c.Username = *u.Username
	}
	if u.Password != nil {
		c.Password = *u.Password
	}
}

package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

var errEmailMissingAt = errors.New("must contain @")

// EmailRule accepts any value containing an "@". Empty values pass so it can
// be combined with validation.Required or used for optional fields.
var EmailRule = validation.By(emailHasAt)

// Person is the identity record behind a mark and its login credentials.
// It corresponds to the 'people' table.
type Person struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Surname   string    `gorm:"size:100;not null" json:"surname"`
	Email     string    `gorm:"size:150;not null" json:"email"`
	Address   string    `gorm:"size:100;not null" json:"address"`
	Active    bool      `gorm:"not null;default:true" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}

// NewPerson builds an active person and rejects it immediately if invalid.
func NewPerson(name, surname, email, address string) (*Person, error) {
	p := &Person{
		Name:    name,
		Surname: surname,
		Email:   email,
		Address: address,
		Active:  true,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p Person) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Surname, validation.Required),
		validation.Field(&p.Email, validation.Required, EmailRule),
		validation.Field(&p.Address, validation.Required),
	)
}

func emailHasAt(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if s == "" {
		return nil
	}
	if !strings.Contains(s, "@") {
		return errEmailMissingAt
	}
	return nil
}

// PersonUpdate carries the optional person fields of a partial update.
// Nil fields are left untouched.
type PersonUpdate struct {
	Name    *string
	Surname *string
	Email   *string
	Address *string
}

func (u PersonUpdate) IsEmpty() bool {
	return u.Name == nil && u.Surname == nil && u.Email == nil && u.Address == nil
}

// Apply overwrites only the fields present in u.
func (u PersonUpdate) Apply(p *Person) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Surname != nil {
		p.Surname = *u.Surname
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
}

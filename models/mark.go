package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Mark is the registrable named entity owned by a Person.
// The name is unique among active marks only.
type Mark struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"sign_name"`
	PersonID  uint      `gorm:"not null;index" json:"user_id"`
	Active    bool      `gorm:"not null;default:true" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (Mark) TableName() string {
	return "marks"
}

// NewMark builds an active mark owned by personID and rejects it immediately
// if invalid.
func NewMark(name string, personID uint) (*Mark, error) {
	m := &Mark{Name: name, PersonID: personID, Active: true}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m Mark) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.PersonID, validation.Required),
	)
}

// MarkUpdate carries the optional mark fields of a partial update.
type MarkUpdate struct {
	Name *string
}

func (u MarkUpdate) IsEmpty() bool {
	return u.Name == nil
}

func (u MarkUpdate) Apply(m *Mark) {
	if u.Name != nil {
		m.Name = *u.Name
	}
}

// MarkWithPerson is the denormalised mark + owner pair returned by listings.
type MarkWithPerson struct {
	Mark   Mark   `json:"sign"`
	Person Person `json:"user"`
}

package repository

import (
	"fmt"

	"github.com/camden-git/signabackend/models"
	"gorm.io/gorm"
)

// GormPersonRepository handles database operations for Person entities
type GormPersonRepository struct {
	db *gorm.DB
}

func NewGormPersonRepository(db *gorm.DB) *GormPersonRepository {
	return &GormPersonRepository{db: db}
}

// Create creates a new person record in the database
func (r *GormPersonRepository) Create(person *models.Person) error {
	if err := person.Validate(); err != nil {
		return err
	}
	return translate(r.db.Create(person).Error, "failed to create person %s", person.Email)
}

// GetByID retrieves an active person by ID
func (r *GormPersonRepository) GetByID(id uint) (*models.Person, error) {
	var person models.Person
	err := r.db.Where("id = ? AND active = ?", id, true).First(&person).Error
	if err != nil {
		return nil, translate(err, "failed to get person by ID %d", id)
	}
	return &person, nil
}

// GetByEmail retrieves the active person registered with email
func (r *GormPersonRepository) GetByEmail(email string) (*models.Person, error) {
	var person models.Person
	err := r.db.Where("email = ? AND active = ?", email, true).First(&person).Error
	if err != nil {
		return nil, translate(err, "failed to get person by email %s", email)
	}
	return &person, nil
}

// Update applies the present fields of upd to an active person and saves it
func (r *GormPersonRepository) Update(id uint, upd models.PersonUpdate) (*models.Person, error) {
	person, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	upd.Apply(person)
	if err := person.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update for person ID %d: %w", id, err)
	}

	if err := r.db.Save(person).Error; err != nil {
		return nil, translate(err, "failed to update person ID %d", id)
	}
	return person, nil
}

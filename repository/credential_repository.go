package repository

import (
	"fmt"

	"github.com/camden-git/signabackend/models"
	"gorm.io/gorm"
)

type GormCredentialRepository struct {
	db *gorm.DB
}

func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) Create(credential *models.Credential) error {
	if err := credential.Validate(); err != nil {
		return err
	}
	return translate(r.db.Create(credential).Error, "failed to create credentials for ID %d", credential.ID)
}

func (r *GormCredentialRepository) GetByUsername(username string) (*models.Credential, error) {
	var credential models.Credential
	err := r.db.Where("username = ? AND active = ?", username, true).First(&credential).Error
	if err != nil {
		return nil, translate(err, "failed to get credentials for %s", username)
	}
	return &credential, nil
}

func (r *GormCredentialRepository) Update(id uint, upd models.CredentialUpdate) (*models.Credential, error) {
	var credential models.Credential
	err := r.db.Where("id = ? AND active = ?", id, true).First(&credential).Error
	if err != nil {
		return nil, translate(err, "failed to get credentials by ID %d", id)
	}

	upd.Apply(&credential)
	if err := credential.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update for credentials ID %d: %w", id, err)
	}

	if err := r.db.Save(&credential).Error; err != nil {
		return nil, translate(err, "failed to update credentials ID %d", id)
	}
	return &credential, nil
}

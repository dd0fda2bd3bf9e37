package repository

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/camden-git/signabackend/models"
	"gorm.io/gorm"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// markPersonRow is the flat shape of the marks ⋈ people join.
type markPersonRow struct {
	MarkID        uint   `gorm:"column:mark_id"`
	MarkName      string `gorm:"column:mark_name"`
	MarkActive    bool   `gorm:"column:mark_active"`
	PersonID      uint   `gorm:"column:person_id"`
	PersonName    string `gorm:"column:person_name"`
	PersonSurname string `gorm:"column:person_surname"`
	PersonEmail   string `gorm:"column:person_email"`
	PersonAddress string `gorm:"column:person_address"`
	PersonActive  bool   `gorm:"column:person_active"`
}

func (row markPersonRow) toModel() models.MarkWithPerson {
	return models.MarkWithPerson{
		Mark: models.Mark{
			ID:       row.MarkID,
			Name:     row.MarkName,
			PersonID: row.PersonID,
			Active:   row.MarkActive,
		},
		Person: models.Person{
			ID:      row.PersonID,
			Name:    row.PersonName,
			Surname: row.PersonSurname,
			Email:   row.PersonEmail,
			Address: row.PersonAddress,
			Active:  row.PersonActive,
		},
	}
}

// activeMarksWithPeople selects active marks joined with their active owner.
func activeMarksWithPeople() sq.SelectBuilder {
	return psql.Select(
		"m.id AS mark_id",
		"m.name AS mark_name",
		"m.active AS mark_active",
		"p.id AS person_id",
		"p.name AS person_name",
		"p.surname AS person_surname",
		"p.email AS person_email",
		"p.address AS person_address",
		"p.active AS person_active",
	).
		From("marks m").
		Join("people p ON p.id = m.person_id").
		Where(sq.Eq{"m.active": true, "p.active": true})
}

type GormMarkRepository struct {
	db *gorm.DB
}

func NewGormMarkRepository(db *gorm.DB) *GormMarkRepository {
	return &GormMarkRepository{db: db}
}

func (r *GormMarkRepository) Create(mark *models.Mark) error {
	if err := mark.Validate(); err != nil {
		return err
	}
	return translate(r.db.Create(mark).Error, "failed to create mark %s", mark.Name)
}

// GetByID retrieves an active mark by ID
func (r *GormMarkRepository) GetByID(id uint) (*models.Mark, error) {
	var mark models.Mark
	err := r.db.Where("id = ? AND active = ?", id, true).First(&mark).Error
	if err != nil {
		return nil, translate(err, "failed to get mark by ID %d", id)
	}
	return &mark, nil
}

// GetByName retrieves the active mark with the given name
func (r *GormMarkRepository) GetByName(name string) (*models.Mark, error) {
	var mark models.Mark
	err := r.db.Where("name = ? AND active = ?", name, true).First(&mark).Error
	if err != nil {
		return nil, translate(err, "failed to get mark by name %s", name)
	}
	return &mark, nil
}

func (r *GormMarkRepository) Update(id uint, upd models.MarkUpdate) (*models.Mark, error) {
	mark, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	upd.Apply(mark)
	if err := mark.Validate(); err != nil {
		return nil, fmt.Errorf("invalid update for mark ID %d: %w", id, err)
	}

	if err := r.db.Save(mark).Error; err != nil {
		return nil, translate(err, "failed to update mark ID %d", id)
	}
	return mark, nil
}

// SoftDelete flips an active mark to inactive. It reports false when no
// active mark has that ID.
func (r *GormMarkRepository) SoftDelete(id uint) (bool, error) {
	result := r.db.Model(&models.Mark{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if result.Error != nil {
		return false, fmt.Errorf("failed to soft delete mark ID %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormMarkRepository) ListActiveWithPeople() ([]models.MarkWithPerson, error) {
	sqlStr, args, err := activeMarksWithPeople().OrderBy("m.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListActiveWithPeople: %w", err)
	}

	var rows []markPersonRow
	if err := r.db.Raw(sqlStr, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list marks with people: %w", err)
	}

	result := make([]models.MarkWithPerson, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (r *GormMarkRepository) GetByIDWithPerson(id uint) (*models.MarkWithPerson, error) {
	sqlStr, args, err := activeMarksWithPeople().Where(sq.Eq{"m.id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetByIDWithPerson: %w", err)
	}

	var rows []markPersonRow
	if err := r.db.Raw(sqlStr, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get mark %d with person: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mark %d with active owner: %w", id, ErrNotFound)
	}

	pair := rows[0].toModel()
	return &pair, nil
}

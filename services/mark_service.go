package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/camden-git/signabackend/metrics"
	"github.com/camden-git/signabackend/models"
	"github.com/camden-git/signabackend/realtime"
	"github.com/camden-git/signabackend/repository"
)

// Broadcaster receives mark lifecycle events after their unit of work commits.
type Broadcaster interface {
	Broadcast(event realtime.Event)
}

// MarkService orchestrates mark registration together with the owning
// person and their credentials.
type MarkService struct {
	useCase
	uow       repository.UnitOfWork
	passwords *PasswordService
	events    Broadcaster
}

// NewMarkService wires the service. events may be nil.
func NewMarkService(uow repository.UnitOfWork, passwords *PasswordService, events Broadcaster, logger *slog.Logger, m *metrics.Metrics) *MarkService {
	return &MarkService{
		useCase:   newUseCase(logger, m),
		uow:       uow,
		passwords: passwords,
		events:    events,
	}
}

// CreateMarkInput is the registration request: the mark name plus the
// owner's person fields.
type CreateMarkInput struct {
	SignName string `json:"sign_name"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}

func (in *CreateMarkInput) trim() {
	in.SignName = strings.TrimSpace(in.SignName)
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
}

// Validate requires every field and an email containing "@".
func (in CreateMarkInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SignName, validation.Required),
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Surname, validation.Required),
		validation.Field(&in.Email, validation.Required, models.EmailRule),
		validation.Field(&in.Address, validation.Required),
	)
}

// CreateMarkResult describes what CreateMarkWithPerson wrote. Password is
// set only when a credential was created and is meant for one-time display.
type CreateMarkResult struct {
	Mark               *models.Mark
	Person             *models.Person
	UserCreated        bool
	CredentialsCreated bool
	Password           string
}

// CreateMarkWithPerson registers a mark for the person with the given email,
// provisioning that person and a credential when the email is new.
func (s *MarkService) CreateMarkWithPerson(ctx context.Context, in CreateMarkInput) (*CreateMarkResult, error) {
	in.trim()

	var res *CreateMarkResult
	err := s.run("create_mark", func() error {
		if err := in.Validate(); err != nil {
			return err
		}

		return s.uow.Do(ctx, func(stores repository.Stores) error {
			_, err := stores.Marks.GetByName(in.SignName)
			switch {
			case err == nil:
				return duplicateName(in.SignName)
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}

			r := &CreateMarkResult{}
			person, err := stores.People.GetByEmail(in.Email)
			switch {
			case err == nil:
				r.Person = person
			case errors.Is(err, repository.ErrNotFound):
				person, plain, err := provisionPerson(stores, s.passwords, in.Name, in.Surname, in.Email, in.Address)
				if err != nil {
					return err
				}
				r.Person = person
				r.UserCreated = true
				r.CredentialsCreated = true
				r.Password = plain
			default:
				return err
			}

			mark, err := models.NewMark(in.SignName, r.Person.ID)
			if err != nil {
				return err
			}
			if err := stores.Marks.Create(mark); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return duplicateName(in.SignName)
				}
				return err
			}
			r.Mark = mark
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementMarksCreated()
	if res.UserCreated {
		s.metrics.IncrementPeopleCreated()
	}
	s.logger.Info("sign created", "sign_id", res.Mark.ID, "person_id", res.Person.ID, "user_created", res.UserCreated)
	s.publish(realtime.EventMarkCreated, res.Mark)
	return res, nil
}

// UpdateMarkInput is a partial update. Nil fields are left untouched; the
// fields are routed to the mark, its owner or the owner's credential.
type UpdateMarkInput struct {
	SignName *string `json:"sign_name,omitempty"`
	Name     *string `json:"name,omitempty"`
	Surname  *string `json:"surname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Address  *string `json:"address,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether no field at all was supplied.
func (in UpdateMarkInput) IsEmpty() bool {
	return in.markUpdate().IsEmpty() && in.personUpdate().IsEmpty() && in.Password == nil
}

// trim strips surrounding whitespace from the present text fields. The
// password is taken as given.
func (in *UpdateMarkInput) trim() {
	for _, field := range []**string{&in.SignName, &in.Name, &in.Surname, &in.Email, &in.Address} {
		if *field != nil {
			v := strings.TrimSpace(**field)
			*field = &v
		}
	}
}

// Validate rejects present fields that are blank, a malformed email and a
// password bcrypt cannot hash.
func (in UpdateMarkInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SignName, validation.NilOrNotEmpty),
		validation.Field(&in.Name, validation.NilOrNotEmpty),
		validation.Field(&in.Surname, validation.NilOrNotEmpty),
		validation.Field(&in.Email, validation.NilOrNotEmpty, models.EmailRule),
		validation.Field(&in.Address, validation.NilOrNotEmpty),
		validation.Field(&in.Password, validation.NilOrNotEmpty, validation.Length(0, MaxPasswordBytes)),
	)
}

func (in UpdateMarkInput) markUpdate() models.MarkUpdate {
	return models.MarkUpdate{Name: in.SignName}
}

func (in UpdateMarkInput) personUpdate() models.PersonUpdate {
	return models.PersonUpdate{
		Name:    in.Name,
		Surname: in.Surname,
		Email:   in.Email,
		Address: in.Address,
	}
}

// UpdateMark applies a partial update and returns the mark and owner as
// stored afterwards. The mark is resolved first, so an unknown mark is
// NotFound even when only person or password fields are given. Changing the
// password requires a caller identity in ctx.
func (s *MarkService) UpdateMark(ctx context.Context, id uint, in UpdateMarkInput) (*models.MarkWithPerson, error) {
	var out *models.MarkWithPerson
	err := s.run("update_mark", func() error {
		if in.IsEmpty() {
			return newError(KindValidation, "nothing to update")
		}
		in.trim()
		if err := in.Validate(); err != nil {
			return err
		}

		var actor Identity
		var passwordHash string
		if in.Password != nil {
			var ok bool
			if actor, ok = IdentityFrom(ctx); !ok {
				return newError(KindAuthentication, "authentication required to change a password")
			}
			hash, err := s.passwords.HashPassword(*in.Password)
			if err != nil {
				return err
			}
			passwordHash = hash
		}

		return s.uow.Do(ctx, func(stores repository.Stores) error {
			mark, err := stores.Marks.GetByID(id)
			if err != nil {
				return notFound(err, "sign %d not found", id)
			}

			if err := s.renameMark(stores, mark, in.SignName); err != nil {
				return err
			}
			if err := s.updateOwner(stores, mark.PersonID, in.personUpdate()); err != nil {
				return err
			}
			if passwordHash != "" {
				_, err := stores.Credentials.Update(mark.PersonID, models.CredentialUpdate{Password: &passwordHash})
				if err != nil {
					return notFound(err, "credentials for user %d not found", mark.PersonID)
				}
				s.logger.Info("credential password changed", "person_id", mark.PersonID, "by_user_id", actor.UserID, "by_username", actor.Username)
			}

			fresh, err := stores.Marks.GetByIDWithPerson(id)
			if err != nil {
				return notFound(err, "sign %d not found", id)
			}
			out = fresh
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.EventMarkUpdated, &out.Mark)
	return out, nil
}

func (s *MarkService) renameMark(stores repository.Stores, mark *models.Mark, name *string) error {
	if name == nil || *name == mark.Name {
		return nil
	}
	_, err := stores.Marks.GetByName(*name)
	switch {
	case err == nil:
		return duplicateName(*name)
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	if _, err := stores.Marks.Update(mark.ID, models.MarkUpdate{Name: name}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return duplicateName(*name)
		}
		return notFound(err, "sign %d not found", mark.ID)
	}
	return nil
}

// updateOwner writes the person fields and keeps the credential username in
// step with the email.
func (s *MarkService) updateOwner(stores repository.Stores, personID uint, upd models.PersonUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	current, err := stores.People.GetByID(personID)
	if err != nil {
		return notFound(err, "user %d not found", personID)
	}

	emailChanged := upd.Email != nil && *upd.Email != current.Email
	if emailChanged {
		_, err := stores.People.GetByEmail(*upd.Email)
		switch {
		case err == nil:
			return duplicateEmail(*upd.Email)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	if _, err := stores.People.Update(personID, upd); err != nil {
		if emailChanged && errors.Is(err, repository.ErrDuplicate) {
			return duplicateEmail(*upd.Email)
		}
		return notFound(err, "user %d not found", personID)
	}

	if emailChanged {
		_, err := stores.Credentials.Update(personID, models.CredentialUpdate{Username: upd.Email})
		if errors.Is(err, repository.ErrDuplicate) {
			return duplicateEmail(*upd.Email)
		}
		if err != nil {
			return notFound(err, "credentials for user %d not found", personID)
		}
	}
	return nil
}

// GetAllMarks lists active marks with their active owners. No rows is an
// empty, non-nil slice.
func (s *MarkService) GetAllMarks(ctx context.Context) ([]models.MarkWithPerson, error) {
	var marks []models.MarkWithPerson
	err := s.run("list_marks", func() error {
		return s.uow.Read(ctx, func(stores repository.Stores) error {
			rows, err := stores.Marks.ListActiveWithPeople()
			if err != nil {
				return err
			}
			marks = rows
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if marks == nil {
		marks = []models.MarkWithPerson{}
	}
	return marks, nil
}

// GetMarkByID returns one active mark with its active owner, or NotFound.
func (s *MarkService) GetMarkByID(ctx context.Context, id uint) (*models.MarkWithPerson, error) {
	var mark *models.MarkWithPerson
	err := s.run("get_mark", func() error {
		return s.uow.Read(ctx, func(stores repository.Stores) error {
			m, err := stores.Marks.GetByIDWithPerson(id)
			if err != nil {
				return notFound(err, "sign %d not found", id)
			}
			mark = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return mark, nil
}

// SoftDeleteMark deactivates an active mark. A missing or already inactive
// mark is NotFound.
func (s *MarkService) SoftDeleteMark(ctx context.Context, id uint) error {
	err := s.run("delete_mark", func() error {
		return s.uow.Do(ctx, func(stores repository.Stores) error {
			deleted, err := stores.Marks.SoftDelete(id)
			if err != nil {
				return err
			}
			if !deleted {
				return newError(KindNotFound, "sign %d not found", id)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("sign deleted", "sign_id", id)
	s.publish(realtime.EventMarkDeleted, &models.Mark{ID: id})
	return nil
}

func (s *MarkService) publish(kind string, mark *models.Mark) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(realtime.Event{
		Type:     kind,
		MarkID:   mark.ID,
		SignName: mark.Name,
		PersonID: mark.PersonID,
	})
}

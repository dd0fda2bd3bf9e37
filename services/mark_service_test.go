package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/signabackend/metrics"
	"github.com/camden-git/signabackend/models"
	"github.com/camden-git/signabackend/realtime"
	"github.com/camden-git/signabackend/repository"
)

func TestMarkLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)
	assert.Equal(t, uint(1), res.Mark.ID)
	assert.Equal(t, uint(1), res.Person.ID)
	assert.True(t, res.UserCreated)
	assert.True(t, res.CredentialsCreated)
	assert.NotEmpty(t, res.Password)

	_, err = f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.Equal(t, 409, StatusFor(err))

	updated, err := f.marks.UpdateMark(ctx, 1, UpdateMarkInput{SignName: strPtr("Acme2")})
	require.NoError(t, err)
	assert.Equal(t, "Acme2", updated.Mark.Name)
	assert.Equal(t, "jo@x.com", updated.Person.Email)

	require.NoError(t, f.marks.SoftDeleteMark(ctx, 1))

	_, err = f.marks.GetMarkByID(ctx, 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = f.marks.SoftDeleteMark(ctx, 1)
	assert.True(t, errors.Is(err, ErrNotFound), "deleting twice must be NotFound")

	assert.Equal(t, []string{realtime.EventMarkCreated, realtime.EventMarkUpdated, realtime.EventMarkDeleted}, f.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MarksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PeopleCreated))
}

func TestCreateMarkProvisionsCredential(t *testing.T) {
	f := newFixture(t)

	res, err := f.marks.CreateMarkWithPerson(context.Background(), acmeInput())
	require.NoError(t, err)

	cred, err := repository.NewGormCredentialRepository(f.db).GetByUsername("jo@x.com")
	require.NoError(t, err)
	assert.Equal(t, res.Person.ID, cred.ID)
	assert.NotEqual(t, res.Password, cred.Password)
	assert.True(t, f.passwords.VerifyPassword(res.Password, cred.Password))

	assert.EqualValues(t, 1, f.count(t, &models.Person{}))
	assert.EqualValues(t, 1, f.count(t, &models.Credential{}))
	assert.EqualValues(t, 1, f.count(t, &models.Mark{}))
}

func TestCreateMarkReusesExistingPerson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	in := acmeInput()
	in.SignName = "Beta"
	in.Name = "Someone"
	in.Address = "2 St"
	second, err := f.marks.CreateMarkWithPerson(ctx, in)
	require.NoError(t, err)

	assert.False(t, second.UserCreated)
	assert.False(t, second.CredentialsCreated)
	assert.Empty(t, second.Password)
	assert.Equal(t, first.Person.ID, second.Person.ID)
	assert.Equal(t, "Jo", second.Person.Name)
	assert.Equal(t, first.Person.ID, second.Mark.PersonID)

	assert.EqualValues(t, 1, f.count(t, &models.Person{}))
	assert.EqualValues(t, 1, f.count(t, &models.Credential{}))
	assert.EqualValues(t, 2, f.count(t, &models.Mark{}))
}

func TestCreateMarkValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateMarkInput)
		field  string
	}{
		{"missing sign name", func(in *CreateMarkInput) { in.SignName = "" }, "sign_name"},
		{"blank name", func(in *CreateMarkInput) { in.Name = "   " }, "name"},
		{"missing surname", func(in *CreateMarkInput) { in.Surname = "" }, "surname"},
		{"missing email", func(in *CreateMarkInput) { in.Email = "" }, "email"},
		{"email without at", func(in *CreateMarkInput) { in.Email = "jo.x.com" }, "email"},
		{"missing address", func(in *CreateMarkInput) { in.Address = "" }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := acmeInput()
			tt.mutate(&in)

			_, err := f.marks.CreateMarkWithPerson(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Contains(t, PublicDetail(err), tt.field)

			assert.EqualValues(t, 0, f.count(t, &models.Person{}))
			assert.EqualValues(t, 0, f.count(t, &models.Mark{}))
		})
	}
}

func TestCreateMarkNameReusableAfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)
	require.NoError(t, f.marks.SoftDeleteMark(ctx, res.Mark.ID))

	again, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)
	assert.NotEqual(t, res.Mark.ID, again.Mark.ID)
	assert.False(t, again.UserCreated)
}

func TestUpdateMarkNameLeavesPersonUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	out, err := f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{SignName: strPtr("B")})
	require.NoError(t, err)
	assert.Equal(t, "B", out.Mark.Name)
	assert.Equal(t, res.Person.Name, out.Person.Name)
	assert.Equal(t, res.Person.Surname, out.Person.Surname)
	assert.Equal(t, res.Person.Email, out.Person.Email)
	assert.Equal(t, res.Person.Address, out.Person.Address)
}

func TestUpdateMarkPasswordOnly(t *testing.T) {
	f := newFixture(t)
	res, err := f.marks.CreateMarkWithPerson(context.Background(), acmeInput())
	require.NoError(t, err)

	creds := repository.NewGormCredentialRepository(f.db)
	before, err := creds.GetByUsername("jo@x.com")
	require.NoError(t, err)

	ctx := WithIdentity(context.Background(), Identity{UserID: res.Person.ID, Username: "jo@x.com"})
	out, err := f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{Password: strPtr("x")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Mark.Name)
	assert.Equal(t, "Jo", out.Person.Name)

	after, err := creds.GetByUsername("jo@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, before.Password, after.Password)
	assert.NotEqual(t, "x", after.Password)
	assert.True(t, f.passwords.VerifyPassword("x", after.Password))
	assert.False(t, f.passwords.VerifyPassword(res.Password, after.Password))
}

func TestUpdateMarkPasswordRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	res, err := f.marks.CreateMarkWithPerson(context.Background(), acmeInput())
	require.NoError(t, err)

	_, err = f.marks.UpdateMark(context.Background(), res.Mark.ID, UpdateMarkInput{Password: strPtr("x")})
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestUpdateMarkPersonFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	out, err := f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{
		Surname: strPtr("Smith"),
		Email:   strPtr("jo@y.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Mark.Name)
	assert.Equal(t, "Jo", out.Person.Name)
	assert.Equal(t, "Smith", out.Person.Surname)
	assert.Equal(t, "jo@y.com", out.Person.Email)

	// the credential follows the email
	_, err = f.auth.Authenticate(ctx, "jo@y.com", res.Password)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, "jo@x.com", res.Password)
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestUpdateMarkEmailTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	other := acmeInput()
	other.SignName = "Other"
	other.Email = "other@x.com"
	_, err = f.marks.CreateMarkWithPerson(ctx, other)
	require.NoError(t, err)

	_, err = f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{
		SignName: strPtr("Renamed"),
		Email:    strPtr("other@x.com"),
	})
	assert.True(t, errors.Is(err, ErrDuplicateEmail))

	// the rename in the same call was rolled back
	got, err := f.marks.GetMarkByID(ctx, res.Mark.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Mark.Name)
}

func TestUpdateMarkErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)
	other := acmeInput()
	other.SignName = "Taken"
	_, err = f.marks.CreateMarkWithPerson(ctx, other)
	require.NoError(t, err)

	tests := []struct {
		name string
		id   uint
		in   UpdateMarkInput
		kind Kind
	}{
		{"empty input", res.Mark.ID, UpdateMarkInput{}, KindValidation},
		{"empty input on unknown mark", 99, UpdateMarkInput{}, KindValidation},
		{"unknown mark", 99, UpdateMarkInput{SignName: strPtr("X")}, KindNotFound},
		{"unknown mark with person fields only", 99, UpdateMarkInput{Name: strPtr("X")}, KindNotFound},
		{"rename to taken name", res.Mark.ID, UpdateMarkInput{SignName: strPtr("Taken")}, KindDuplicateName},
		{"blank name", res.Mark.ID, UpdateMarkInput{Name: strPtr("")}, KindValidation},
		{"whitespace name", res.Mark.ID, UpdateMarkInput{Name: strPtr("   ")}, KindValidation},
		{"whitespace sign name", res.Mark.ID, UpdateMarkInput{SignName: strPtr("  ")}, KindValidation},
		{"whitespace name and sign name", res.Mark.ID, UpdateMarkInput{Name: strPtr("   "), SignName: strPtr("  ")}, KindValidation},
		{"password too long", res.Mark.ID, UpdateMarkInput{Password: strPtr(strings.Repeat("p", 80))}, KindValidation},
		{"bad email", res.Mark.ID, UpdateMarkInput{Email: strPtr("nope")}, KindValidation},
	}

	admin := WithIdentity(ctx, Identity{UserID: 1, Username: "admin@x.com"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.marks.UpdateMark(admin, tt.id, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err), err.Error())
		})
	}

	_, err = f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{})
	assert.Equal(t, "nothing to update", PublicDetail(err))

	out, err := f.marks.GetMarkByID(ctx, res.Mark.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Mark.Name)
	assert.Equal(t, "Jo", out.Person.Name)
}

func TestUpdateMarkTrimsFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	out, err := f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{
		SignName: strPtr("  Acme Two "),
		Surname:  strPtr(" Roe\t"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Two", out.Mark.Name)
	assert.Equal(t, "Roe", out.Person.Surname)
}

// marksFailingOnCreate lets every other store call through, so the person and
// credential are written before the mark insert fails.
type marksFailingOnCreate struct {
	repository.MarkRepository
	err error
}

func (m marksFailingOnCreate) Create(*models.Mark) error { return m.err }

type failingMarkCreateUnitOfWork struct {
	*repository.GormUnitOfWork
	err error
}

func (u failingMarkCreateUnitOfWork) Do(ctx context.Context, fn func(stores repository.Stores) error) error {
	return u.GormUnitOfWork.Do(ctx, func(stores repository.Stores) error {
		stores.Marks = marksFailingOnCreate{MarkRepository: stores.Marks, err: u.err}
		return fn(stores)
	})
}

func TestCreateMarkRollsBackProvisionedPerson(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"duplicate name race", fmt.Errorf("failed to create mark Acme: %w", repository.ErrDuplicate), KindDuplicateName},
		{"storage error", errors.New("disk I/O error"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			uow := failingMarkCreateUnitOfWork{GormUnitOfWork: f.uow, err: tt.err}
			svc := NewMarkService(uow, f.passwords, f.events, discardLogger(), f.metrics)

			_, err := svc.CreateMarkWithPerson(context.Background(), acmeInput())
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))

			assert.Zero(t, f.count(t, &models.Person{}))
			assert.Zero(t, f.count(t, &models.Credential{}))
			assert.Zero(t, f.count(t, &models.Mark{}))
			assert.Empty(t, f.events.types())
		})
	}
}

func TestUpdateMarkSameNameIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)

	out, err := f.marks.UpdateMark(ctx, res.Mark.ID, UpdateMarkInput{SignName: strPtr("Acme")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", out.Mark.Name)
}

func TestGetAllMarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	marks, err := f.marks.GetAllMarks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, marks)
	assert.Empty(t, marks)

	_, err = f.marks.CreateMarkWithPerson(ctx, acmeInput())
	require.NoError(t, err)
	in := acmeInput()
	in.SignName = "Beta"
	in.Email = "beta@x.com"
	_, err = f.marks.CreateMarkWithPerson(ctx, in)
	require.NoError(t, err)

	marks, err = f.marks.GetAllMarks(ctx)
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "Acme", marks[0].Mark.Name)
	assert.Equal(t, "jo@x.com", marks[0].Person.Email)
	assert.Equal(t, "Beta", marks[1].Mark.Name)
	assert.Equal(t, "beta@x.com", marks[1].Person.Email)
}

type failingUnitOfWork struct {
	err   error
	panic bool
}

func (u failingUnitOfWork) Do(ctx context.Context, fn func(stores repository.Stores) error) error {
	if u.panic {
		panic("storage exploded")
	}
	return u.err
}

func (u failingUnitOfWork) Read(ctx context.Context, fn func(stores repository.Stores) error) error {
	return u.Do(ctx, fn)
}

func TestUnexpectedErrorsBecomeInternal(t *testing.T) {
	tests := []struct {
		name string
		uow  failingUnitOfWork
	}{
		{"storage error", failingUnitOfWork{err: errors.New("disk I/O error at /var/lib/signa.db")}},
		{"panic", failingUnitOfWork{panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			svc := NewMarkService(tt.uow, NewPasswordService(4, 0), nil, discardLogger(), m)

			_, err := svc.CreateMarkWithPerson(context.Background(), acmeInput())
			require.Error(t, err)
			assert.Equal(t, KindInternal, KindOf(err))
			assert.Equal(t, 500, StatusFor(err))
			assert.Equal(t, "internal server error", PublicDetail(err))

			_, err = svc.GetAllMarks(context.Background())
			assert.Equal(t, KindInternal, KindOf(err))

			assert.Equal(t, 1.0, testutil.ToFloat64(m.UseCaseErrors.WithLabelValues("create_mark", "internal_error")))
		})
	}
}

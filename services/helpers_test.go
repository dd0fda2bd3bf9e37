package services

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/camden-git/signabackend/database"
	"github.com/camden-git/signabackend/metrics"
	"github.com/camden-git/signabackend/realtime"
	"github.com/camden-git/signabackend/repository"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBroadcaster) Broadcast(event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	uow       *repository.GormUnitOfWork
	passwords *PasswordService
	tokens    *TokenService
	metrics   *metrics.Metrics
	events    *recordingBroadcaster
	marks     *MarkService
	auth      *AuthService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := database.InitGormDB(dsn, database.Options{LogLevel: "silent", MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{
		db:        db,
		uow:       repository.NewGormUnitOfWork(db),
		passwords: NewPasswordService(bcrypt.MinCost, 0),
		tokens:    NewTokenService([]byte("test-secret"), 0, "signa-test"),
		metrics:   metrics.New(prometheus.NewRegistry()),
		events:    &recordingBroadcaster{},
	}
	f.marks = NewMarkService(f.uow, f.passwords, f.events, discardLogger(), f.metrics)
	f.auth = NewAuthService(f.uow, f.passwords, f.tokens, discardLogger(), f.metrics)
	return f
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

func acmeInput() CreateMarkInput {
	return CreateMarkInput{
		SignName: "Acme",
		Name:     "Jo",
		Surname:  "Doe",
		Email:    "jo@x.com",
		Address:  "1 St",
	}
}

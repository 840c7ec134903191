package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ts-dashboard/internal/model"
)

func newSQLiteStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.SessionValue{}))
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})
	return NewGormStore(gormDB), gormDB
}

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_SaveLoad(t *testing.T) {
	store, gormDB := newSQLiteStore(t)
	ctx := context.Background()

	want := Session{StationCode: "WKTS", DisplayName: "西九龍轉運站 (管理員)", IsAdmin: true}
	require.NoError(t, store.Save(ctx, "tok-1", want))

	got, err := store.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var rows []model.SessionValue
	require.NoError(t, gormDB.Where("token = ?", "tok-1").Find(&rows).Error)
	values := map[string]string{}
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	assert.Equal(t, map[string]string{
		KeyStationCode: "WKTS",
		KeyDisplayName: "西九龍轉運站 (管理員)",
		KeyIsAdmin:     "true",
	}, values, "exactly the three keys are persisted")
}

func TestGormStore_SaveReplaces(t *testing.T) {
	store, gormDB := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", Session{StationCode: "WKTS", DisplayName: "admin", IsAdmin: true}))
	require.NoError(t, store.Save(ctx, "tok", Session{StationCode: "IETS", DisplayName: "港島東轉運站"}))

	got, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, Session{StationCode: "IETS", DisplayName: "港島東轉運站"}, got)

	var count int64
	gormDB.Model(&model.SessionValue{}).Where("token = ?", "tok").Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestGormStore_LoadMissing(t *testing.T) {
	store, gormDB := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	// A row set without a station code is treated as logged out.
	require.NoError(t, gormDB.Create(&model.SessionValue{Token: "partial", Key: KeyDisplayName, Value: "x"}).Error)
	_, err = store.Load(ctx, "partial")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ClearIsIdempotent(t *testing.T) {
	store, _ := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", Session{StationCode: "IETS", DisplayName: "港島東轉運站"}))
	require.NoError(t, store.Clear(ctx, "tok"))
	require.NoError(t, store.Clear(ctx, "tok"))
	require.NoError(t, store.Clear(ctx, ""))

	_, err := store.Load(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SaveRejectsEmpty(t *testing.T) {
	store, _ := newSQLiteStore(t)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", Session{StationCode: "IETS"}))
	assert.Error(t, store.Save(ctx, "tok", Session{DisplayName: "no code"}))
}

func TestGormStore_SaveRollsBackOnFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "session_values" WHERE token = $1`)).
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "session_values"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), "tok", Session{StationCode: "IETS", DisplayName: "港島東轉運站"})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Purge(t *testing.T) {
	store, gormDB := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", Session{StationCode: "IETS"}))
	require.NoError(t, store.Save(ctx, "fresh", Session{StationCode: "STTS"}))
	stale := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, gormDB.Model(&model.SessionValue{}).Where("token = ?", "old").Update("updated_at", stale).Error)

	purger, ok := store.(Purger)
	require.True(t, ok)
	n, err := purger.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(ctx, "fresh")
	assert.NoError(t, err)

	n, err = purger.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFromValues(t *testing.T) {
	sess, ok := FromValues(map[string]string{KeyStationCode: "STTS", KeyDisplayName: "沙田轉運站", KeyIsAdmin: "false"})
	assert.True(t, ok)
	assert.Equal(t, Session{StationCode: "STTS", DisplayName: "沙田轉運站"}, sess)

	_, ok = FromValues(map[string]string{KeyStationCode: ""})
	assert.False(t, ok)
}

package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/akeren/mehfil-api/internal/models"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) WaitlistRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WaitlistEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewWaitlistRepository(db)
}

func strPtr(s string) *string { return &s }

func TestWaitlistRepository_CreateAndFind(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	created, err := repo.CreateEntry(ctx, &models.WaitlistEntry{
		Email:        "v@example.com",
		PhoneNumber:  "5551234567",
		BusinessName: strPtr("Henna by Asha"),
		UserType:     models.UserTypeVendor,
	})
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, models.StatusActive, created.Status)

	byEmail, err := repo.FindEntryByEmail(ctx, "v@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "Henna by Asha", *byEmail.BusinessName)

	byPhone, err := repo.FindEntryByPhoneNumber(ctx, "5551234567")
	require.NoError(t, err)
	require.NotNil(t, byPhone)

	missing, err := repo.FindEntryByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWaitlistRepository_UniqueIndexes(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, &models.WaitlistEntry{Email: "a@example.com", PhoneNumber: "111", UserType: models.UserTypeCouple})
	require.NoError(t, err)

	_, err = repo.CreateEntry(ctx, &models.WaitlistEntry{Email: "a@example.com", PhoneNumber: "222", UserType: models.UserTypeCouple})
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	assert.Equal(t, MsgEmailTaken, apperrors.GetHumanReadableMessage(err))

	_, err = repo.CreateEntry(ctx, &models.WaitlistEntry{Email: "b@example.com", PhoneNumber: "111", UserType: models.UserTypeCouple})
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	assert.Equal(t, MsgPhoneNumberTaken, apperrors.GetHumanReadableMessage(err))
}

func TestConflictFromDuplicate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"sqlite email", errors.New("UNIQUE constraint failed: waitlist_entries.email"), MsgEmailTaken},
		{"sqlite phone", errors.New("UNIQUE constraint failed: waitlist_entries.phone_number"), MsgPhoneNumberTaken},
		{"postgres email", errors.New(`ERROR: duplicate key value violates unique constraint "idx_waitlist_entries_email" (SQLSTATE 23505)`), MsgEmailTaken},
		{"postgres phone", errors.New(`ERROR: duplicate key value violates unique constraint "idx_waitlist_entries_phone_number" (SQLSTATE 23505)`), MsgPhoneNumberTaken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperrors.GetHumanReadableMessage(conflictFromDuplicate(tc.err)))
		})
	}
}

func TestWaitlistRepository_CountEntries(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	count, err := repo.CountEntries(ctx, EntryFilter{Status: models.StatusActive})
	require.NoError(t, err)
	assert.Zero(t, count)

	seed := []models.WaitlistEntry{
		{Email: "v1@example.com", PhoneNumber: "1001", UserType: models.UserTypeVendor, BusinessName: strPtr("One")},
		{Email: "c1@example.com", PhoneNumber: "1002", UserType: models.UserTypeCouple},
		{Email: "c2@example.com", PhoneNumber: "1003", UserType: models.UserTypeCouple},
		{Email: "c3@example.com", PhoneNumber: "1004", UserType: models.UserTypeCouple, Status: "inactive"},
	}
	for i := range seed {
		_, err := repo.CreateEntry(ctx, &seed[i])
		require.NoError(t, err)
	}

	vendors, err := repo.CountEntries(ctx, EntryFilter{UserType: models.UserTypeVendor, Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), vendors)

	couples, err := repo.CountEntries(ctx, EntryFilter{UserType: models.UserTypeCouple, Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(2), couples)

	total, err := repo.CountEntries(ctx, EntryFilter{Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	all, err := repo.CountEntries(ctx, EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all)
}

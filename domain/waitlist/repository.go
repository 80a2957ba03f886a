package waitlist

import (
	"context"
	"errors"
	"strings"

	"github.com/akeren/mehfil-api/internal/models"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type WaitlistRepository interface {
	// FindEntryByEmail returns (nil, nil) when no entry has the email.
	FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	// FindEntryByPhoneNumber expects the normalized phone number.
	FindEntryByPhoneNumber(ctx context.Context, phoneNumber string) (*models.WaitlistEntry, error)
	CountEntries(ctx context.Context, filter EntryFilter) (int64, error)
	// CreateEntry inserts the entry and returns it with its ID set. A
	// uniqueness violation comes back as a conflict error.
	CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) findOne(ctx context.Context, column, value string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	if err := wr.db.WithContext(ctx).Where(column+" = ?", value).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (wr *waitlistRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	return wr.findOne(ctx, "email", email)
}

func (wr *waitlistRepository) FindEntryByPhoneNumber(ctx context.Context, phoneNumber string) (*models.WaitlistEntry, error) {
	return wr.findOne(ctx, "phone_number", phoneNumber)
}

func (wr *waitlistRepository) CountEntries(ctx context.Context, filter EntryFilter) (int64, error) {
	query := wr.db.WithContext(ctx).Model(&models.WaitlistEntry{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserType != "" {
		query = query.Where("user_type = ?", filter.UserType)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	return count, nil
}

func (wr *waitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, conflictFromDuplicate(err)
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", err)
	}

	return entry, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}

// phoneNumberConstraints are how postgres (constraint name) and sqlite
// (table.column) identify the phone number unique index. Neither driver puts
// the offending value in the error text.
var phoneNumberConstraints = []string{"idx_waitlist_entries_phone_number", "waitlist_entries.phone_number"}

func conflictFromDuplicate(err error) error {
	msg := strings.ToLower(err.Error())
	if lo.SomeBy(phoneNumberConstraints, func(name string) bool { return strings.Contains(msg, name) }) {
		return apperrors.NewConflictError(MsgPhoneNumberTaken, err)
	}
	return apperrors.NewConflictError(MsgEmailTaken, err)
}

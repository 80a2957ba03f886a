package waitlist

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/akeren/mehfil-api/internal/models"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
	"github.com/akeren/mehfil-api/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type waitlistDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PhoneNumber  string             `bson:"phoneNumber"`
	BusinessName *string            `bson:"businessName,omitempty"`
	UserType     string             `bson:"userType"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d *waitlistDocument) toModel() *models.WaitlistEntry {
	return &models.WaitlistEntry{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		BusinessName: d.BusinessName,
		UserType:     d.UserType,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
	}
}

type mongoWaitlistRepository struct {
	collections mongodb.CollectionProvider
}

// NewMongoWaitlistRepository resolves the collection on every call so a
// failed first connection is retried by the next request.
func NewMongoWaitlistRepository(collections mongodb.CollectionProvider) WaitlistRepository {
	return &mongoWaitlistRepository{collections: collections}
}

func (mr *mongoWaitlistRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	coll, err := mr.collections.Collection(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("document store unavailable", err)
	}
	return coll, nil
}

func (mr *mongoWaitlistRepository) findOne(ctx context.Context, filter bson.M) (*models.WaitlistEntry, error) {
	coll, err := mr.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc waitlistDocument
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return doc.toModel(), nil
}

func (mr *mongoWaitlistRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	return mr.findOne(ctx, bson.M{"email": email})
}

func (mr *mongoWaitlistRepository) FindEntryByPhoneNumber(ctx context.Context, phoneNumber string) (*models.WaitlistEntry, error) {
	return mr.findOne(ctx, bson.M{"phoneNumber": phoneNumber})
}

func (mr *mongoWaitlistRepository) CountEntries(ctx context.Context, filter EntryFilter) (int64, error) {
	coll, err := mr.collection(ctx)
	if err != nil {
		return 0, err
	}

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.UserType != "" {
		query["userType"] = filter.UserType
	}

	count, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	return count, nil
}

func (mr *mongoWaitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	coll, err := mr.collection(ctx)
	if err != nil {
		return nil, err
	}

	if entry.Status == "" {
		entry.Status = models.StatusActive
	}

	doc := waitlistDocument{
		Email:        entry.Email,
		PhoneNumber:  entry.PhoneNumber,
		BusinessName: entry.BusinessName,
		UserType:     entry.UserType,
		Status:       entry.Status,
		CreatedAt:    entry.CreatedAt,
	}

	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, conflictFromMongoDuplicate(err)
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = id.Hex()
	}

	return entry, nil
}

// E11000 messages carry the index name followed by the duplicated value.
var duplicateIndexPattern = regexp.MustCompile(`index: (\S+) dup key`)

func conflictFromMongoDuplicate(err error) error {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if m := duplicateIndexPattern.FindStringSubmatch(we.Message); m != nil && m[1] == mongodb.PhoneNumberIndexName {
				return apperrors.NewConflictError(MsgPhoneNumberTaken, err)
			}
		}
	}
	return apperrors.NewConflictError(MsgEmailTaken, err)
}

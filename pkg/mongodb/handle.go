package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultDatabase   = "mehfil"
	DefaultCollection = "waitlist"
)

var ErrNotConfigured = errors.New("mongodb: connection string is not configured")

type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// CollectionProvider hands out the collection a repository works against.
type CollectionProvider interface {
	Collection(ctx context.Context) (*mongo.Collection, error)
}

// CollectionFunc adapts a plain function to CollectionProvider.
type CollectionFunc func(ctx context.Context) (*mongo.Collection, error)

func (f CollectionFunc) Collection(ctx context.Context) (*mongo.Collection, error) {
	return f(ctx)
}

type dialFunc func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(ctx, opts)
}

// Handle owns the process-wide client. The first caller connects; later
// callers reuse that client. A failed connect leaves the handle empty so the
// next caller tries again.
type Handle struct {
	cfg  Config
	dial dialFunc

	mu     sync.Mutex
	client *mongo.Client
}

func NewHandle(cfg Config) *Handle {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	return &Handle{cfg: cfg, dial: connect}
}

func (h *Handle) Config() Config {
	return h.cfg
}

func (h *Handle) Client(ctx context.Context) (*mongo.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		return h.client, nil
	}

	if h.cfg.URI == "" {
		return nil, ErrNotConfigured
	}

	dialCtx, cancel := context.WithTimeout(ctx, h.cfg.ConnectTimeout)
	defer cancel()

	client, err := h.dial(dialCtx, options.Client().ApplyURI(h.cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	h.client = client
	return client, nil
}

func (h *Handle) Collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := h.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(h.cfg.Database).Collection(h.cfg.Collection), nil
}

func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client != nil
}

func (h *Handle) Ping(ctx context.Context) error {
	client, err := h.Client(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

func (h *Handle) EnsureIndexes(ctx context.Context) error {
	coll, err := h.Collection(ctx)
	if err != nil {
		return err
	}
	return EnsureWaitlistIndexes(ctx, coll)
}

func (h *Handle) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	client := h.client
	h.client = nil
	h.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

const (
	EmailIndexName       = "email_unique"
	PhoneNumberIndexName = "phone_number_unique"
)

// EnsureWaitlistIndexes creates the unique email and phoneNumber indexes.
// Re-running it against an existing collection is a no-op.
func EnsureWaitlistIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(EmailIndexName),
		},
		{
			Keys:    bson.D{{Key: "phoneNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(PhoneNumberIndexName),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "userType", Value: 1}},
			Options: options.Index().SetName("status_user_type"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb: create waitlist indexes: %w", err)
	}
	return nil
}

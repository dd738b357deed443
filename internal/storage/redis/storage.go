package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/storage"
)

// Storage is a Redis-backed implementation of the account store
type Storage struct {
	client *redis.Client
	cfg    Config
}

// accountRecord is the JSON shape of an account in Redis
type accountRecord struct {
	ID                 string    `json:"id"`
	IsBanned           bool      `json:"is_banned"`
	SessionToken       string    `json:"session_token"`
	SessionTokenExpiry time.Time `json:"session_token_expiry"`
	CurrentServerID    string    `json:"current_server_id,omitempty"`
	PersistenceBlob    []byte    `json:"persistence_blob"`
}

func recordFromModel(a *model.Account) accountRecord {
	return accountRecord{
		ID:                 a.ID,
		IsBanned:           a.IsBanned,
		SessionToken:       a.SessionToken,
		SessionTokenExpiry: a.SessionTokenExpiry.UTC(),
		CurrentServerID:    a.CurrentServerID,
		PersistenceBlob:    a.PersistenceBlob,
	}
}

func (r accountRecord) toModel() *model.Account {
	return &model.Account{
		ID:                 r.ID,
		IsBanned:           r.IsBanned,
		SessionToken:       r.SessionToken,
		SessionTokenExpiry: r.SessionTokenExpiry,
		CurrentServerID:    r.CurrentServerID,
		PersistenceBlob:    r.PersistenceBlob,
	}
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.AccountStore = (*Storage)(nil)

func (s *Storage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.get(ctx, s.client, id)
	return account, wrap("get account", err)
}

func (s *Storage) InsertAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(recordFromModel(account))
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, accountKey(account.ID), data, 0).Result()
	if err != nil {
		return wrap("insert account", err)
	}
	if !created {
		return model.ErrAccountExists
	}
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) error {
	key := accountKey(id)

	// Read-modify-write under WATCH; retried when another writer touches the key
	txf := func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		data, err := json.Marshal(recordFromModel(update.Apply(current)))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return wrap("update account", err)
	}
	return model.Unavailable("update account", redis.TxFailedErr)
}

func (s *Storage) get(ctx context.Context, c redis.Cmdable, id string) (*model.Account, error) {
	data, err := c.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// wrap passes store-level rejections through and marks everything else as an
// infrastructure failure
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, model.ErrAccountNotFound) || errors.Is(err, model.ErrAccountExists) {
		return err
	}
	return model.Unavailable(op, err)
}

// Package accounts owns player account records: creation, session token
// refresh, current-server tracking and persistence writes.
package accounts

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lolPants/NorthstarMasterServer/internal/keylock"
	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/services/token"
	"github.com/lolPants/NorthstarMasterServer/internal/storage"
)

// DefaultBlobSize is the length of a freshly created persistence blob
const DefaultBlobSize = 56306

// Config holds configuration for the directory
type Config struct {
	// Baseline is copied into every new account. When nil a zero-filled blob
	// of BlobSize bytes is used.
	Baseline []byte
	BlobSize int
}

// DefaultConfig returns default directory configuration
func DefaultConfig() Config {
	return Config{BlobSize: DefaultBlobSize}
}

// Directory reads and writes accounts through the store. Mutations of one
// account are serialized; different accounts proceed in parallel.
type Directory struct {
	store    storage.AccountStore
	issuer   *token.Issuer
	locks    *keylock.Locker
	baseline []byte
	logger   *slog.Logger
}

// New creates a new Directory
func New(store storage.AccountStore, issuer *token.Issuer, cfg Config, logger *slog.Logger) *Directory {
	baseline := append([]byte(nil), cfg.Baseline...)
	if cfg.Baseline == nil {
		size := cfg.BlobSize
		if size <= 0 {
			size = DefaultBlobSize
		}
		baseline = make([]byte, size)
	}

	return &Directory{
		store:    store,
		issuer:   issuer,
		locks:    keylock.New(),
		baseline: baseline,
		logger:   logger.With(slog.String("component", "accounts")),
	}
}

// DefaultBlob returns a copy of the blob given to new accounts
func (d *Directory) DefaultBlob() []byte {
	return append([]byte(nil), d.baseline...)
}

// GetByID returns the account or model.ErrAccountNotFound
func (d *Directory) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, model.ErrAccountNotFound
	}
	return d.store.GetAccount(ctx, id)
}

// GetOrCreate returns the account, creating a default one on first sight
func (d *Directory) GetOrCreate(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, model.ErrAccountNotFound
	}

	unlock, err := d.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := d.store.GetAccount(ctx, id)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	session := d.issuer.Issue()
	account = &model.Account{
		ID:                 id,
		SessionToken:       session.Value,
		SessionTokenExpiry: session.ExpiresAt,
		PersistenceBlob:    d.DefaultBlob(),
	}

	err = d.store.InsertAccount(ctx, account)
	if errors.Is(err, model.ErrAccountExists) {
		// Another process created it between our read and insert
		return d.store.GetAccount(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	d.logger.Info("account created", slog.String("player_id", id))
	return account, nil
}

// RefreshToken issues a new session token and returns the updated account
func (d *Directory) RefreshToken(ctx context.Context, account *model.Account) (*model.Account, error) {
	session := d.issuer.Issue()
	return d.update(ctx, account.ID, model.AccountUpdate{
		SessionToken:       &session.Value,
		SessionTokenExpiry: &session.ExpiresAt,
	})
}

// SetCurrentServer records which server the account is authorized on
func (d *Directory) SetCurrentServer(ctx context.Context, account *model.Account, serverID string) (*model.Account, error) {
	return d.update(ctx, account.ID, model.AccountUpdate{CurrentServerID: &serverID})
}

// WriteCheck vets a persistence write against the account as stored, under
// the account's lock
type WriteCheck func(current *model.Account) error

// WritePersistence replaces the account's blob. The new blob must have the
// same length as the stored one. A non-nil check runs first and its error
// aborts the write.
func (d *Directory) WritePersistence(ctx context.Context, account *model.Account, blob []byte, check WriteCheck) (*model.Account, error) {
	unlock, err := d.lock(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := d.store.GetAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(current); err != nil {
			return nil, err
		}
	}
	if len(blob) != len(current.PersistenceBlob) {
		return nil, model.ErrPersistenceSizeMismatch
	}

	update := model.AccountUpdate{PersistenceBlob: append([]byte{}, blob...)}
	if err := d.store.UpdateAccount(ctx, account.ID, update); err != nil {
		return nil, err
	}
	return update.Apply(current), nil
}

// update writes through to the store under the account's lock and returns
// the record as it now stands
func (d *Directory) update(ctx context.Context, id string, update model.AccountUpdate) (*model.Account, error) {
	unlock, err := d.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.store.UpdateAccount(ctx, id, update); err != nil {
		return nil, err
	}
	return update.Apply(current), nil
}

func (d *Directory) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := d.locks.Lock(ctx, id)
	if err != nil {
		return nil, model.Unavailable("account lock", err)
	}
	return unlock, nil
}

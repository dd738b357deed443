package storage

import (
	"context"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
)

// AccountStore is the durable record store behind the account directory.
// Implementations must give read-your-writes for a single id within a process.
type AccountStore interface {
	// GetAccount returns model.ErrAccountNotFound when no record exists
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// InsertAccount returns model.ErrAccountExists when the id is taken
	InsertAccount(ctx context.Context, account *model.Account) error

	// UpdateAccount applies the non-nil fields of update.
	// Returns model.ErrAccountNotFound when no record exists.
	UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) error
}

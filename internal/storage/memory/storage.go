package memory

import (
	"context"
	"sync"

	"github.com/lolPants/NorthstarMasterServer/internal/model"
	"github.com/lolPants/NorthstarMasterServer/internal/storage"
)

// Storage is an in-memory implementation of the account store
type Storage struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts: make(map[string]*model.Account),
	}
}

// Ensure Storage implements the interface
var _ storage.AccountStore = (*Storage)(nil)

func (s *Storage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *Storage) InsertAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return model.ErrAccountExists
	}
	s.accounts[account.ID] = account.Clone()
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, id string, update model.AccountUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	s.accounts[id] = update.Apply(account)
	return nil
}

// SetBanned flips the moderation flag on an account. The master server never
// bans players itself; this stands in for the external moderation process.
func (s *Storage) SetBanned(id string, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	account.IsBanned = banned
	return nil
}

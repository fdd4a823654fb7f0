package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gramstack/pkg/models"
)

type accountsFile struct {
	Accounts []models.Account `json:"accounts"`
}

// AccountStore is the durable registry of connected accounts, persisted as a
// single JSON file. The first use seeds a default account from the
// pre-provisioned access token.
type AccountStore struct {
	path      string
	seedToken string
	mu        sync.Mutex
}

// NewAccountStore opens (or creates) the account registry under dataDir.
// seedToken is the statically configured access token for the default
// account.
func NewAccountStore(dataDir, seedToken string) (*AccountStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &AccountStore{
		path:      filepath.Join(dataDir, "accounts.json"),
		seedToken: seedToken,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err != nil {
		if err := s.save(s.seeded()); err != nil {
			return nil, fmt.Errorf("failed to seed account registry: %w", err)
		}
	}

	return s, nil
}

func (s *AccountStore) seeded() []models.Account {
	return []models.Account{{
		ID:          DefaultAccountID,
		Name:        "Default account",
		AccessToken: s.seedToken,
		CreatedAt:   models.Now(),
		IsActive:    true,
	}}
}

// load reads the registry. A missing or corrupt file is never fatal: the
// store re-seeds itself with the default account and carries on.
func (s *AccountStore) load() []models.Account {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return s.reseed("read", err)
	}

	var f accountsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return s.reseed("parse", err)
	}

	return f.Accounts
}

func (s *AccountStore) reseed(op string, cause error) []models.Account {
	log.Warn().Err(cause).Str("path", s.path).Msgf("account registry %s failed, re-seeding", op)
	accounts := s.seeded()
	if err := s.save(accounts); err != nil {
		log.Error().Err(err).Msg("failed to persist re-seeded account registry")
	}
	return accounts
}

func (s *AccountStore) save(accounts []models.Account) error {
	data, err := json.MarshalIndent(accountsFile{Accounts: accounts}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode account registry: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write account registry: %w", err)
	}
	return nil
}

// List returns all accounts in storage insertion order.
func (s *AccountStore) List() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the account with the given id.
func (s *AccountStore) Get(id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.load() {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// Add registers a new account. The id starts from the current registry size
// and skips past ids still present, so an add after a delete never reuses an
// id that another record holds.
func (s *AccountStore) Add(name, accessToken, userID, username string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load()
	taken := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		taken[a.ID] = true
	}
	n := len(accounts) + 1
	for taken[fmt.Sprintf("account_%d", n)] {
		n++
	}

	account := models.Account{
		ID:          fmt.Sprintf("account_%d", n),
		Name:        name,
		AccessToken: accessToken,
		UserID:      userID,
		Username:    username,
		CreatedAt:   models.Now(),
		IsActive:    true,
	}

	accounts = append(accounts, account)
	if err := s.save(accounts); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// AccountUpdate carries a partial set of fields to merge into an account.
// Nil fields are left untouched.
type AccountUpdate struct {
	Name        *string
	AccessToken *string
	UserID      *string
	Username    *string
	IsActive    *bool
}

// Update merges the given fields into an existing account and persists the
// whole registry.
func (s *AccountStore) Update(id string, upd AccountUpdate) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load()
	for i := range accounts {
		if accounts[i].ID != id {
			continue
		}
		if upd.Name != nil {
			accounts[i].Name = *upd.Name
		}
		if upd.AccessToken != nil {
			accounts[i].AccessToken = *upd.AccessToken
		}
		if upd.UserID != nil {
			accounts[i].UserID = *upd.UserID
		}
		if upd.Username != nil {
			accounts[i].Username = *upd.Username
		}
		if upd.IsActive != nil {
			accounts[i].IsActive = *upd.IsActive
		}
		if err := s.save(accounts); err != nil {
			return models.Account{}, err
		}
		return accounts[i], nil
	}
	return models.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// Delete removes an account and reports whether a record was removed. The
// default account is protected and always fails with
// ErrDefaultAccountProtected.
func (s *AccountStore) Delete(id string) (bool, error) {
	if id == DefaultAccountID {
		return false, ErrDefaultAccountProtected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.load()
	kept := accounts[:0:0]
	for _, a := range accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(accounts) {
		return false, nil
	}
	if err := s.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"dlchat/pkg/logging"
)

// DefaultAccountStorageDir is the default directory for cached accounts,
// relative to the user's home directory.
const DefaultAccountStorageDir = ".config/dlchat/accounts"

// accountExpiryBuffer is the margin applied when deciding whether a cached
// access token is still usable. It covers clock skew and the time a bot
// conversation may run after the token is handed out.
const accountExpiryBuffer = 60 * time.Second

// Account is a cached signed-in identity: the tokens obtained from the
// identity provider plus enough metadata to find and display it later.
//
// SECURITY: accounts contain live credentials. Files are written with 0600
// permissions in a 0700 directory, and token values are never logged.
type Account struct {
	// Username is the preferred username claim from the ID token, used for
	// display only. May be empty when the provider returned no ID token.
	Username string `json:"username,omitempty"`

	// TenantID and ClientID identify the app registration the tokens belong to.
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`

	// AccessToken is the bearer token for the requested scopes.
	AccessToken string `json:"access_token"`

	// RefreshToken allows silent reacquisition after the access token expires.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`

	// IDToken is the raw OIDC ID token, if the provider issued one.
	IDToken string `json:"id_token,omitempty"`

	// CreatedAt is when the account was cached.
	CreatedAt time.Time `json:"created_at"`
}

// Token converts the cached account back into an oauth2 token.
func (a *Account) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    a.TokenType,
		Expiry:       a.Expiry,
	}
	if a.IDToken != "" {
		tok = tok.WithExtra(map[string]interface{}{"id_token": a.IDToken})
	}
	return tok
}

// Fresh reports whether the cached access token is still usable, with a
// safety margin for clock skew.
func (a *Account) Fresh() bool {
	if a == nil {
		return false
	}
	if a.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(accountExpiryBuffer).Before(a.Expiry)
}

// AccountStoreConfig configures the account store.
type AccountStoreConfig struct {
	// StorageDir is the directory for account files.
	// Defaults to ~/.config/dlchat/accounts.
	StorageDir string

	// FileMode enables file persistence. If false, accounts live only in
	// memory for the lifetime of the process.
	FileMode bool
}

// AccountStore caches signed-in accounts, keyed by tenant and client ID,
// optionally persisted as JSON files under the user's config directory.
type AccountStore struct {
	mu         sync.RWMutex
	storageDir string
	accounts   map[string]*Account
	fileMode   bool
}

// NewAccountStore creates an account store. In file mode the storage
// directory is created with owner-only permissions.
func NewAccountStore(cfg AccountStoreConfig) (*AccountStore, error) {
	storageDir := cfg.StorageDir
	if storageDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		storageDir = filepath.Join(homeDir, DefaultAccountStorageDir)
	}

	store := &AccountStore{
		storageDir: storageDir,
		accounts:   make(map[string]*Account),
		fileMode:   cfg.FileMode,
	}

	if cfg.FileMode {
		if err := os.MkdirAll(storageDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create account storage directory: %w", err)
		}
	}

	return store, nil
}

// Put caches an account, replacing any previous account for the same tenant
// and client. Token values are never logged.
func (s *AccountStore) Put(account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	key := accountKey(account.TenantID, account.ClientID)
	s.accounts[key] = account

	if s.fileMode {
		if err := s.writeAccountFile(key, account); err != nil {
			logging.Warn("auth", "Failed to persist account for tenant %s: %v", account.TenantID, err)
			return fmt.Errorf("failed to persist account: %w", err)
		}
	}

	logging.Debug("auth", "Cached account for tenant %s (has refresh token: %t)",
		account.TenantID, account.RefreshToken != "")
	return nil
}

// Get returns the cached account for a tenant and client, or nil when none
// exists. Expired accounts are still returned: their refresh token may allow
// silent reacquisition.
func (s *AccountStore) Get(tenantID, clientID string) *Account {
	key := accountKey(tenantID, clientID)

	s.mu.RLock()
	if account, ok := s.accounts[key]; ok {
		s.mu.RUnlock()
		return account
	}
	s.mu.RUnlock()

	if !s.fileMode {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if account, ok := s.accounts[key]; ok {
		return account
	}

	account, err := s.readAccountFile(key)
	if err != nil {
		return nil
	}
	s.accounts[key] = account
	return account
}

// List returns all cached accounts.
func (s *AccountStore) List() []*Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileMode {
		s.loadAllLocked()
	}

	accounts := make([]*Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts
}

// Remove deletes the cached account for a tenant and client.
func (s *AccountStore) Remove(tenantID, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountKey(tenantID, clientID)
	delete(s.accounts, key)

	if s.fileMode {
		err := os.Remove(filepath.Join(s.storageDir, key+".json"))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	logging.Debug("auth", "Removed cached account for tenant %s", tenantID)
	return nil
}

// Clear removes every cached account.
func (s *AccountStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]*Account)

	if !s.fileMode {
		return nil
	}

	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read account directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.storageDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove account file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// loadAllLocked populates the memory cache from disk. Requires s.mu held.
func (s *AccountStore) loadAllLocked() {
	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		key := entry.Name()[:len(entry.Name())-len(".json")]
		if _, ok := s.accounts[key]; ok {
			continue
		}
		account, err := s.readAccountFile(key)
		if err != nil {
			continue
		}
		s.accounts[key] = account
	}
}

// accountKey derives a filesystem-safe key from the tenant and client IDs.
func accountKey(tenantID, clientID string) string {
	hash := sha256.Sum256([]byte(tenantID + "/" + clientID))
	return hex.EncodeToString(hash[:16])
}

func (s *AccountStore) writeAccountFile(key string, account *Account) error {
	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	// Owner read/write only: the file holds live credentials.
	path := filepath.Join(s.storageDir, key+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write account file: %w", err)
	}
	return nil
}

func (s *AccountStore) readAccountFile(key string) (*Account, error) {
	path := filepath.Join(s.storageDir, key+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account file: %w", err)
	}
	return &account, nil
}

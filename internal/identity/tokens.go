package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

var ErrNoTokens = errors.New("no stored session tokens")

// Tokens are the provider credentials of a signed-in user
type Tokens struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore persists provider tokens between runs.
// This allows us to mock the keyring in tests.
type TokenStore interface {
	SaveTokens(account string, tokens Tokens) error
	LoadTokens(account string) (Tokens, error)
	DeleteTokens(account string) error
}

// KeyringStore keeps tokens in the OS keychain/credential manager
type KeyringStore struct {
	Service string
}

// NewKeyringStore creates a keyring-backed token store
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{Service: service}
}

// keyringKey returns a unique key for storing tokens per provider project
func keyringKey(account string) string {
	return fmt.Sprintf("session-%s", account)
}

// SaveTokens persists the tokens securely in the OS keychain
func (k *KeyringStore) SaveTokens(account string, tokens Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	if err := keyring.Set(k.Service, keyringKey(account), string(data)); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// LoadTokens retrieves the tokens from the OS keychain
func (k *KeyringStore) LoadTokens(account string) (Tokens, error) {
	var tokens Tokens

	data, err := keyring.Get(k.Service, keyringKey(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return tokens, ErrNoTokens
		}
		return tokens, fmt.Errorf("failed to load tokens: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &tokens); err != nil {
		return tokens, fmt.Errorf("failed to parse stored tokens: %w", err)
	}
	return tokens, nil
}

// DeleteTokens removes the tokens from the OS keychain
func (k *KeyringStore) DeleteTokens(account string) error {
	if err := keyring.Delete(k.Service, keyringKey(account)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// MemoryStore keeps tokens in process memory. Used by the HTTP shell on
// hosts without a keychain.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Tokens)}
}

func (m *MemoryStore) SaveTokens(account string, tokens Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[account] = tokens
	return nil
}

func (m *MemoryStore) LoadTokens(account string) (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens, ok := m.tokens[account]
	if !ok {
		return Tokens{}, ErrNoTokens
	}
	return tokens, nil
}

func (m *MemoryStore) DeleteTokens(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, account)
	return nil
}

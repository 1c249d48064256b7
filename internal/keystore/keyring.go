package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"

	"github.com/glinharesb/sm2-server/internal/crypto"
)

const (
	// ServiceName identifies this tool's items in the OS keyring.
	ServiceName = "sm2ctl"

	keyPrefix = "sm2key."
)

// storedKey is the JSON form written to a keyring item.
type storedKey struct {
	PrivateKey []byte            `json:"private_key"`
	CreatedAt  time.Time         `json:"created_at"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// KeyringStore keeps keys in a keyring.Keyring, one item per key.
type KeyringStore struct {
	kr keyring.Keyring
}

// NewKeyringStore wraps an opened keyring.
func NewKeyringStore(kr keyring.Keyring) *KeyringStore {
	return &KeyringStore{kr: kr}
}

// OpenKeyringStore opens the system keyring described by cfg. An empty
// ServiceName defaults to ServiceName.
func OpenKeyringStore(cfg keyring.Config) (*KeyringStore, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = ServiceName
	}
	kr, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringStore(kr), nil
}

func (s *KeyringStore) Put(entry *KeyEntry) error {
	if err := ValidateName(entry.Name); err != nil {
		return err
	}
	if _, err := s.kr.Get(keyPrefix + entry.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrKeyExists, entry.Name)
	} else if !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("read keyring: %w", err)
	}

	data, err := json.Marshal(storedKey{
		PrivateKey: crypto.MarshalPrivateKey(entry.PrivateKey),
		CreatedAt:  entry.CreatedAt,
		Labels:     entry.Labels,
	})
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}

	if err := s.kr.Set(keyring.Item{
		Key:         keyPrefix + entry.Name,
		Data:        data,
		Label:       "SM2 key " + entry.Name,
		Description: "SM2 private key",
	}); err != nil {
		return fmt.Errorf("failed to enroll key in keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Get(name string) (*KeyEntry, error) {
	item, err := s.kr.Get(keyPrefix + name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not load key: %w", err)
	}
	return decodeEntry(name, item.Data)
}

// List returns all entries ordered by name.
func (s *KeyringStore) List() ([]*KeyEntry, error) {
	keys, err := s.kr.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keyring: %w", err)
	}
	sort.Strings(keys)

	var result []*KeyEntry
	for _, k := range keys {
		name, ok := strings.CutPrefix(k, keyPrefix)
		if !ok {
			continue
		}
		entry, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *KeyringStore) Delete(name string) error {
	if _, err := s.kr.Get(keyPrefix + name); errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	return s.kr.Remove(keyPrefix + name)
}

func decodeEntry(name string, data []byte) (*KeyEntry, error) {
	var sk storedKey
	if err := json.Unmarshal(data, &sk); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", name, err)
	}
	key, err := crypto.ParsePrivateKey(sk.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode key %s: %w", name, err)
	}
	return &KeyEntry{
		Name:       name,
		PrivateKey: key,
		CreatedAt:  sk.CreatedAt,
		Labels:     sk.Labels,
	}, nil
}

// Package keystore holds named SM2 private keys for the command line tool.
package keystore

import (
	"errors"
	"regexp"
	"time"

	"github.com/tjfoc/gmsm/sm2"
)

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrKeyExists      = errors.New("key already exists")
	ErrInvalidKeyName = errors.New("invalid key name")
)

var keyNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateName checks that name is usable as a key identifier.
func ValidateName(name string) error {
	if !keyNamePattern.MatchString(name) {
		return ErrInvalidKeyName
	}
	return nil
}

// KeyEntry holds a key and its metadata.
type KeyEntry struct {
	Name       string
	PrivateKey *sm2.PrivateKey
	CreatedAt  time.Time
	Labels     map[string]string
}

// Store defines the key storage interface.
type Store interface {
	Put(entry *KeyEntry) error
	Get(name string) (*KeyEntry, error)
	List() ([]*KeyEntry, error)
	Delete(name string) error
}

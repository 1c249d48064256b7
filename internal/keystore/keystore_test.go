package keystore

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"

	"github.com/glinharesb/sm2-server/internal/crypto"
)

func makeEntry(t *testing.T, name string) *KeyEntry {
	t.Helper()
	key, err := crypto.GenerateSM2Key()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &KeyEntry{
		Name:       name,
		PrivateKey: key,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Labels:     map[string]string{"env": "test"},
	}
}

var stores = map[string]func() Store{
	"memory":  func() Store { return NewMemoryStore() },
	"keyring": func() Store { return NewKeyringStore(keyring.NewArrayKeyring(nil)) },
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore())
		})
	}
}

func TestPutAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		entry := makeEntry(t, "key-1")
		if err := store.Put(entry); err != nil {
			t.Fatalf("put: %v", err)
		}

		got, err := store.Get("key-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "key-1" {
			t.Fatalf("name mismatch: got %s", got.Name)
		}
		if got.PrivateKey.D.Cmp(entry.PrivateKey.D) != 0 {
			t.Fatal("private key mismatch")
		}
		if got.PrivateKey.PublicKey.X.Cmp(entry.PrivateKey.PublicKey.X) != 0 {
			t.Fatal("public key mismatch")
		}
		if !got.CreatedAt.Equal(entry.CreatedAt) || got.Labels["env"] != "test" {
			t.Fatalf("metadata mismatch: %+v", got)
		}
	})
}

func TestPutDuplicate(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		if err := store.Put(makeEntry(t, "key-1")); err != nil {
			t.Fatalf("put: %v", err)
		}
		err := store.Put(makeEntry(t, "key-1"))
		if !errors.Is(err, ErrKeyExists) {
			t.Fatalf("expected ErrKeyExists, got %v", err)
		}
	})
}

func TestPutInvalidName(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		for _, name := range []string{"", "-lead", "has space", "a/b"} {
			if err := store.Put(makeEntry(t, name)); !errors.Is(err, ErrInvalidKeyName) {
				t.Fatalf("%q: expected ErrInvalidKeyName, got %v", name, err)
			}
		}
	})
}

func TestGetNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		if _, err := store.Get("nonexistent"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})
}

func TestListSorted(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		for _, i := range []int{3, 1, 4, 0, 2} {
			if err := store.Put(makeEntry(t, fmt.Sprintf("key-%d", i))); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		keys, err := store.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(keys) != 5 {
			t.Fatalf("expected 5 keys, got %d", len(keys))
		}
		for i, k := range keys {
			if k.Name != fmt.Sprintf("key-%d", i) {
				t.Fatalf("position %d: got %s", i, k.Name)
			}
		}
	})
}

func TestDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		if err := store.Put(makeEntry(t, "key-1")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := store.Delete("key-1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.Get("key-1"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatal("deleted key should not be found")
		}
		if err := store.Delete("key-1"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}
	})
}

func TestKeyringIgnoresForeignItems(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{{Key: "oauthtoken.me", Data: []byte("token")}})
	store := NewKeyringStore(kr)
	if err := store.Put(makeEntry(t, "mine")); err != nil {
		t.Fatalf("put: %v", err)
	}

	keys, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 || keys[0].Name != "mine" {
		t.Fatalf("unexpected keys: %+v", keys)
	}
}

func TestKeyringRejectsCorruptItem(t *testing.T) {
	kr := keyring.NewArrayKeyring([]keyring.Item{
		{Key: keyPrefix + "bad", Data: []byte(`{"private_key":"AAAA"}`)},
	})
	store := NewKeyringStore(kr)
	_, err := store.Get("bad")
	if !errors.Is(err, crypto.ErrInvalidKeyEncoding) {
		t.Fatalf("expected ErrInvalidKeyEncoding, got %v", err)
	}
}

func TestConcurrentReadWrite(t *testing.T) {
	store := NewMemoryStore()
	const numKeys = 50
	const numReaders = 100

	// Pre-populate half the keys
	for i := 0; i < numKeys / 2; i++ {
		store.Put(makeEntry(t, fmt.Sprintf("pre-%d", i)))
	}

	entries := make([]*KeyEntry, numKeys)
	for i := range entries {
		entries[i] = makeEntry(t, fmt.Sprintf("w-%d", i))
	}

	var wg sync.WaitGroup

	// Concurrent writers
	for i := 0; i < numKeys; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Put(entries[i])
		}(i)
	}

	// Concurrent readers
	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.List()
		}()
	}

	// Concurrent get operations
	for i := 0; i < numKeys / 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Get(fmt.Sprintf("pre-%d", i))
		}(i)
	}

	wg.Wait()

	keys, _ := store.List()
	if len(keys) != numKeys+numKeys/2 {
		t.Fatalf("expected %d keys, got %d", numKeys+numKeys/2, len(keys))
	}
}

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/glinharesb/sm2-server/internal/keystore"
)

const (
	keyringDirectory = "~/.sm2_keys"

	// memoryBackend keeps keys for the lifetime of the process only.
	memoryBackend keyring.BackendType = "memory"

	EnvServer       = "SM2_SERVER"
	EnvAuthToken    = "SM2_AUTH_TOKEN"
	EnvKeyringType  = "SM2_KEYRING_TYPE"
	EnvKeyringPass  = "SM2_KEYRING_PASSWORD"
	EnvKeyringPath  = "SM2_KEYRING_PATH"
	EnvKeyringDebug = "SM2_KEYRING_DEBUG"
)

// Config holds command line and environment settings.
type Config struct {
	Server    string
	AuthToken string
	Backend   keyring.Config
	Debug     bool

	backendType backendType
	password    *string
	store       keystore.Store
}

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	value := keyring.BackendType(v)
	for _, name := range append(keyring.AvailableBackends(), memoryBackend) {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func NewConfig() *Config {
	c := &Config{
		Backend: keyring.Config{
			ServiceName:              keystore.ServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.backendType = backendType{c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return c
}

func (c *Config) RegisterCommandLineFlags() {
	flag.StringVar(&c.Server, "server", "", "Base `URL` of an SM2 HTTP service. Signing runs locally when empty. Defaults to $"+EnvServer+".")
	flag.StringVar(&c.AuthToken, "token", "", "Bearer token for -server. Defaults to $"+EnvAuthToken+".")

	var names []string
	for _, name := range append(keyring.AvailableBackends(), memoryBackend) {
		names = append(names, string(name))
	}
	sort.Strings(names)
	flag.Var(&c.backendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $"+EnvKeyringType+".")
	flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", "", "keyring `directory` for file-backed keyring types. Defaults to $"+EnvKeyringPath+" or "+keyringDirectory+".")
	flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
}

// ReadFromEnvironment fills in values not set on the command line.
func (c *Config) ReadFromEnvironment() {
	if c.Server == "" {
		c.Server = os.Getenv(EnvServer)
	}
	if c.AuthToken == "" {
		c.AuthToken = os.Getenv(EnvAuthToken)
	}
	if c.backendType.String() == string(keyring.InvalidBackend) {
		_ = c.backendType.Set(os.Getenv(EnvKeyringType))
	}
	if c.password == nil {
		if password := os.Getenv(EnvKeyringPass); password != "" {
			c.password = &password
		}
	}
	if c.Backend.FileDir == "" {
		c.Backend.FileDir = os.Getenv(EnvKeyringPath)
	}
	if c.Backend.FileDir == "" {
		c.Backend.FileDir = keyringDirectory
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvKeyringDebug)
	}
	keyring.Debug = c.Debug
}

// Store opens the keyring on first use.
func (c *Config) Store() (keystore.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if c.backendType.String() == string(memoryBackend) {
		c.store = keystore.NewMemoryStore()
		return c.store, nil
	}
	s, err := keystore.OpenKeyringStore(c.Backend)
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		}
		w = os.Stderr
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

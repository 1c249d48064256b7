package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/glinharesb/sm2-server/internal/audit"
	"github.com/glinharesb/sm2-server/internal/client"
	"github.com/glinharesb/sm2-server/internal/codec"
	"github.com/glinharesb/sm2-server/internal/crypto"
	"github.com/glinharesb/sm2-server/internal/envelope"
	"github.com/glinharesb/sm2-server/internal/keystore"
	"github.com/glinharesb/sm2-server/internal/signer"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRequiresServer  = errors.New("command requires -server")
)

// Backend performs signature operations, either in process or over HTTP.
type Backend interface {
	Keypair(ctx context.Context) (*signer.Keypair, error)
	SignRaw(ctx context.Context, privateKeyHex, rawHex string) (string, error)
	SignDigest(ctx context.Context, privateKeyHex, digestHex string) (string, error)
	VerifyRaw(ctx context.Context, publicKeyHex, signatureHex, rawHex string) (bool, error)
	VerifyDigest(ctx context.Context, publicKeyHex, signatureHex, digestHex string) (bool, error)
}

// Env is what command handlers operate on.
type Env struct {
	Backend Backend
	Remote  *client.Client // nil when running locally
	Keys    func() (keystore.Store, error)
	Out     io.Writer
}

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, env *Env, args map[string]string) error

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

func (c *Command) Usage(name string, w io.Writer) {
	fmt.Fprintf(w, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " [%s]", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	for _, arg := range append(c.args, c.optional...) {
		fmt.Fprintf(w, "    %s:%s %s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var (
	modeArg   = Argument{name: "MODE", help: "raw (input is hashed with SM3) or digest (input is signed as is)"}
	keyArg    = Argument{name: "KEY", help: "0x-prefixed private key, or the name of a stored key"}
	pubArg    = Argument{name: "PUBKEY", help: "0x-prefixed public key, or the name of a stored key"}
	dataArg   = Argument{name: "DATA", help: "hex input"}
	sigArg    = Argument{name: "SIGNATURE", help: "hex signature envelope"}
	nameArg   = Argument{name: "NAME", help: "name of the stored key"}
	serverReq = " Requires -server."
)

var commands = map[string]*Command{
	"keygen": {
		help:     "Generate a key pair. With NAME the private key is stored and the public key printed.",
		optional: []Argument{nameArg},
		handler:  keygen,
	},
	"pubkey": {
		help:    "Print the public key of a stored key.",
		args:    []Argument{nameArg},
		handler: pubkey,
	},
	"list": {
		help:    "List stored keys.",
		handler: list,
	},
	"delete": {
		help:    "Delete a stored key.",
		args:    []Argument{nameArg},
		handler: deleteKey,
	},
	"sign": {
		help:    "Sign DATA and print the signature envelope.",
		args:    []Argument{modeArg, keyArg, dataArg},
		handler: sign,
	},
	"verify": {
		help:    "Verify a signature envelope and print true or false.",
		args:    []Argument{modeArg, pubArg, sigArg, dataArg},
		handler: verify,
	},
	"wrap": {
		help: "Convert a DER encoded (r, s) signature into a signature envelope.",
		args: []Argument{
			{name: "DER", help: "hex DER SEQUENCE of two INTEGERs"},
			pubArg,
		},
		handler: wrap,
	},
	"unwrap": {
		help:    "Convert a signature envelope into a DER encoded (r, s) signature.",
		args:    []Argument{sigArg},
		handler: unwrap,
	},
	"ping": {
		help:    "Check that the server is reachable." + serverReq,
		handler: ping,
	},
	"audit": {
		help: "Print recent audit entries." + serverReq,
		optional: []Argument{
			{name: "OPERATION", help: "only show entries for this operation"},
		},
		handler: auditLog,
	},
}

func execute(ctx context.Context, env *Env, args []string) error {
	if len(args) == 0 {
		return ErrCommandLineArgs
	}
	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	given := len(args) - 1
	if given < len(info.args) || given > len(info.args)+len(info.optional) {
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrCommandLineArgs,
			args[0], len(info.args), len(info.args)+len(info.optional), given)
	}

	named := make(map[string]string, given)
	for i, arg := range append(info.args, info.optional...) {
		if i+1 >= len(args) {
			break
		}
		named[arg.name] = args[i+1]
	}
	return info.handler(ctx, env, named)
}

func keygen(ctx context.Context, env *Env, args map[string]string) error {
	name, store := args["NAME"], keystore.Store(nil)
	if name != "" {
		if err := keystore.ValidateName(name); err != nil {
			return err
		}
		var err error
		if store, err = env.Keys(); err != nil {
			return err
		}
	}

	kp, err := env.Backend.Keypair(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintf(env.Out, "privateKey: %s\npublicKey:  %s\n", kp.PrivateKey, kp.PublicKey)
		return nil
	}

	raw, err := codec.DecodeHex(kp.PrivateKey)
	if err != nil {
		return err
	}
	key, err := crypto.ParsePrivateKey(raw)
	if err != nil {
		return err
	}
	if err := store.Put(&keystore.KeyEntry{Name: name, PrivateKey: key, CreatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, kp.PublicKey)
	return nil
}

func pubkey(ctx context.Context, env *Env, args map[string]string) error {
	entry, err := lookup(env, args["NAME"])
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, codec.EncodeHex(crypto.MarshalPublicKey(&entry.PrivateKey.PublicKey)))
	return nil
}

func list(ctx context.Context, env *Env, args map[string]string) error {
	store, err := env.Keys()
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(env.Out, "%s\t%s\t%s\n", e.Name, e.CreatedAt.Format(time.RFC3339),
			codec.EncodeHex(crypto.MarshalPublicKey(&e.PrivateKey.PublicKey)))
	}
	return nil
}

func deleteKey(ctx context.Context, env *Env, args map[string]string) error {
	store, err := env.Keys()
	if err != nil {
		return err
	}
	return store.Delete(args["NAME"])
}

func sign(ctx context.Context, env *Env, args map[string]string) error {
	raw, err := parseMode(args["MODE"])
	if err != nil {
		return err
	}
	privateKey, err := resolvePrivateKey(env, args["KEY"])
	if err != nil {
		return err
	}

	var sig string
	if raw {
		sig, err = env.Backend.SignRaw(ctx, privateKey, args["DATA"])
	} else {
		sig, err = env.Backend.SignDigest(ctx, privateKey, args["DATA"])
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, sig)
	return nil
}

func verify(ctx context.Context, env *Env, args map[string]string) error {
	raw, err := parseMode(args["MODE"])
	if err != nil {
		return err
	}
	publicKey, err := resolvePublicKey(env, args["PUBKEY"])
	if err != nil {
		return err
	}

	var ok bool
	if raw {
		ok, err = env.Backend.VerifyRaw(ctx, publicKey, args["SIGNATURE"], args["DATA"])
	} else {
		ok, err = env.Backend.VerifyDigest(ctx, publicKey, args["SIGNATURE"], args["DATA"])
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, ok)
	return nil
}

func wrap(ctx context.Context, env *Env, args map[string]string) error {
	der, err := codec.DecodeHex(args["DER"])
	if err != nil {
		return err
	}
	publicKeyHex, err := resolvePublicKey(env, args["PUBKEY"])
	if err != nil {
		return err
	}
	publicKey, err := codec.DecodeHex(publicKeyHex)
	if err != nil {
		return err
	}

	e, err := envelope.FromASN1(der, publicKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, codec.EncodeHex(e.Bytes()))
	return nil
}

func unwrap(ctx context.Context, env *Env, args map[string]string) error {
	sig, err := codec.DecodeHex(args["SIGNATURE"])
	if err != nil {
		return err
	}
	e, err := envelope.Parse(sig)
	if err != nil {
		return err
	}
	der, err := e.MarshalASN1()
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, codec.EncodeHex(der))
	return nil
}

func ping(ctx context.Context, env *Env, args map[string]string) error {
	if env.Remote == nil {
		return ErrRequiresServer
	}
	if err := env.Remote.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "pong")
	return nil
}

func auditLog(ctx context.Context, env *Env, args map[string]string) error {
	if env.Remote == nil {
		return ErrRequiresServer
	}
	entries, err := env.Remote.Audit(ctx, audit.Filter{Operation: args["OPERATION"], Limit: 50})
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(env.Out, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Operation, e.Status, e.Subject)
	}
	return nil
}

func parseMode(mode string) (raw bool, err error) {
	switch mode {
	case "raw":
		return true, nil
	case "digest":
		return false, nil
	default:
		return false, fmt.Errorf("%w: MODE must be raw or digest, got %q", ErrCommandLineArgs, mode)
	}
}

// isHexLiteral reports whether s is given inline rather than as a key name.
func isHexLiteral(s string) bool {
	return strings.HasPrefix(s, "0x")
}

func lookup(env *Env, name string) (*keystore.KeyEntry, error) {
	store, err := env.Keys()
	if err != nil {
		return nil, err
	}
	entry, err := store.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return entry, nil
}

func resolvePrivateKey(env *Env, s string) (string, error) {
	if isHexLiteral(s) {
		return s, nil
	}
	entry, err := lookup(env, s)
	if err != nil {
		return "", err
	}
	return codec.EncodeHex(crypto.MarshalPrivateKey(entry.PrivateKey)), nil
}

func resolvePublicKey(env *Env, s string) (string, error) {
	if isHexLiteral(s) {
		return s, nil
	}
	entry, err := lookup(env, s)
	if err != nil {
		return "", err
	}
	return codec.EncodeHex(crypto.MarshalPublicKey(&entry.PrivateKey.PublicKey)), nil
}

// Package wallet holds the account a tip is sent from: an Ed25519 keypair
// that derives its Sui address and signs transaction intents.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Signature scheme flag for Ed25519 in Sui serialized signatures and addresses.
const flagEd25519 byte = 0x00

// transactionIntent is the intent prefix for TransactionData:
// scope TransactionData, version V0, app Sui.
var transactionIntent = []byte{0x00, 0x00, 0x00}

// Keypair is an Ed25519 Sui keypair.
type Keypair struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate seed: %w", err)
	}
	return KeypairFromSeed(seed)
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{
		priv:    priv,
		pub:     pub,
		address: DeriveAddress(pub),
	}, nil
}

// ParsePrivateKey accepts a hex seed (optionally 0x-prefixed) or a base64
// keystore entry (flag byte followed by the seed, as `sui keytool` writes it).
func ParsePrivateKey(s string) (*Keypair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	if h := strings.TrimPrefix(s, "0x"); len(h) == ed25519.SeedSize*2 {
		if seed, err := hex.DecodeString(h); err == nil {
			return KeypairFromSeed(seed)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("private key is neither hex nor base64")
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return KeypairFromSeed(raw)
	case ed25519.SeedSize + 1:
		if raw[0] != flagEd25519 {
			return nil, fmt.Errorf("unsupported key scheme flag 0x%02x", raw[0])
		}
		return KeypairFromSeed(raw[1:])
	default:
		return nil, fmt.Errorf("private key decodes to %d bytes", len(raw))
	}
}

// DeriveAddress computes blake2b-256(flag || pubkey) as a 0x-prefixed hex address.
func DeriveAddress(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, flagEd25519)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// Address returns the Sui address of the keypair.
func (k *Keypair) Address() string {
	return k.address
}

// PublicKey returns a copy of the raw public key.
func (k *Keypair) PublicKey() []byte {
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out
}

// ExportPrivateKey encodes the seed in keystore form (base64 of flag||seed).
func (k *Keypair) ExportPrivateKey() string {
	buf := append([]byte{flagEd25519}, k.priv.Seed()...)
	return base64.StdEncoding.EncodeToString(buf)
}

// SignTransaction signs full TransactionData bytes and returns the Sui
// serialized signature: base64(flag || signature || pubkey).
func (k *Keypair) SignTransaction(txBytes []byte) (string, error) {
	if len(txBytes) == 0 {
		return "", fmt.Errorf("nothing to sign")
	}
	digest := IntentDigest(txBytes)
	sig := ed25519.Sign(k.priv, digest[:])

	out := make([]byte, 0, 1+len(sig)+len(k.pub))
	out = append(out, flagEd25519)
	out = append(out, sig...)
	out = append(out, k.pub...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// IntentDigest is the message a transaction signature commits to.
func IntentDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

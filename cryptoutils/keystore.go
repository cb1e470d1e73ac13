package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ruteri/package-registry/interfaces"
	"golang.org/x/crypto/argon2"
)

// ErrKeystoreDecrypt is returned when a keystore cannot be opened with the
// given passphrase.
var ErrKeystoreDecrypt = errors.New("could not decrypt keystore")

const (
	keystoreVersion = 1
	keystoreKDF     = "argon2id"

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltSize     = 16
)

// Keystore is the on-disk form of a passphrase-sealed keypair.
type Keystore struct {
	Version    int                  `json:"version"`
	KDF        string               `json:"kdf"`
	Salt       string               `json:"salt"`
	Nonce      string               `json:"nonce"`
	Ciphertext string               `json:"ciphertext"`
	PublicKey  interfaces.PublicKey `json:"pubkey"`
}

// SealKeypair encrypts kp under a key derived from passphrase with Argon2id
// and AES-256-GCM. The public key is stored in the clear and bound as
// additional data.
func SealKeypair(kp *Keypair, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := keystoreCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	pub := kp.PublicKey()
	plaintext := kp.Bytes()
	defer wipe(plaintext)

	ciphertext := aead.Seal(nil, nonce, plaintext, pub[:])

	return json.MarshalIndent(Keystore{
		Version:    keystoreVersion,
		KDF:        keystoreKDF,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
		PublicKey:  pub,
	}, "", "  ")
}

// OpenKeypair decrypts a keystore produced by SealKeypair.
func OpenKeypair(data []byte, passphrase []byte) (*Keypair, error) {
	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("invalid keystore: %w", err)
	}
	if ks.Version != keystoreVersion || ks.KDF != keystoreKDF {
		return nil, fmt.Errorf("unsupported keystore version %d (%s)", ks.Version, ks.KDF)
	}

	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid keystore salt: %w", err)
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid keystore nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(ks.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid keystore ciphertext: %w", err)
	}

	aead, err := keystoreCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("invalid keystore nonce length %d", len(nonce))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, ks.PublicKey[:])
	if err != nil {
		return nil, ErrKeystoreDecrypt
	}
	defer wipe(plaintext)

	kp, err := NewKeypairFromBytes(plaintext)
	if err != nil {
		return nil, err
	}
	if kp.PublicKey() != ks.PublicKey {
		kp.Wipe()
		return nil, fmt.Errorf("%w: keystore public key mismatch", ErrInvalidKeypair)
	}
	return kp, nil
}

func keystoreCipher(passphrase, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

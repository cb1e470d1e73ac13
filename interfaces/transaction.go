package interfaces

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Instruction selects the state transition a transaction requests.
type Instruction uint8

const (
	InstructionCreateAuthor Instruction = iota + 1
	InstructionDeleteAuthor
	InstructionCreatePackage
)

func (i Instruction) String() string {
	switch i {
	case InstructionCreateAuthor:
		return "create_author"
	case InstructionDeleteAuthor:
		return "delete_author"
	case InstructionCreatePackage:
		return "create_package"
	default:
		return "unknown"
	}
}

// SignerRole names why a key must sign a transaction. One key may fill
// several roles with a single signature.
type SignerRole uint8

const (
	// RolePayer funds the rent of newly allocated records.
	RolePayer SignerRole = iota + 1
	// RoleAuthority controls the record.
	RoleAuthority
	// RoleOracle attests that the external identity check passed.
	RoleOracle
)

func (r SignerRole) String() string {
	switch r {
	case RolePayer:
		return "payer"
	case RoleAuthority:
		return "authority"
	case RoleOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// SignerRequirement is a role that must be covered by a signature of Key.
type SignerRequirement struct {
	Role SignerRole
	Key  PublicKey
}

// Signer produces ed25519 signatures for a public key.
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) (Signature, error)
}

const messageVersion = 1

// Message is the signed payload of a transaction.
type Message struct {
	ProgramID   PublicKey   `json:"program_id"`
	Instruction Instruction `json:"instruction"`
	Address     Address     `json:"address"`
	Bump        uint8       `json:"bump"`
	Scope       string      `json:"scope,omitempty"`
	Name        string      `json:"name"`
	Payer       PublicKey   `json:"payer"`
	Authority   PublicKey   `json:"authority"`
	Oracle      PublicKey   `json:"oracle"`
	Nonce       uint64      `json:"nonce"`
}

// Serialize returns the canonical bytes every signer signs.
func (m *Message) Serialize() ([]byte, error) {
	if len(m.Scope) > 255 || len(m.Name) > 255 {
		return nil, fmt.Errorf("%w: string field exceeds 255 bytes", ErrInvalidTransaction)
	}

	var buf bytes.Buffer
	buf.WriteByte(messageVersion)
	buf.Write(m.ProgramID[:])
	buf.WriteByte(byte(m.Instruction))
	buf.Write(m.Address[:])
	buf.WriteByte(m.Bump)
	buf.WriteByte(byte(len(m.Scope)))
	buf.WriteString(m.Scope)
	buf.WriteByte(byte(len(m.Name)))
	buf.WriteString(m.Name)
	buf.Write(m.Payer[:])
	buf.Write(m.Authority[:])
	buf.Write(m.Oracle[:])

	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], m.Nonce)
	buf.Write(nonce[:])

	return buf.Bytes(), nil
}

// RequiredSigners lists the roles that must sign this message.
func (m *Message) RequiredSigners() []SignerRequirement {
	switch m.Instruction {
	case InstructionCreateAuthor:
		return []SignerRequirement{
			{Role: RolePayer, Key: m.Payer},
			{Role: RoleAuthority, Key: m.Authority},
			{Role: RoleOracle, Key: m.Oracle},
		}
	case InstructionDeleteAuthor:
		return []SignerRequirement{
			{Role: RoleAuthority, Key: m.Authority},
		}
	case InstructionCreatePackage:
		return []SignerRequirement{
			{Role: RolePayer, Key: m.Payer},
			{Role: RoleAuthority, Key: m.Authority},
		}
	default:
		return nil
	}
}

// SignerSignature is one signer's signature over the serialized message.
type SignerSignature struct {
	Signer    PublicKey `json:"signer"`
	Signature Signature `json:"signature"`
}

// Transaction is a message plus the signatures of its required signers.
type Transaction struct {
	Message    Message           `json:"message"`
	Signatures []SignerSignature `json:"signatures"`
}

// Sign adds a signature for every signer not yet present.
func (tx *Transaction) Sign(signers ...Signer) error {
	payload, err := tx.Message.Serialize()
	if err != nil {
		return err
	}

	for _, signer := range signers {
		key := signer.PublicKey()
		if _, ok := tx.SignatureOf(key); ok {
			continue
		}
		sig, err := signer.Sign(payload)
		if err != nil {
			return fmt.Errorf("could not sign transaction as %s: %w", key, err)
		}
		tx.Signatures = append(tx.Signatures, SignerSignature{Signer: key, Signature: sig})
	}
	return nil
}

// SignatureOf returns the signature attached for key.
func (tx *Transaction) SignatureOf(key PublicKey) (Signature, bool) {
	for _, s := range tx.Signatures {
		if s.Signer == key {
			return s.Signature, true
		}
	}
	return Signature{}, false
}

// ID is the first signature, which identifies the transaction on the ledger.
func (tx *Transaction) ID() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0].Signature
}

// VerifySignatures checks that every required role is covered by a valid
// signature. It does not decide whether a key is allowed to fill a role.
// A missing or invalid oracle signature is ErrInvalidOracle and one of the
// authority is ErrAuthorityMismatch; only payer failures report
// ErrMissingSignature or ErrInvalidSignature.
func (tx *Transaction) VerifySignatures() error {
	requirements := tx.Message.RequiredSigners()
	if len(requirements) == 0 {
		return NewStoreError(ErrInvalidTransaction, "unknown instruction %d", tx.Message.Instruction)
	}

	payload, err := tx.Message.Serialize()
	if err != nil {
		return NewStoreError(ErrInvalidTransaction, "%s", err.Error())
	}

	for _, req := range requirements {
		sig, ok := tx.SignatureOf(req.Key)
		if !ok || req.Key.IsZero() {
			return signatureFailure(req.Role, ErrMissingSignature)
		}
		if !ed25519.Verify(ed25519.PublicKey(req.Key[:]), payload, sig[:]) {
			return signatureFailure(req.Role, ErrInvalidSignature)
		}
	}
	return nil
}

func signatureFailure(role SignerRole, payerKind error) error {
	switch role {
	case RoleOracle:
		return NewStoreError(ErrInvalidOracle, "not authorized")
	case RoleAuthority:
		return NewStoreError(ErrAuthorityMismatch, "not authorized")
	default:
		return NewStoreError(payerKind, "not authorized")
	}
}

// TransactionReceipt confirms a committed transaction.
type TransactionReceipt struct {
	Signature Signature `json:"signature"`
	Slot      uint64    `json:"slot"`
}

// RandomNonce returns a random message nonce. Two otherwise identical
// messages with different nonces have different signatures.
func RandomNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("could not generate nonce: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

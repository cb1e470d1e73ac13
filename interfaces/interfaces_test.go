package interfaces

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) *testSigner {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &testSigner{priv: priv}
}

func (s *testSigner) PublicKey() PublicKey {
	var key PublicKey
	copy(key[:], s.priv.Public().(ed25519.PublicKey))
	return key
}

func (s *testSigner) Sign(message []byte) (Signature, error) {
	return NewSignatureFromBytes(ed25519.Sign(s.priv, message))
}

func TestBoundedString(t *testing.T) {
	s, err := NewBoundedString("carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", s.String())
	assert.Equal(t, 5, s.Len())

	buf := s.Buffer()
	assert.Equal(t, []byte("carol"), buf[:5])
	assert.Equal(t, make([]byte, 27), buf[5:])

	full, err := NewBoundedString(strings.Repeat("a", 32))
	require.NoError(t, err)
	assert.Equal(t, 32, full.Len())

	empty, err := NewBoundedString("")
	require.NoError(t, err)
	assert.Equal(t, "", empty.String())

	_, err = NewBoundedString(strings.Repeat("a", 33))
	require.ErrorIs(t, err, ErrInvalidString)
	assert.Contains(t, err.Error(), "`src` slice is too long, maximum allowed is 32 bytes, received 33 bytes")

	_, err = NewBoundedStringFromBytes([]byte{0xff, 0xfe})
	require.ErrorIs(t, err, ErrInvalidString)
}

func TestBoundedStringFromLayout(t *testing.T) {
	var buf [BoundedStringCapacity]byte
	copy(buf[:], "dave")
	buf[10] = 'x'

	s, err := NewBoundedStringFromLayout(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, "dave", s.String())

	other, err := NewBoundedString("dave")
	require.NoError(t, err)
	assert.True(t, s.Equal(other), "padding must not take part in comparison")

	_, err = NewBoundedStringFromLayout(buf, 33)
	require.ErrorIs(t, err, ErrInvalidString)
}

func TestPublicKeyText(t *testing.T) {
	key := MustPublicKeyFromBase58("Hmo7aZ3yDGYiNsme2sFfhHqrbh6x8QuqXmWeVQtqYwGa")
	assert.Equal(t, "Hmo7aZ3yDGYiNsme2sFfhHqrbh6x8QuqXmWeVQtqYwGa", key.String())

	encoded, err := json.Marshal(struct {
		Key PublicKey `json:"key"`
	}{Key: key})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"Hmo7aZ3yDGYiNsme2sFfhHqrbh6x8QuqXmWeVQtqYwGa"}`, string(encoded))

	_, err = NewPublicKeyFromBase58("abc")
	assert.Error(t, err)
	_, err = NewPublicKeyFromBase58("0OIl")
	assert.Error(t, err)
}

func TestStoreErrorRoundTrip(t *testing.T) {
	original := NewStoreError(ErrAlreadyExists, "account %s already in use", "xyz")
	assert.Equal(t, CodeAlreadyExists, original.Code)

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded StoreError
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "account xyz already in use", decoded.Error())
	assert.ErrorIs(t, &decoded, ErrAlreadyExists)
	assert.Equal(t, CodeAlreadyExists, CodeOf(&decoded))
}

func TestAuthorizationErrorsShareMessage(t *testing.T) {
	for _, err := range []error{ErrInvalidOracle, ErrAuthorityMismatch, ErrMissingSignature, ErrInvalidSignature} {
		assert.Equal(t, "not authorized", err.Error())
	}
	assert.Equal(t, CodeInvalidOracle, CodeOf(NewStoreError(ErrInvalidOracle, "not authorized")))
	assert.Equal(t, CodeAuthorityMismatch, CodeOf(NewStoreError(ErrAuthorityMismatch, "not authorized")))
	assert.False(t, errors.Is(NewStoreError(ErrInvalidOracle, "not authorized"), ErrAuthorityMismatch))
}

func TestCorruptAccountCode(t *testing.T) {
	err := NewStoreError(ErrCorruptAccount, "author record is 8 bytes")
	assert.ErrorIs(t, err, ErrCorruptAccount)
	assert.Equal(t, CodeCorruptAccount, CodeOf(err))
	assert.Equal(t, CodeCorruptAccount, CodeOf(fmt.Errorf("%w: replay log", ErrCorruptAccount)))
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading: %w", ErrBackendUnavailable)
	assert.Equal(t, CodeBackendUnavailable, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))

	converted := AsStoreError(err)
	assert.Equal(t, CodeBackendUnavailable, converted.Code)
	assert.Equal(t, err.Error(), converted.Message)
}

func TestTransactionSignatures(t *testing.T) {
	payer := newTestSigner(t)
	oracle := newTestSigner(t)

	tx := &Transaction{Message: Message{
		Instruction: InstructionCreateAuthor,
		Name:        "carol",
		Payer:       payer.PublicKey(),
		Authority:   payer.PublicKey(),
		Oracle:      oracle.PublicKey(),
		Nonce:       7,
	}}

	err := tx.VerifySignatures()
	assert.ErrorIs(t, err, ErrMissingSignature)

	require.NoError(t, tx.Sign(payer))
	assert.Len(t, tx.Signatures, 1, "payer and authority share one signature")
	assert.ErrorIs(t, tx.VerifySignatures(), ErrInvalidOracle)

	require.NoError(t, tx.Sign(oracle))
	require.NoError(t, tx.VerifySignatures())
	assert.Equal(t, tx.Signatures[0].Signature, tx.ID())

	tx.Message.Nonce = 8
	assert.ErrorIs(t, tx.VerifySignatures(), ErrInvalidSignature)
}

func TestSignatureFailureKindFollowsRole(t *testing.T) {
	payer := newTestSigner(t)
	authority := newTestSigner(t)
	oracle := newTestSigner(t)
	other := newTestSigner(t)

	create := func() *Transaction {
		return &Transaction{Message: Message{
			Instruction: InstructionCreateAuthor,
			Name:        "carol",
			Payer:       payer.PublicKey(),
			Authority:   authority.PublicKey(),
			Oracle:      oracle.PublicKey(),
		}}
	}

	tx := create()
	require.NoError(t, tx.Sign(authority, oracle))
	assert.Equal(t, CodeMissingSignature, CodeOf(tx.VerifySignatures()))

	tx = create()
	require.NoError(t, tx.Sign(payer, oracle))
	assert.Equal(t, CodeAuthorityMismatch, CodeOf(tx.VerifySignatures()))

	tx = create()
	require.NoError(t, tx.Sign(payer, authority, other))
	forged, _ := tx.SignatureOf(other.PublicKey())
	tx.Signatures = append(tx.Signatures, SignerSignature{Signer: oracle.PublicKey(), Signature: forged})
	assert.Equal(t, CodeInvalidOracle, CodeOf(tx.VerifySignatures()))

	del := &Transaction{Message: Message{
		Instruction: InstructionDeleteAuthor,
		Name:        "carol",
		Authority:   authority.PublicKey(),
	}}
	require.NoError(t, del.Sign(other))
	sig, _ := del.SignatureOf(other.PublicKey())
	del.Signatures = []SignerSignature{{Signer: authority.PublicKey(), Signature: sig}}
	assert.Equal(t, CodeAuthorityMismatch, CodeOf(del.VerifySignatures()))
}

func TestTransactionJSON(t *testing.T) {
	signer := newTestSigner(t)
	tx := &Transaction{Message: Message{
		Instruction: InstructionCreatePackage,
		Scope:       "carol",
		Name:        "pkg",
		Payer:       signer.PublicKey(),
		Authority:   signer.PublicKey(),
	}}
	require.NoError(t, tx.Sign(signer))

	encoded, err := json.Marshal(tx)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, *tx, decoded)
	require.NoError(t, decoded.VerifySignatures())
}

func TestMessageSerializeRejectsLongFields(t *testing.T) {
	m := Message{Instruction: InstructionCreatePackage, Name: strings.Repeat("n", 256)}
	_, err := m.Serialize()
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestAccountClone(t *testing.T) {
	wallet := Account{Lamports: 5}
	assert.Equal(t, wallet, wallet.Clone())
	assert.Nil(t, wallet.Clone().Data)

	record := Account{Lamports: 7, Data: []byte{1, 2, 3}}
	clone := record.Clone()
	assert.Equal(t, record, clone)
	clone.Data[0] = 9
	assert.Equal(t, byte(1), record.Data[0])

	empty := Account{Data: []byte{}}
	assert.NotNil(t, empty.Clone().Data)
}

func TestStorageBackendLocation(t *testing.T) {
	loc, err := NewStorageBackendLocation("s3://bucket/prefix/?region=us-east-1")
	require.NoError(t, err)
	assert.True(t, loc.IsS3())
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "us-east-1", loc.GetParam("region"))

	_, err = NewStorageBackendLocation("ftp://host/path")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}

package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ruteri/package-registry/interfaces"
)

// ErrCorruptAccount is returned when persisted account data cannot be decoded.
var ErrCorruptAccount = interfaces.ErrCorruptAccount

const (
	DiscriminatorSize = 8

	boundedFieldSize = interfaces.BoundedStringCapacity + 8

	// AuthorDataSize is discriminator, bump, name and authority.
	AuthorDataSize = DiscriminatorSize + 1 + boundedFieldSize + interfaces.PublicKeySize

	// PackageDataSize is discriminator, bump, scope, name and authority.
	PackageDataSize = DiscriminatorSize + 1 + 2*boundedFieldSize + interfaces.PublicKeySize
)

var (
	authorDiscriminator  = discriminator("AuthorAccountData")
	packageDiscriminator = discriminator("PackageAccountData")
)

func discriminator(accountName string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + accountName))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EncodeAuthor serializes an author record into its account data.
func EncodeAuthor(r *interfaces.AuthorRecord) []byte {
	out := make([]byte, 0, AuthorDataSize)
	out = append(out, authorDiscriminator[:]...)
	out = append(out, r.Bump)
	out = appendBounded(out, r.Name)
	out = append(out, r.Authority[:]...)
	return out
}

// EncodePackage serializes a package record into its account data.
func EncodePackage(r *interfaces.PackageRecord) []byte {
	out := make([]byte, 0, PackageDataSize)
	out = append(out, packageDiscriminator[:]...)
	out = append(out, r.Bump)
	out = appendBounded(out, r.Scope)
	out = appendBounded(out, r.Name)
	out = append(out, r.Authority[:]...)
	return out
}

func appendBounded(out []byte, s interfaces.BoundedString) []byte {
	buf := s.Buffer()
	out = append(out, buf[:]...)
	return binary.LittleEndian.AppendUint64(out, uint64(s.Len()))
}

// KindOf returns the record kind selected by the discriminator of data.
func KindOf(data []byte) (interfaces.RecordKind, error) {
	if len(data) < DiscriminatorSize {
		return 0, fmt.Errorf("%w: %d bytes is shorter than the discriminator", ErrCorruptAccount, len(data))
	}

	var d [DiscriminatorSize]byte
	copy(d[:], data)
	switch d {
	case authorDiscriminator:
		return interfaces.KindAuthor, nil
	case packageDiscriminator:
		return interfaces.KindPackage, nil
	default:
		return 0, fmt.Errorf("%w: unknown discriminator %x", ErrCorruptAccount, d)
	}
}

// DecodeAuthor parses author account data.
func DecodeAuthor(data []byte) (*interfaces.AuthorRecord, error) {
	if kind, err := KindOf(data); err != nil {
		return nil, err
	} else if kind != interfaces.KindAuthor {
		return nil, fmt.Errorf("%w: expected author data, found %s", ErrCorruptAccount, kind)
	}
	if len(data) != AuthorDataSize {
		return nil, fmt.Errorf("%w: author data is %d bytes, expected %d", ErrCorruptAccount, len(data), AuthorDataSize)
	}

	r := decoder{data: data, off: DiscriminatorSize}
	record := &interfaces.AuthorRecord{Bump: r.u8()}
	record.Name = r.bounded()
	record.Authority = r.publicKey()
	if r.err != nil {
		return nil, r.err
	}
	return record, nil
}

// DecodePackage parses package account data.
func DecodePackage(data []byte) (*interfaces.PackageRecord, error) {
	if kind, err := KindOf(data); err != nil {
		return nil, err
	} else if kind != interfaces.KindPackage {
		return nil, fmt.Errorf("%w: expected package data, found %s", ErrCorruptAccount, kind)
	}
	if len(data) != PackageDataSize {
		return nil, fmt.Errorf("%w: package data is %d bytes, expected %d", ErrCorruptAccount, len(data), PackageDataSize)
	}

	r := decoder{data: data, off: DiscriminatorSize}
	record := &interfaces.PackageRecord{Bump: r.u8()}
	record.Scope = r.bounded()
	record.Name = r.bounded()
	record.Authority = r.publicKey()
	if r.err != nil {
		return nil, r.err
	}
	return record, nil
}

// DecodeRecord projects a program-owned account into a Record.
func DecodeRecord(address interfaces.Address, account interfaces.Account) (*interfaces.Record, error) {
	kind, err := KindOf(account.Data)
	if err != nil {
		return nil, err
	}

	record := &interfaces.Record{Address: address, Kind: kind, Lamports: account.Lamports}
	switch kind {
	case interfaces.KindAuthor:
		record.Author, err = DecodeAuthor(account.Data)
	case interfaces.KindPackage:
		record.Package, err = DecodePackage(account.Data)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// decoder reads fixed-size fields and keeps the first error.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) u8() uint8 {
	b := d.data[d.off]
	d.off++
	return b
}

func (d *decoder) bounded() interfaces.BoundedString {
	var buf [interfaces.BoundedStringCapacity]byte
	copy(buf[:], d.data[d.off:])
	d.off += interfaces.BoundedStringCapacity
	length := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8

	s, err := interfaces.NewBoundedStringFromLayout(buf, length)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrCorruptAccount, err)
	}
	return s
}

func (d *decoder) publicKey() interfaces.PublicKey {
	var key interfaces.PublicKey
	copy(key[:], d.data[d.off:])
	d.off += interfaces.PublicKeySize
	return key
}

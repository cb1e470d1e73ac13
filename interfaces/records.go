package interfaces

// RecordKind distinguishes the record types held by the registry.
type RecordKind uint8

const (
	KindAuthor RecordKind = iota + 1
	KindPackage
)

func (k RecordKind) String() string {
	switch k {
	case KindAuthor:
		return "author"
	case KindPackage:
		return "package"
	default:
		return "unknown"
	}
}

// AuthorRecord binds a verified external identity name to an authority.
type AuthorRecord struct {
	Bump      uint8
	Name      BoundedString
	Authority PublicKey
}

// PackageRecord binds a scoped package name to its publishing authority.
type PackageRecord struct {
	Bump      uint8
	Scope     BoundedString
	Name      BoundedString
	Authority PublicKey
}

// FullName returns the package name as "@scope/name".
func (p PackageRecord) FullName() string {
	return "@" + p.Scope.String() + "/" + p.Name.String()
}

// Account is the unit of ledger state. Wallet accounts have a zero owner and
// no data; record accounts are owned by the registry program.
type Account struct {
	Lamports uint64
	Owner    PublicKey
	Data     []byte
}

// Clone returns a deep copy. Nil data stays nil.
func (a Account) Clone() Account {
	clone := Account{Lamports: a.Lamports, Owner: a.Owner}
	if a.Data != nil {
		clone.Data = append([]byte{}, a.Data...)
	}
	return clone
}

// Record is a read-only projection of a live record account.
type Record struct {
	Address  Address
	Kind     RecordKind
	Lamports uint64
	Author   *AuthorRecord
	Package  *PackageRecord
}

// Authority returns the authority of whichever record the projection holds.
func (r *Record) Authority() PublicKey {
	switch {
	case r.Author != nil:
		return r.Author.Authority
	case r.Package != nil:
		return r.Package.Authority
	default:
		return PublicKey{}
	}
}

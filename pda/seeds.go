package pda

import (
	"fmt"

	"github.com/ruteri/package-registry/interfaces"
)

// AuthorNamespace separates author addresses from package addresses.
const AuthorNamespace = "authors"

// AuthorSeeds returns the seeds of the author record for name. A non-empty
// versionTag is prepended to isolate registry generations.
func AuthorSeeds(versionTag, name string) [][]byte {
	return withTag(versionTag, []byte(AuthorNamespace), []byte(name))
}

// PackageSeeds returns the seeds of the package record "@scope/name". The
// combined seed must fit MaxSeedLength.
func PackageSeeds(versionTag, scope, name string) [][]byte {
	return withTag(versionTag, []byte(scope+"/"+name))
}

func withTag(versionTag string, seeds ...[]byte) [][]byte {
	if versionTag == "" {
		return seeds
	}
	return append([][]byte{[]byte(versionTag)}, seeds...)
}

// AuthorAddress derives the canonical address and bump of an author record.
func AuthorAddress(versionTag, name string, programID interfaces.PublicKey) (interfaces.Address, uint8, error) {
	if _, err := interfaces.NewBoundedString(name); err != nil {
		return interfaces.Address{}, 0, err
	}
	return FindProgramAddress(AuthorSeeds(versionTag, name), programID)
}

// PackageAddress derives the canonical address and bump of a package record.
func PackageAddress(versionTag, scope, name string, programID interfaces.PublicKey) (interfaces.Address, uint8, error) {
	for _, field := range []string{scope, name} {
		if _, err := interfaces.NewBoundedString(field); err != nil {
			return interfaces.Address{}, 0, err
		}
	}
	address, bump, err := FindProgramAddress(PackageSeeds(versionTag, scope, name), programID)
	if err != nil {
		return interfaces.Address{}, 0, fmt.Errorf("package @%s/%s: %w", scope, name, err)
	}
	return address, bump, nil
}

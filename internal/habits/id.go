package habits

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// Kind selects the id namespace for habits vs notes.
type Kind string

const (
	KindHabit Kind = "habit"
	KindNote  Kind = "note"
)

func (k Kind) tag() string {
	if k == KindNote {
		return "n"
	}
	return "h"
}

// IDDeriver maps a spreadsheet column name to a stable entity id. The grid has
// no id column, so decoding must derive the same id for the same name on every
// parse. Swappable in case the backing store ever grows a real id column.
type IDDeriver interface {
	DeriveID(kind Kind, name string) string
}

type fnvDeriver struct{}

// DefaultDeriver derives ids from an FNV-1a hash of the column name.
var DefaultDeriver IDDeriver = fnvDeriver{}

// DeriveID returns "<tag>-<fnv1a:08x>-<bytelen:04x>". The appended byte length
// cheaply separates short strings that happen to hash alike. Not
// cryptographic; collision resistance only needs to cover tens of columns.
func (fnvDeriver) DeriveID(kind Kind, name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("%s-%08x-%04x", kind.tag(), h.Sum32(), len(name))
}

// DeriveID derives a stable id using the default deriver.
func DeriveID(kind Kind, name string) string {
	return DefaultDeriver.DeriveID(kind, name)
}

// NewID returns a random unique id for entities created through add
// operations, where no grid reconstruction is involved.
func NewID(kind Kind) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return kind.tag() + "-" + hex.EncodeToString(bytes)
}

// Package hashers provides the hash functions used when deriving storage
// keys and schema digests. Which function applies where is schema-defined,
// so everything here is exposed as a pluggable value rather than baked into
// the builders.
package hashers

import (
	"encoding/binary"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/crypto/blake2b"
)

// StorageHasher identifies the algorithm applied to one segment of a
// storage key. The Concat variants append the raw input after the hash so
// a remote scanner can recover the original key; the others are one-way.
type StorageHasher uint8

const (
	Identity StorageHasher = iota
	Blake2_128
	Blake2_128Concat
	Blake2_256
	Twox64Concat
	Twox128
	Twox256
)

var hasherNames = [...]string{
	"identity",
	"blake2_128",
	"blake2_128_concat",
	"blake2_256",
	"twox64_concat",
	"twox128",
	"twox256",
}

func (h StorageHasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return fmt.Sprintf("hasher(%d)", uint8(h))
}

// ParseStorageHasher resolves the textual name used in schema files.
func ParseStorageHasher(s string) (StorageHasher, error) {
	for i, name := range hasherNames {
		if s == name {
			return StorageHasher(i), nil
		}
	}
	return 0, fmt.Errorf("unknown storage hasher %q", s)
}

// Reversible reports whether the original input can be recovered from the
// segment bytes.
func (h StorageHasher) Reversible() bool {
	switch h {
	case Identity, Blake2_128Concat, Twox64Concat:
		return true
	default:
		return false
	}
}

// Apply returns the key segment for input: the hash output, with the raw
// input appended for the Concat variants, or the input alone for Identity.
// The result is always a fresh slice.
func (h StorageHasher) Apply(input []byte) []byte {
	switch h {
	case Identity:
		out := make([]byte, len(input))
		copy(out, input)
		return out
	case Blake2_128:
		return blake2b128(input)
	case Blake2_128Concat:
		return append(blake2b128(input), input...)
	case Blake2_256:
		sum := blake2b.Sum256(input)
		return sum[:]
	case Twox64Concat:
		return append(twox(input, 1), input...)
	case Twox128:
		return twox(input, 2)
	case Twox256:
		return twox(input, 4)
	default:
		panic(fmt.Sprintf("hashers: invalid storage hasher %d", h))
	}
}

func blake2b128(input []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(err) // only fails for bad key material, and we pass none
	}
	h.Write(input)
	return h.Sum(nil)
}

// twox concatenates words runs of seeded xxhash64 over input, seeds
// 0..words-1, each emitted little-endian. words=2 gives the 128-bit form
// used for entity and item prefixes, words=4 the 256-bit form.
func twox(input []byte, words int) []byte {
	out := make([]byte, 8*words)
	for i := 0; i < words; i++ {
		h := xxhash.NewS64(uint64(i))
		h.Write(input)
		binary.LittleEndian.PutUint64(out[8*i:], h.Sum64())
	}
	return out
}

// Hash256 is a 32-byte digest function. Schema digests treat the concrete
// algorithm as a schema-specified parameter; Blake2b256 is the default.
type Hash256 func([]byte) [32]byte

// Blake2b256 is blake2b with a 32-byte output.
func Blake2b256(input []byte) [32]byte {
	return blake2b.Sum256(input)
}

// Twox256Sum is four seeded xxhash64 runs, matching the Twox256 storage
// hasher. Not collision-resistant; only for schemas that specify it.
func Twox256Sum(input []byte) [32]byte {
	var out [32]byte
	copy(out[:], twox(input, 4))
	return out
}

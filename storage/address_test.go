package storage

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clydemeng/scalebind/hashers"
	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/scale"
)

func testSchema() *metadata.Schema {
	return &metadata.Schema{
		Entities: []metadata.Entity{
			{
				Name:  "System",
				Index: 0,
				StorageItems: []metadata.StorageItem{
					{
						Name:    "Account",
						Hashers: []hashers.StorageHasher{hashers.Blake2_128Concat},
						Keys:    []*scale.Shape{scale.ArrayOf(32, scale.Primitive(scale.KindU8))},
						Value:   scale.Primitive(scale.KindU128),
					},
					{
						Name:  "Number",
						Value: scale.Primitive(scale.KindU32),
					},
				},
			},
			{
				Name:  "Staking",
				Index: 7,
				StorageItems: []metadata.StorageItem{
					{
						Name: "ErasStakers",
						Hashers: []hashers.StorageHasher{
							hashers.Twox64Concat,
							hashers.Twox64Concat,
						},
						Keys: []*scale.Shape{
							scale.Primitive(scale.KindU32),
							scale.ArrayOf(32, scale.Primitive(scale.KindU8)),
						},
						Value: scale.Primitive(scale.KindU128),
					},
				},
			},
		},
	}
}

// The System.Account prefix is a cross-chain constant; pin it so our key
// layout matches what a live node expects.
func TestPrefixKnownVector(t *testing.T) {
	want, _ := hex.DecodeString("26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9")
	if got := Prefix("System", "Account"); !bytes.Equal(got, want) {
		t.Fatalf("Prefix(System, Account) = %x, want %x", got, want)
	}
}

func TestKeyLayout(t *testing.T) {
	s := testSchema()
	acct := bytes.Repeat([]byte{0xab}, 32)
	key, err := NewAddress("System", "Account", acct).Key(s)
	require.NoError(t, err)

	// prefix ++ blake2_128(encoded key) ++ encoded key
	require.Len(t, key, 32+16+32)
	require.Equal(t, Prefix("System", "Account"), key[:32])
	require.Equal(t, acct, key[48:], "blake2_128_concat must embed the raw key")
	require.Equal(t, hashers.Blake2_128Concat.Apply(acct), key[32:])
}

func TestKeyDeterminism(t *testing.T) {
	s := testSchema()
	a1 := NewAddress("Staking", "ErasStakers", uint32(42), bytes.Repeat([]byte{1}, 32))
	a2 := NewAddress("Staking", "ErasStakers", uint32(42), bytes.Repeat([]byte{1}, 32))
	k1, err := a1.Key(s)
	require.NoError(t, err)
	k2, err := a2.Key(s)
	require.NoError(t, err)
	require.Equal(t, k1, k2, "equal inputs must derive equal keys")

	k3, err := NewAddress("Staking", "ErasStakers", uint32(43), bytes.Repeat([]byte{1}, 32)).Key(s)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3, "a changed key part must change the bytes")
}

func TestPlainItemKey(t *testing.T) {
	key, err := NewAddress("System", "Number").Key(testSchema())
	require.NoError(t, err)
	require.Equal(t, Prefix("System", "Number"), key)
}

func TestPartialKeyIsPrefix(t *testing.T) {
	s := testSchema()
	partial, err := NewAddress("Staking", "ErasStakers", uint32(42)).Key(s)
	require.NoError(t, err)
	full, err := NewAddress("Staking", "ErasStakers", uint32(42), bytes.Repeat([]byte{1}, 32)).Key(s)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(full, partial), "partial key must prefix the full key")
}

func TestKeyErrors(t *testing.T) {
	s := testSchema()
	_, err := NewAddress("Vesting", "Vesting").Key(s)
	require.ErrorIs(t, err, metadata.ErrEntityNotFound)

	_, err = NewAddress("System", "BlockHash").Key(s)
	require.ErrorIs(t, err, metadata.ErrStorageItemNotFound)

	_, err = NewAddress("System", "Number", uint32(1)).Key(s)
	require.Error(t, err, "too many key parts must fail")

	_, err = NewAddress("System", "Account", "not bytes").Key(s)
	require.ErrorIs(t, err, scale.ErrBadShape)
}

func TestVerifyGate(t *testing.T) {
	s := testSchema()
	d := metadata.NewDigester(s)

	good, err := d.StorageDigest("System", "Account")
	require.NoError(t, err)
	require.NoError(t, NewStaticAddress("System", "Account", good).Verify(d))

	var stale [32]byte
	stale[31] = 1
	err = NewStaticAddress("System", "Account", stale).Verify(d)
	require.ErrorIs(t, err, metadata.ErrSchemaMismatch)

	// Digestless addresses skip the comparison.
	require.NoError(t, NewAddress("System", "Account").Verify(d))
}

func TestVerifyAgainstDriftedSchema(t *testing.T) {
	d := metadata.NewDigester(testSchema())
	embedded, err := d.StorageDigest("System", "Account")
	require.NoError(t, err)

	drifted := testSchema()
	drifted.Entities[0].StorageItems[0].Value = scale.CompositeOf(
		scale.Field{Name: "free", Shape: scale.Primitive(scale.KindU128)},
		scale.Field{Name: "reserved", Shape: scale.Primitive(scale.KindU128)},
	)
	err = NewStaticAddress("System", "Account", embedded).Verify(metadata.NewDigester(drifted))
	require.ErrorIs(t, err, metadata.ErrSchemaMismatch)
}

package place

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "Э6.01.01.01", NormalizeKey("  э6.01.01.01  "))
	assert.Equal(t, "100101", NormalizeKey(" 100101"))
	assert.Equal(t, "ABC.1", NormalizeKey("abc.1"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("Э6.01.01.01"))
	assert.True(t, ValidCode("э6.01.01.01"))
	assert.True(t, ValidCode("100101"))
	assert.True(t, ValidCode(" 100101 "))
	assert.False(t, ValidCode(""))
	assert.False(t, ValidCode("  "))
	assert.False(t, ValidCode("Э6.01 01"))
	assert.False(t, ValidCode("place#1"))
}

func TestScanStatusValid(t *testing.T) {
	assert.True(t, StatusOK.Valid())
	assert.True(t, StatusDiscrepancy.Valid())
	assert.True(t, StatusMissing.Valid())
	assert.True(t, StatusBroken.Valid())
	assert.False(t, ScanStatus("done").Valid())
	assert.False(t, ScanStatus("").Valid())
}

func TestAliases(t *testing.T) {
	rec := Record{PlaceCod: 100101, PlaceName: "Э6.01.01.01"}

	// Lookup by code: the code alias collapses with the lookup key.
	keys := Aliases("э6.01.01.01", rec)
	assert.Equal(t, []string{"Э6.01.01.01", "100101"}, keys)

	// Lookup by id: same two aliases, id first.
	keys = Aliases("100101", rec)
	assert.Equal(t, []string{"100101", "Э6.01.01.01"}, keys)

	// A distinct lookup key fans out to all three.
	keys = Aliases("OLD-LABEL", rec)
	assert.Len(t, keys, 3)
	assert.Contains(t, keys, "OLD-LABEL")
	assert.Contains(t, keys, "100101")
	assert.Contains(t, keys, "Э6.01.01.01")
}

func TestAliasesNeverMoreThanThree(t *testing.T) {
	rec := Record{PlaceCod: 42, PlaceName: "A.1"}
	for _, key := range []string{"A.1", "42", "B.2", "", "  a.1 "} {
		assert.LessOrEqual(t, len(Aliases(key, rec)), 3)
	}
}

func TestAliasesZeroID(t *testing.T) {
	keys := Aliases("A.1", Record{PlaceName: "A.1"})
	assert.Equal(t, []string{"A.1"}, keys)
}

func TestResolveMXType(t *testing.T) {
	assert.Equal(t, MXTypeBox, ResolveMXType("Короб", "", "", ""))
	assert.Equal(t, MXTypeBox, ResolveMXType("box L", "", "", ""))
	assert.Equal(t, MXTypeShelf, ResolveMXType("", "Полка", "", ""))
	assert.Equal(t, MXTypeShelf, ResolveMXType("", "", "", "стеллаж"))
	// Textual hint wins over dimensions.
	assert.Equal(t, MXTypeBox, ResolveMXType("Короб", "", "1200x500x400", ""))
	// Dimensions decide when text says nothing.
	assert.Equal(t, MXTypeShelf, ResolveMXType("", "", "1200x500x400", ""))
	assert.Equal(t, MXTypeBox, ResolveMXType("", "", "600x400x300", ""))
	// Cyrillic separator.
	assert.Equal(t, MXTypeShelf, ResolveMXType("", "", "1200х500х400", ""))
	// Mixed type without dimensions defaults to box.
	assert.Equal(t, MXTypeBox, ResolveMXType("Микс", "", "", ""))
	// Nothing known at all.
	assert.Equal(t, "", ResolveMXType("", "", "", ""))
}

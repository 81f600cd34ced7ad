package clarity

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainpoint/stacking-api/c32"
)

func TestUIntHex(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("0x0100000000000000000000000000000003", Hex(UInt(3)))
	assert.Equal("0x01000000000000000000000000000f4240", Hex(UInt(1000000)))
}

func TestBufferHex(t *testing.T) {
	assert.Equal(t, "0x020000000101", Hex(Buffer{0x01}))
	assert.Equal(t, "0x0200000000", Hex(Buffer{}))
}

func TestTupleSortsKeys(t *testing.T) {
	tuple := Tuple{
		"version":   Buffer{0x00},
		"hashbytes": Buffer{0xab, 0xcd},
	}
	expected := "0x0c00000002" +
		"09" + hex.EncodeToString([]byte("hashbytes")) + "0200000002abcd" +
		"07" + hex.EncodeToString([]byte("version")) + "020000000100"
	assert.Equal(t, expected, Hex(tuple))
}

func TestStandardPrincipalRoundTrip(t *testing.T) {
	assert := assert.New(t)
	addr, err := c32.Decode("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	assert.Nil(err)
	encoded := Hex(StandardPrincipal(addr))
	assert.Equal("0x0516a46ff88886c2ef9762d970b4d2c63678835bd39d", encoded)
	s, err := ToString(encoded)
	assert.Nil(err)
	assert.Equal("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", s)
}

func TestPoxAddress(t *testing.T) {
	assert := assert.New(t)
	hash, _ := hex.DecodeString("a46ff88886c2ef9762d970b4d2c63678835bd39d")
	single := PoxAddress(c32.Address{Version: c32.TestnetSingleSig, Hash160: hash})
	assert.Equal(Buffer{0x00}, single["version"])
	multi := PoxAddress(c32.Address{Version: c32.MainnetMultiSig, Hash160: hash})
	assert.Equal(Buffer{0x01}, multi["version"])
	assert.Equal(Buffer(hash), multi["hashbytes"])
}

func TestIsErr(t *testing.T) {
	assert := assert.New(t)
	isErr, err := IsErr("0x080000000000000000000000000000000003")
	assert.Nil(err)
	assert.True(isErr)
	isErr, err = IsErr("0x0703")
	assert.Nil(err)
	assert.False(isErr)
	_, err = IsErr("0x")
	assert.True(errors.Is(err, ErrMalformed))
	_, err = IsErr("zz")
	assert.True(errors.Is(err, ErrMalformed))
}

func TestToString(t *testing.T) {
	assert := assert.New(t)
	cases := map[string]string{
		"0x0703":                                 "(ok true)",
		"0x0704":                                 "(ok false)",
		"0x09":                                   "none",
		"0x080000000000000000000000000000000018": "(err 24)",
		"0x00ffffffffffffffffffffffffffffffff":   "-1",
		"0x0a01000000000000000000000000000000ff": "(some u255)",
		"0x0d000000026869":                       `"hi"`,
		"0x0e000000026869":                       `u"hi"`,
		"0x0b000000020100000000000000000000000000000001" +
			"0100000000000000000000000000000002": "(list u1 u2)",
	}
	for in, expected := range cases {
		s, err := ToString(in)
		assert.Nil(err, "decode %s", in)
		assert.Equal(expected, s)
	}
}

func TestToStringStackerInfo(t *testing.T) {
	assert := assert.New(t)
	hash, _ := hex.DecodeString("a46ff88886c2ef9762d970b4d2c63678835bd39d")
	info := Tuple{
		"amount-ustx":        UInt(90000000),
		"lock-period":        UInt(3),
		"first-reward-cycle": UInt(12),
		"pox-addr":           PoxAddress(c32.Address{Version: c32.MainnetSingleSig, Hash160: hash}),
	}
	encoded := append([]byte{TypeOptionalSome}, info.Serialize()...)
	s, err := ToString("0x" + hex.EncodeToString(encoded))
	assert.Nil(err)
	assert.Equal("(some (tuple (amount-ustx u90000000) (first-reward-cycle u12) (lock-period u3) "+
		"(pox-addr (tuple (hashbytes 0xa46ff88886c2ef9762d970b4d2c63678835bd39d) (version 0x00)))))", s)
}

func TestToStringContractPrincipal(t *testing.T) {
	hash, _ := hex.DecodeString("0000000000000000000000000000000000000000")
	raw := append([]byte{TypeContractPrinc, c32.MainnetSingleSig}, hash...)
	raw = append(raw, 3)
	raw = append(raw, "pox"...)
	s, err := ToString("0x" + hex.EncodeToString(raw))
	assert.Nil(t, err)
	assert.Equal(t, c32.Encode(c32.MainnetSingleSig, hash)+".pox", s)
}

func TestToStringMalformed(t *testing.T) {
	assert := assert.New(t)
	bad := []string{
		"0x",
		"0x01ff",
		"0x02000000ff00",
		"0x0b7fffffff",
		"0x0703ff",
		"0xff",
		"nothex",
	}
	for _, in := range bad {
		_, err := ToString(in)
		assert.True(errors.Is(err, ErrMalformed), "input %s should be malformed", in)
	}
}

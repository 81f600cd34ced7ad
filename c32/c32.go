// Package c32 decodes and encodes Stacks c32check addresses and maps them to bitcoin addresses.
package c32

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Stacks address versions
const (
	MainnetSingleSig byte = 22 // SP
	MainnetMultiSig  byte = 20 // SM
	TestnetSingleSig byte = 26 // ST
	TestnetMultiSig  byte = 21 // SN
)

var (
	ErrInvalidAddress  = errors.New("invalid stacks address")
	ErrInvalidChecksum = errors.New("invalid c32check checksum")
)

var normalizer = strings.NewReplacer("O", "0", "L", "1", "I", "1")

// Address : a decoded stacks principal
type Address struct {
	Version byte
	Hash160 []byte
}

// IsMultiSig reports whether the address is a p2sh style address
func (a Address) IsMultiSig() bool {
	return a.Version == MainnetMultiSig || a.Version == TestnetMultiSig
}

// IsMainnet reports whether the address belongs to mainnet
func (a Address) IsMainnet() bool {
	return a.Version == MainnetSingleSig || a.Version == MainnetMultiSig
}

// PoxVersion is the version byte used in a pox-addr tuple: 0x00 for p2pkh, 0x01 for p2sh
func (a Address) PoxVersion() byte {
	if a.IsMultiSig() {
		return 0x01
	}
	return 0x00
}

// String renders the address in c32check form
func (a Address) String() string {
	return Encode(a.Version, a.Hash160)
}

func checksum(version byte, data []byte) []byte {
	first := sha256.Sum256(append([]byte{version}, data...))
	second := sha256.Sum256(first[:])
	return second[:4]
}

func encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}
	n := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)
	var out []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}
	n := new(big.Int)
	base := big.NewInt(32)
	for _, c := range s[zeros:] {
		idx := strings.IndexRune(alphabet, c)
		if idx < 0 {
			return nil, fmt.Errorf("%w: bad character %q", ErrInvalidAddress, c)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(idx)))
	}
	return append(make([]byte, zeros), n.Bytes()...), nil
}

// Encode returns the c32check address for a version and hash160
func Encode(version byte, hash160 []byte) string {
	data := append(append([]byte{}, hash160...), checksum(version, hash160)...)
	return "S" + string(alphabet[version&0x1f]) + encode(data)
}

// Decode parses a c32check stacks address
func Decode(addr string) (Address, error) {
	addr = normalizer.Replace(strings.ToUpper(addr))
	if len(addr) < 6 || addr[0] != 'S' {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	version := strings.IndexByte(alphabet, addr[1])
	if version < 0 {
		return Address{}, fmt.Errorf("%w: bad version character in %s", ErrInvalidAddress, addr)
	}
	data, err := decode(addr[2:])
	if err != nil {
		return Address{}, err
	}
	if len(data) != 24 {
		return Address{}, fmt.Errorf("%w: expected 24 payload bytes, got %d", ErrInvalidAddress, len(data))
	}
	hash, sum := data[:20], data[20:]
	if !bytes.Equal(sum, checksum(byte(version), hash)) {
		return Address{}, ErrInvalidChecksum
	}
	return Address{Version: byte(version), Hash160: hash}, nil
}

// ToBase58 converts a stacks address to the bitcoin address sharing its hash160
func ToBase58(addr string) (string, error) {
	a, err := Decode(addr)
	if err != nil {
		return "", err
	}
	params := &chaincfg.TestNet3Params
	if a.IsMainnet() {
		params = &chaincfg.MainNetParams
	}
	var btcAddr btcutil.Address
	if a.IsMultiSig() {
		btcAddr, err = btcutil.NewAddressScriptHashFromHash(a.Hash160, params)
	} else {
		btcAddr, err = btcutil.NewAddressPubKeyHash(a.Hash160, params)
	}
	if err != nil {
		return "", err
	}
	return btcAddr.EncodeAddress(), nil
}

// Package clarity encodes the clarity arguments the pox contract calls need and renders
// read-only call results in clarity string form.
package clarity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/chainpoint/stacking-api/c32"
)

// type prefixes of the clarity wire format
const (
	TypeInt              byte = 0x00
	TypeUInt             byte = 0x01
	TypeBuffer           byte = 0x02
	TypeTrue             byte = 0x03
	TypeFalse            byte = 0x04
	TypeStandardPrinc    byte = 0x05
	TypeContractPrinc    byte = 0x06
	TypeResponseOk       byte = 0x07
	TypeResponseErr      byte = 0x08
	TypeOptionalNone     byte = 0x09
	TypeOptionalSome     byte = 0x0a
	TypeList             byte = 0x0b
	TypeTuple            byte = 0x0c
	TypeStringASCII      byte = 0x0d
	TypeStringUTF8       byte = 0x0e
	maxDepth                  = 16
	uint128Len                = 16
)

var ErrMalformed = errors.New("malformed clarity value")

// Value : an encodable clarity value
type Value interface {
	Serialize() []byte
}

// UInt : clarity uint, limited to uint64 range on the encode side
type UInt uint64

func (u UInt) Serialize() []byte {
	out := make([]byte, 1+uint128Len)
	out[0] = TypeUInt
	binary.BigEndian.PutUint64(out[1+8:], uint64(u))
	return out
}

// Buffer : clarity buff
type Buffer []byte

func (b Buffer) Serialize() []byte {
	out := make([]byte, 5, 5+len(b))
	out[0] = TypeBuffer
	binary.BigEndian.PutUint32(out[1:], uint32(len(b)))
	return append(out, b...)
}

// StandardPrincipal : a stacks address principal
type StandardPrincipal c32.Address

func (p StandardPrincipal) Serialize() []byte {
	out := []byte{TypeStandardPrinc, p.Version}
	return append(out, p.Hash160...)
}

// Tuple : clarity tuple, keys serialize in lexicographic order
type Tuple map[string]Value

func (t Tuple) Serialize() []byte {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]byte, 5)
	out[0] = TypeTuple
	binary.BigEndian.PutUint32(out[1:], uint32(len(keys)))
	for _, k := range keys {
		out = append(out, byte(len(k)))
		out = append(out, k...)
		out = append(out, t[k].Serialize()...)
	}
	return out
}

// Hex : 0x prefixed hex of a serialized value, as the read-only endpoint expects
func Hex(v Value) string {
	return hexutil.Encode(v.Serialize())
}

// PoxAddress builds the {version, hashbytes} tuple for a stacker's reward address
func PoxAddress(addr c32.Address) Tuple {
	return Tuple{
		"version":   Buffer{addr.PoxVersion()},
		"hashbytes": Buffer(addr.Hash160),
	}
}

// IsErr reports whether a hex encoded result is an (err ...) response
func IsErr(result string) (bool, error) {
	raw, err := hexutil.Decode(result)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw) == 0 {
		return false, ErrMalformed
	}
	return raw[0] == TypeResponseErr, nil
}

// ToString decodes a hex encoded clarity value into its clarity string representation
func ToString(result string) (string, error) {
	raw, err := hexutil.Decode(result)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r := bytes.NewReader(raw)
	s, err := readValue(r, 0)
	if err != nil {
		return "", err
	}
	if r.Len() != 0 {
		return "", fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Len())
	}
	return s, nil
}

func readN(r *bytes.Reader, n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, fmt.Errorf("%w: want %d bytes, have %d", ErrMalformed, n, r.Len())
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	_, err := r.Read(buf)
	return buf, err
}

func readUint32(r *bytes.Reader) (int, error) {
	b, err := readN(r, 4)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

func readPrincipal(r *bytes.Reader) (string, error) {
	b, err := readN(r, 21)
	if err != nil {
		return "", err
	}
	return c32.Encode(b[0], b[1:]), nil
}

func readValue(r *bytes.Reader, depth int) (string, error) {
	if depth > maxDepth {
		return "", fmt.Errorf("%w: nesting too deep", ErrMalformed)
	}
	prefix, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch prefix {
	case TypeInt, TypeUInt:
		b, err := readN(r, uint128Len)
		if err != nil {
			return "", err
		}
		n := new(big.Int).SetBytes(b)
		if prefix == TypeUInt {
			return "u" + n.String(), nil
		}
		if b[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), 128))
		}
		return n.String(), nil
	case TypeBuffer:
		n, err := readUint32(r)
		if err != nil {
			return "", err
		}
		b, err := readN(r, n)
		if err != nil {
			return "", err
		}
		return hexutil.Encode(b), nil
	case TypeTrue:
		return "true", nil
	case TypeFalse:
		return "false", nil
	case TypeStandardPrinc:
		return readPrincipal(r)
	case TypeContractPrinc:
		addr, err := readPrincipal(r)
		if err != nil {
			return "", err
		}
		l, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		name, err := readN(r, int(l))
		if err != nil {
			return "", err
		}
		return addr + "." + string(name), nil
	case TypeResponseOk, TypeResponseErr, TypeOptionalSome:
		inner, err := readValue(r, depth+1)
		if err != nil {
			return "", err
		}
		label := map[byte]string{TypeResponseOk: "ok", TypeResponseErr: "err", TypeOptionalSome: "some"}[prefix]
		return "(" + label + " " + inner + ")", nil
	case TypeOptionalNone:
		return "none", nil
	case TypeList:
		n, err := readUint32(r)
		if err != nil {
			return "", err
		}
		if n > r.Len() {
			return "", fmt.Errorf("%w: list length %d exceeds input", ErrMalformed, n)
		}
		items := []string{"list"}
		for i := 0; i < n; i++ {
			item, err := readValue(r, depth+1)
			if err != nil {
				return "", err
			}
			items = append(items, item)
		}
		return "(" + strings.Join(items, " ") + ")", nil
	case TypeTuple:
		n, err := readUint32(r)
		if err != nil {
			return "", err
		}
		if n > r.Len() {
			return "", fmt.Errorf("%w: tuple length %d exceeds input", ErrMalformed, n)
		}
		fields := []string{"tuple"}
		for i := 0; i < n; i++ {
			l, err := r.ReadByte()
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			name, err := readN(r, int(l))
			if err != nil {
				return "", err
			}
			v, err := readValue(r, depth+1)
			if err != nil {
				return "", err
			}
			fields = append(fields, "("+string(name)+" "+v+")")
		}
		return "(" + strings.Join(fields, " ") + ")", nil
	case TypeStringASCII:
		n, err := readUint32(r)
		if err != nil {
			return "", err
		}
		b, err := readN(r, n)
		if err != nil {
			return "", err
		}
		return strconv.Quote(string(b)), nil
	case TypeStringUTF8:
		n, err := readUint32(r)
		if err != nil {
			return "", err
		}
		b, err := readN(r, n)
		if err != nil {
			return "", err
		}
		return "u" + strconv.Quote(string(b)), nil
	}
	return "", fmt.Errorf("%w: unknown type prefix 0x%02x", ErrMalformed, prefix)
}

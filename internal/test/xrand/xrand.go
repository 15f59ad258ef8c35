// Package xrand generates random test inputs from crypto/rand.
package xrand

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
)

// Bytes generates random bytes with length n.
func Bytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(fmt.Sprintf("failed to generate rand bytes: %v", err))
	}
	return b
}

// String generates a random valid UTF-8 string of exactly n bytes.
func String(n int) string {
	s := strings.ToValidUTF8(string(Bytes(n)), "_")
	if len(s) > n {
		s = s[:n]
		// Cutting may split a multi-byte rune.
		s = strings.ToValidUTF8(s, "")
	}
	if len(s) < n {
		s += strings.Repeat("=", n-len(s))
	}
	return s
}

// MaskKey returns a random four byte masking key.
func MaskKey() [4]byte {
	var k [4]byte
	binary.LittleEndian.PutUint32(k[:], uint32(Int(1<<32)))
	return k
}

// Bool returns a randomly generated boolean.
func Bool() bool {
	return Int(2) == 1
}

// Int returns a randomly generated integer between [0, max).
func Int(max int) int {
	x, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to get random int: %v", err))
	}
	return int(x.Int64())
}

package controller

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/zeebo/xxh3"
)

var ErrUnknownHash = errors.New("controller: unknown hash")

const (
	HashXXH3  = "xxh3"
	HashCRC32 = "crc32"
)

// HashFunc maps a state, machine or layer name to its 32-bit hash. The same
// function must be used for every name in a database.
type HashFunc func(name string) int32

// XXH3 folds the 64-bit xxh3 digest of s into 32 bits.
func XXH3(s string) int32 {
	h := xxh3.HashString(s)
	return int32(uint32(h) ^ uint32(h>>32))
}

// CRC32 is the IEEE CRC-32 of s, the same value the engine's StringToHash
// reports at runtime.
func CRC32(s string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(s)))
}

// HashByName returns the hash function registered under name. An empty name
// selects xxh3.
func HashByName(name string) (HashFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HashXXH3:
		return XXH3, nil
	case HashCRC32:
		return CRC32, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
}

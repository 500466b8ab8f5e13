package config

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// xorKey is the fixed key XORed against a password before it is hex
// encoded for storage in the INI file: a
// repeating-key XOR, hex-encoded on the way out, decoded before XORing
// back on the way in. This only obscures the value against a casual
// read of the config file; it provides no real cryptographic secrecy.
var xorKey = []byte("davsync-xor-obscure-key-v1")

// Obscure hex-encodes plaintext XORed against xorKey, the form stored
// in the INI file. The driver reveals it before any keyring lookup.
func Obscure(plaintext string) string {
	return hex.EncodeToString(xorBytes([]byte(plaintext)))
}

// Reveal reverses Obscure. An empty string reveals to itself.
func Reveal(obscured string) (string, error) {
	if obscured == "" {
		return "", nil
	}
	data, err := hex.DecodeString(obscured)
	if err != nil {
		return "", errors.Wrap(err, "decode obscured password")
	}
	return string(xorBytes(data)), nil
}

func xorBytes(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ xorKey[i%len(xorKey)]
	}
	return out
}

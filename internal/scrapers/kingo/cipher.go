package kingo

import (
	"crypto/md5"
	"math/big"
	"strings"
)

const cipherSalt = "12749"

// EncryptedPassword derives the value the portal expects in its obfuscated
// password field.
func EncryptedPassword(username, password string) string {
	hashedPassword := upperPrefix(md5Hex(password), 30)
	return upperPrefix(md5Hex(username+hashedPassword+cipherSalt), 30)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return unpaddedHex(sum[:])
}

// unpaddedHex renders the digest as a number, so leading zero nibbles are
// dropped. The portal verifies against digests rendered the same way.
func unpaddedHex(digest []byte) string {
	return new(big.Int).SetBytes(digest).Text(16)
}

func upperPrefix(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.ToUpper(s)
}

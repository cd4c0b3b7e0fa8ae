package community

import (
	"crypto/rand"
	"fmt"
	"io"
)

const inviteAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const inviteCodeLength = 6

// inviteByteLimit is the largest multiple of len(inviteAlphabet) that fits
// in a byte. Bytes at or above it are rejected so every symbol stays
// equally likely.
const inviteByteLimit = 256 - 256%len(inviteAlphabet)

// NewInviteCode returns a 6-character uppercase base-36 token.
func NewInviteCode() (string, error) {
	return newInviteCode(rand.Reader)
}

func newInviteCode(r io.Reader) (string, error) {
	code := make([]byte, 0, inviteCodeLength)
	buf := make([]byte, 1)
	for len(code) < inviteCodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("generating invite code: %w", err)
		}
		if int(buf[0]) >= inviteByteLimit {
			continue
		}
		code = append(code, inviteAlphabet[int(buf[0])%len(inviteAlphabet)])
	}
	return string(code), nil
}

package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RoomCodeLength is the number of characters in a generated room code.
const RoomCodeLength = 6

// roomCodeAlphabet skips characters that read alike (0/O, 1/I/L).
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateRoomCode - generates a short human-shareable room code.
func GenerateRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	limit := big.NewInt(int64(len(roomCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

package utils

import (
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
)

// CalculateHash returns a quoted CRC32 of data, usable as an ETag and as a
// Braid version.
func CalculateHash(data []byte) string {
	table := crc32.MakeTable(crc32.IEEE)
	return fmt.Sprintf("\"%08x\"", crc32.Checksum(data, table))
}

// GenerateRandomID generates a random ID for subscriptions
func GenerateRandomID() string {
	return uuid.NewString()
}

package firmware

import "hash/crc32"

// Checksum is the CRC-32 (IEEE 802.3 polynomial) used throughout the
// container: header self-check, segment trailers and the signature record.
func Checksum(p []byte) uint32 {
	return crc32.ChecksumIEEE(p)
}

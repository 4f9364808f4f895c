package bundlecrypt

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
)

const (
	// ContainerMagic identifies container-framed bundles (ASCII: "BNDL")
	ContainerMagic = uint32(0x424E444C)

	// ContainerVersion is the only supported container format version
	ContainerVersion = uint16(1)

	// ContainerHeaderSize is the fixed header size in bytes
	ContainerHeaderSize = 12

	// ContainerHashSize is the size of the payload digest after the header
	ContainerHashSize = md5.Size

	// ContainerOverhead is the total framing prefix before the payload
	ContainerOverhead = ContainerHeaderSize + ContainerHashSize
)

// ContainerHeader is the fixed 12-byte prefix of a container-framed bundle.
// All fields are big-endian on the wire.
type ContainerHeader struct {
	Magic         uint32 // Must equal ContainerMagic
	Version       uint16 // Must equal ContainerVersion
	Reserved      uint16 // Must be zero
	EncryptedFlag uint32 // 0 = stored plaintext, 1 = cascading cipher
}

// ParseContainerHeader reads and validates the header from the start of a
// fetched payload.
func ParseContainerHeader(raw []byte) (*ContainerHeader, error) {
	if len(raw) < ContainerOverhead {
		return nil, NewContainerError("", "length", ErrShortPayload.Error())
	}

	h := &ContainerHeader{
		Magic:         binary.BigEndian.Uint32(raw[0:4]),
		Version:       binary.BigEndian.Uint16(raw[4:6]),
		Reserved:      binary.BigEndian.Uint16(raw[6:8]),
		EncryptedFlag: binary.BigEndian.Uint32(raw[8:12]),
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks if the header is valid
func (h *ContainerHeader) Validate() error {
	if h.Magic != ContainerMagic {
		return NewContainerError("", "magic", ErrBadMagic.Error())
	}
	if h.Version != ContainerVersion {
		return NewContainerError("", "version", ErrBadVersion.Error())
	}
	if h.Reserved != 0 {
		return NewContainerError("", "reserved", "reserved field must be zero")
	}
	if h.EncryptedFlag != 0 && h.EncryptedFlag != 1 {
		return NewContainerError("", "encryptedFlag", "encrypted flag must be 0 or 1")
	}
	return nil
}

// EncodeTo writes the 12-byte big-endian header into buf.
func (h *ContainerHeader) EncodeTo(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.Reserved)
	binary.BigEndian.PutUint32(buf[8:12], h.EncryptedFlag)
}

// DecodeBundle turns a fetched payload into its plaintext bytes.
//
// Bundles outside the container compression mode are stored verbatim and
// returned as-is. Container bundles are validated structurally, then the
// stored MD5 over the payload region is checked before any decryption is
// attempted; a mismatch never reaches the cipher. Unencrypted containers
// return the payload region unchanged.
func DecodeBundle(desc *BundleDescriptor, raw []byte) ([]byte, error) {
	if desc.CompressionMode != CompressionContainer {
		return raw, nil
	}

	header, err := ParseContainerHeader(raw)
	if err != nil {
		if ce, ok := err.(*ContainerError); ok {
			ce.Path = desc.RelativePath
		}
		return nil, err
	}

	payload := raw[ContainerOverhead:]

	stored := raw[ContainerHeaderSize:ContainerOverhead]
	computed := md5.Sum(payload)
	if [ContainerHashSize]byte(stored) != computed {
		return nil, NewIntegrityError(desc.RelativePath,
			hex.EncodeToString(stored),
			hex.EncodeToString(computed[:]))
	}

	if header.EncryptedFlag == 0 {
		return payload, nil
	}

	km := keyMaterialFor(desc, len(payload))
	plaintext := make([]byte, len(payload))
	NewStreamCipher(km).XORKeyStream(plaintext, payload)
	return plaintext, nil
}

// EncodeBundle builds a container-framed payload from plaintext. It is the
// inverse of DecodeBundle for container bundles and exists for round-trip
// tests and for re-publishing tooling; the 28-byte framing means
// desc.FileSize for such a bundle is len(plaintext) + ContainerOverhead.
func EncodeBundle(desc *BundleDescriptor, plaintext []byte, encrypted bool) []byte {
	body := plaintext
	if encrypted {
		km := keyMaterialFor(desc, len(plaintext))
		body = make([]byte, len(plaintext))
		NewStreamCipher(km).XORKeyStream(body, plaintext)
	}

	out := make([]byte, ContainerOverhead+len(body))
	h := &ContainerHeader{
		Magic:   ContainerMagic,
		Version: ContainerVersion,
	}
	if encrypted {
		h.EncryptedFlag = 1
	}
	h.EncodeTo(out[:ContainerHeaderSize])

	digest := md5.Sum(body)
	copy(out[ContainerHeaderSize:ContainerOverhead], digest[:])
	copy(out[ContainerOverhead:], body)
	return out
}

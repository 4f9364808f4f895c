package bundlecrypt

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func containerDescriptor(t *testing.T, plaintextLen int) *BundleDescriptor {
	t.Helper()
	return &BundleDescriptor{
		RelativePath:    "textures/ui_title.bundle",
		BundleName:      "ui_title",
		ContentHash:     "0123456789abcdef0123456789abcdef",
		CRC:             0xCAFED00D,
		FileSize:        int64(plaintextLen + ContainerOverhead),
		CompressionMode: CompressionContainer,
	}
}

func TestDecodeBundlePassthrough(t *testing.T) {
	desc := &BundleDescriptor{
		RelativePath:    "movies/op.usm",
		BundleName:      "op",
		FileSize:        5,
		CompressionMode: CompressionNone,
	}
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}

	out, err := DecodeBundle(desc, raw)
	if err != nil {
		t.Fatalf("DecodeBundle failed: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("non-container bundle must pass through unchanged")
	}
}

func TestDecodeBundleUnencrypted(t *testing.T) {
	plaintext := testPlaintext(300)
	desc := containerDescriptor(t, len(plaintext))
	raw := EncodeBundle(desc, plaintext, false)

	out, err := DecodeBundle(desc, raw)
	if err != nil {
		t.Fatalf("DecodeBundle failed: %v", err)
	}
	if !bytes.Equal(out, plaintext) {
		t.Error("unencrypted container decode must be the identity on the payload region")
	}
}

func TestDecodeBundleEncryptedRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 64, 512, 513, 1025} {
		plaintext := testPlaintext(size)
		desc := containerDescriptor(t, size)
		raw := EncodeBundle(desc, plaintext, true)

		if len(raw) != int(desc.FileSize) {
			t.Fatalf("size %d: encoded length %d does not match descriptor file size %d",
				size, len(raw), desc.FileSize)
		}

		out, err := DecodeBundle(desc, raw)
		if err != nil {
			t.Fatalf("size %d: DecodeBundle failed: %v", size, err)
		}
		if !bytes.Equal(out, plaintext) {
			t.Errorf("size %d: decode did not recover plaintext", size)
		}
	}
}

func TestDecodeBundleHashCorruption(t *testing.T) {
	plaintext := testPlaintext(256)
	desc := containerDescriptor(t, len(plaintext))

	// Flipping any single byte of the stored 16-byte digest must surface
	// as an integrity mismatch before decryption is attempted.
	for i := ContainerHeaderSize; i < ContainerOverhead; i++ {
		raw := EncodeBundle(desc, plaintext, true)
		raw[i] ^= 0x01

		_, err := DecodeBundle(desc, raw)
		if err == nil {
			t.Fatalf("hash byte %d: expected error", i-ContainerHeaderSize)
		}
		if !IsIntegrityError(err) {
			t.Errorf("hash byte %d: got %v, want integrity mismatch", i-ContainerHeaderSize, err)
		}
	}
}

func TestDecodeBundleMalformedHeader(t *testing.T) {
	plaintext := testPlaintext(64)
	desc := containerDescriptor(t, len(plaintext))

	corrupt := func(mutate func(raw []byte)) []byte {
		raw := EncodeBundle(desc, plaintext, true)
		mutate(raw)
		return raw
	}

	cases := []struct {
		name string
		raw  []byte
	}{
		{"short payload", []byte{0x42, 0x4E}},
		{"empty payload", nil},
		{"bad magic", corrupt(func(raw []byte) {
			binary.BigEndian.PutUint32(raw[0:4], 0x12345678)
		})},
		{"bad version", corrupt(func(raw []byte) {
			binary.BigEndian.PutUint16(raw[4:6], 2)
		})},
		{"reserved set", corrupt(func(raw []byte) {
			binary.BigEndian.PutUint16(raw[6:8], 1)
		})},
		{"bad flag", corrupt(func(raw []byte) {
			binary.BigEndian.PutUint32(raw[8:12], 2)
		})},
	}

	for _, tc := range cases {
		_, err := DecodeBundle(desc, tc.raw)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !IsContainerError(err) {
			t.Errorf("%s: got %v, want malformed container", tc.name, err)
		}
	}
}

func TestPlaintextSize(t *testing.T) {
	container := containerDescriptor(t, 1000)
	if got := container.PlaintextSize(); got != 1000 {
		t.Errorf("container plaintext size = %d, want 1000", got)
	}

	verbatim := &BundleDescriptor{FileSize: 777, CompressionMode: CompressionNone}
	if got := verbatim.PlaintextSize(); got != 777 {
		t.Errorf("verbatim plaintext size = %d, want 777", got)
	}
}

package bundlecrypt

import (
	"bytes"
	"math/rand"
	"testing"
)

func testKeyMaterial(t *testing.T, bundleName string) *KeyMaterial {
	t.Helper()
	return DeriveKeyMaterial(bundleName, 4096, "a94a8fe5ccb19ba61c4c0873d391e987", 0x1A2B3C4D)
}

// testPlaintext returns deterministic pseudo-random bytes so failures are
// reproducible.
func testPlaintext(size int) []byte {
	rng := rand.New(rand.NewSource(int64(size) + 7))
	buf := make([]byte, size)
	rng.Read(buf)
	return buf
}

func TestKeystreamDeterminism(t *testing.T) {
	km := testKeyMaterial(t, "unit/characters.bundle")
	zero := make([]byte, 3*MegaBlockSize)

	first := make([]byte, len(zero))
	NewStreamCipher(km).XORKeyStream(first, zero)

	second := make([]byte, len(zero))
	NewStreamCipher(km).XORKeyStream(second, zero)

	if !bytes.Equal(first, second) {
		t.Error("identical key material and a fresh counter must produce identical keystream")
	}
}

func TestKeystreamAvalanche(t *testing.T) {
	// Two bundle names, all other metadata equal, must diverge on the very
	// first mega-block.
	kmA := testKeyMaterial(t, "unit/characters.bundle")
	kmB := testKeyMaterial(t, "unit/characterz.bundle")

	zero := make([]byte, MegaBlockSize)
	streamA := make([]byte, MegaBlockSize)
	streamB := make([]byte, MegaBlockSize)
	NewStreamCipher(kmA).XORKeyStream(streamA, zero)
	NewStreamCipher(kmB).XORKeyStream(streamB, zero)

	differing := 0
	for i := range streamA {
		if streamA[i] != streamB[i] {
			differing++
		}
	}
	// With independent keys nearly every byte should differ; 25% is a very
	// generous floor that still catches a stuck cascade.
	if differing < MegaBlockSize/4 {
		t.Errorf("keystreams differ in only %d of %d bytes", differing, MegaBlockSize)
	}
}

func TestMegaBlocksDiverge(t *testing.T) {
	km := testKeyMaterial(t, "unit/bgm.bundle")
	zero := make([]byte, 2*MegaBlockSize)
	stream := make([]byte, len(zero))
	NewStreamCipher(km).XORKeyStream(stream, zero)

	if bytes.Equal(stream[:MegaBlockSize], stream[MegaBlockSize:]) {
		t.Error("consecutive mega-blocks produced identical keystream")
	}
}

func TestSubBlocksDiverge(t *testing.T) {
	km := testKeyMaterial(t, "unit/bgm.bundle")
	zero := make([]byte, MegaBlockSize)
	stream := make([]byte, MegaBlockSize)
	NewStreamCipher(km).XORKeyStream(stream, zero)

	for i := 1; i < subBlocksPerMega; i++ {
		prev := stream[(i-1)*subBlockSize : i*subBlockSize]
		cur := stream[i*subBlockSize : (i+1)*subBlockSize]
		if bytes.Equal(prev, cur) {
			t.Errorf("sub-blocks %d and %d are identical", i-1, i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Sizes chosen to exercise empty, sub-block, exact-mega-block, and
	// multi-mega-block-plus-remainder inputs.
	sizes := []int{0, 1, 63, 64, 511, 512, 513, 1025}

	for _, size := range sizes {
		km := testKeyMaterial(t, "unit/voice.bundle")
		plaintext := testPlaintext(size)

		ciphertext := make([]byte, size)
		NewStreamCipher(km).XORKeyStream(ciphertext, plaintext)

		if size > 0 && bytes.Equal(ciphertext, plaintext) {
			t.Errorf("size %d: ciphertext equals plaintext", size)
		}

		recovered := make([]byte, size)
		NewStreamCipher(km).XORKeyStream(recovered, ciphertext)

		if !bytes.Equal(recovered, plaintext) {
			t.Errorf("size %d: round trip did not recover plaintext", size)
		}
	}
}

func TestXORKeyStreamShortDst(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for dst shorter than src")
		}
	}()
	km := testKeyMaterial(t, "unit/voice.bundle")
	NewStreamCipher(km).XORKeyStream(make([]byte, 3), make([]byte, 4))
}

package bundlecrypt

import (
	"encoding/binary"
	"math/bits"
)

const (
	// MegaBlockSize is the keystream unit: one nonce derivation followed by
	// a cascade of eight chained sub-blocks.
	MegaBlockSize = 512

	// subBlockSize is the output size of one chained permutation.
	subBlockSize = 64

	subBlocksPerMega = MegaBlockSize / subBlockSize
)

// The constant first 4 words of the cipher state ("expand 32-byte k").
const (
	j0 uint32 = 0x61707865 // expa
	j1 uint32 = 0x3320646e // nd 3
	j2 uint32 = 0x79622d32 // 2-by
	j3 uint32 = 0x6b206574 // te k
)

// cascadeRounds is the per-sub-block round schedule. The first sub-block
// runs a full 12 rounds, the next three run 8, the final four run 4.
var cascadeRounds = [subBlocksPerMega]int{12, 8, 8, 8, 4, 4, 4, 4}

// StreamCipher generates the bundle keystream and XORs it against data.
//
// This is not standard ChaCha20. Each 512-byte mega-block derives a fresh
// 96-bit nonce from the 64-byte nonce-material pool via a counter-driven
// rotation step, then produces eight chained 64-byte sub-blocks with
// decreasing round counts, each sub-block's output feeding the next
// sub-block's pre-round state. Keystream generation is strictly sequential;
// a StreamCipher must not be shared across goroutines.
type StreamCipher struct {
	key     [8]uint32
	pool    [64]byte
	counter uint32
}

// NewStreamCipher creates a cipher for one bundle's key material with the
// mega-block counter reset to zero.
func NewStreamCipher(km *KeyMaterial) *StreamCipher {
	s := &StreamCipher{pool: km.NoncePool}
	for i := range s.key {
		s.key[i] = binary.LittleEndian.Uint32(km.Key[i*4:])
	}
	return s
}

// nextNonce derives the mega-block nonce from the pool using the counter
// value before it is incremented.
//
// The modulo constants (0xD, 0xA9, 0x895, 0x93E, 0x1B) and the offset masks
// (0x10, 0x20, 0x30) are an opaque obfuscation layer inherited from the
// upstream format. They must be reproduced exactly; any deviation breaks
// compatibility with remote content.
func (s *StreamCipher) nextNonce() [3]uint32 {
	c := s.counter

	m1 := binary.LittleEndian.Uint32(s.pool[c%0xD:])
	m2 := binary.LittleEndian.Uint32(s.pool[(c/0xA9)%0xD|0x10:])
	x1 := binary.LittleEndian.Uint32(s.pool[(c/0x895)%0xD|0x20:])
	x2 := binary.LittleEndian.Uint32(s.pool[(c/0x93E)%0xD|0x30:])

	seedPart1 := bits.RotateLeft32(m1, -int((2*((c%0x93E)/0xA9))%0x1B))
	seedPart2 := bits.RotateLeft32(m2, -int((3*(c/0x93E))%0x1B))
	seed := seedPart1 ^ seedPart2

	var nonce [3]uint32
	nonce[0] = seed
	nonce[1] = seed ^ x1
	nonce[2] = nonce[1] ^ x2
	return nonce
}

// quarterRound shuffles the bits of 4 state words with the usual
// add-rotate-xor sequence (rotations 16, 12, 8, 7).
func quarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 16)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 12)
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 8)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 7)
	return a, b, c, d
}

// megaBlock writes the next 512 keystream bytes into out.
func (s *StreamCipher) megaBlock(out *[MegaBlockSize]byte) {
	nonce := s.nextNonce()

	// Pre-increment: the new counter value seeds the state's own block
	// counter word for this mega-block.
	s.counter++

	state := [16]uint32{
		j0, j1, j2, j3,
		s.key[0], s.key[1], s.key[2], s.key[3],
		s.key[4], s.key[5], s.key[6], s.key[7],
		s.counter, nonce[0], nonce[1], nonce[2],
	}

	// prior holds the previous sub-block's output words; all-zero for the
	// first sub-block, which makes the XOR below a no-op.
	var prior [16]uint32

	for i := 0; i < subBlocksPerMega; i++ {
		var x [16]uint32
		for j := range state {
			x[j] = state[j] ^ prior[j]
		}
		y := x

		// Alternating column and diagonal quarter-rounds on x only. The
		// schedule is always even, so the loop runs whole double-rounds.
		for r := 0; r < cascadeRounds[i]; r += 2 {
			x[0], x[4], x[8], x[12] = quarterRound(x[0], x[4], x[8], x[12])
			x[1], x[5], x[9], x[13] = quarterRound(x[1], x[5], x[9], x[13])
			x[2], x[6], x[10], x[14] = quarterRound(x[2], x[6], x[10], x[14])
			x[3], x[7], x[11], x[15] = quarterRound(x[3], x[7], x[11], x[15])

			x[0], x[5], x[10], x[15] = quarterRound(x[0], x[5], x[10], x[15])
			x[1], x[6], x[11], x[12] = quarterRound(x[1], x[6], x[11], x[12])
			x[2], x[7], x[8], x[13] = quarterRound(x[2], x[7], x[8], x[13])
			x[3], x[4], x[9], x[14] = quarterRound(x[3], x[4], x[9], x[14])
		}

		// Single add-back of the pre-round working copy. y was never
		// diagonal-mixed, so this is one layer, not vanilla ChaCha20's
		// initial-state add.
		for j := range x {
			x[j] += y[j]
		}

		for j, w := range x {
			binary.LittleEndian.PutUint32(out[i*subBlockSize+j*4:], w)
		}
		prior = x

		// The state's embedded block counter advances per sub-block,
		// carrying into the first nonce word on overflow. This is separate
		// from the once-per-mega-block counter driving nonce derivation.
		state[12]++
		if state[12] == 0 {
			state[13]++
		}
	}
}

// XORKeyStream XORs each byte of src with the keystream and writes the
// result to dst. dst must be at least as long as src. A final partial
// mega-block consumes only the leading bytes of a full keystream block.
//
// Every call starts a fresh mega-block, so a bundle must be processed in a
// single call (or in exact 512-byte multiples) to stay aligned with the
// wire format.
func (s *StreamCipher) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("bundlecrypt: output smaller than input")
	}

	var ks [MegaBlockSize]byte
	for len(src) > 0 {
		s.megaBlock(&ks)
		n := len(src)
		if n > MegaBlockSize {
			n = MegaBlockSize
		}
		for i := 0; i < n; i++ {
			dst[i] = src[i] ^ ks[i]
		}
		src = src[n:]
		dst = dst[n:]
	}
}

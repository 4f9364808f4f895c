package bundlecrypt

import (
	"crypto/sha512"
	"fmt"
)

// KeyMaterial holds the per-bundle cipher inputs. It is derived on demand
// and never stored; there is no cross-bundle key reuse.
type KeyMaterial struct {
	// Key is the 256-bit cipher key.
	Key [32]byte

	// NoncePool is the 64-byte nonce-material pool sampled at shifting
	// offsets to build each mega-block's nonce.
	NoncePool [64]byte
}

// DeriveKeyMaterial computes a bundle's key material from its catalog
// metadata. The function is pure: identical inputs always produce
// identical material, so it is safe to recompute per bundle without
// synchronization.
//
// The key-material string joins the four fields with literal hyphens, the
// integers in decimal. The key is the first half of its SHA-512 digest and
// the nonce pool is the SHA-512 digest of that digest.
func DeriveKeyMaterial(bundleName string, plaintextSize int64, contentHash string, crc uint32) *KeyMaterial {
	seed := fmt.Sprintf("%s-%d-%s-%d", bundleName, plaintextSize, contentHash, crc)
	baseHash := sha512.Sum512([]byte(seed))

	km := &KeyMaterial{}
	copy(km.Key[:], baseHash[:32])
	km.NoncePool = sha512.Sum512(baseHash[:])
	return km
}

// keyMaterialFor derives material for a container-framed bundle whose
// ciphertext region is already in hand.
func keyMaterialFor(desc *BundleDescriptor, ciphertextLen int) *KeyMaterial {
	return DeriveKeyMaterial(desc.BundleName, int64(ciphertextLen), desc.ContentHash, desc.CRC)
}

package bundlecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// The master data blob sits outside the bundle container format: it is a
// single AES-256-CBC encrypted database snapshot with PKCS#7 padding, keyed
// independently of the per-bundle cascade cipher.

// DecryptMasterData decrypts the master data blob with the given key and IV
// and strips the padding.
func DecryptMasterData(key, iv, blob []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("master data key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("master data IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(blob) == 0 || len(blob)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("master data length %d is not a positive multiple of %d", len(blob), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	plaintext := make([]byte, len(blob))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, blob)
	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// EncryptMasterData is the forward transform, used by tests and publishing
// tooling.
func EncryptMasterData(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("master data key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("master data IV must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty padded data")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, errors.New("invalid PKCS#7 padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errors.New("invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-pad], nil
}

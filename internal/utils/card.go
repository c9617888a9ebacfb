package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const maskVisibleDigits = 4

// MaskCardNumber masks a card number showing only the last 4 digits.
// Example: 1234567890123456 -> **** **** **** 3456
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < maskVisibleDigits {
		return "****"
	}
	return "**** **** **** " + cardNumber[len(cardNumber)-maskVisibleDigits:]
}

// FormatCardNumber formats a 16-digit card number with spaces.
// Example: 1234567890123456 -> 1234 5678 9012 3456
func FormatCardNumber(cardNumber string) string {
	if len(cardNumber) != 16 {
		return cardNumber
	}
	var formatted strings.Builder
	for i := 0; i < len(cardNumber); i++ {
		if i > 0 && i%4 == 0 {
			formatted.WriteByte(' ')
		}
		formatted.WriteByte(cardNumber[i])
	}
	return formatted.String()
}

// IsValidCardNumber validates a 16-digit card number using the Luhn algorithm
func IsValidCardNumber(cardNumber string) bool {
	if len(cardNumber) != 16 {
		return false
	}
	sum := 0
	alternate := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		c := cardNumber[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n = (n % 10) + 1
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// CardNumberHMAC computes a deterministic digest of a card number. Used for
// duplicate lookups, since AES-CBC ciphertext differs per encryption.
func CardNumberHMAC(cardNumber, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(cardNumber))
	return hex.EncodeToString(h.Sum(nil))
}

// Encrypt encrypts a string using AES with PKCS#5/PKCS#7 padding
func Encrypt(data string, key []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Generate IV
	iv := make([]byte, aes.BlockSize)
	_, err = rand.Read(iv)
	if err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Add PKCS#5/PKCS#7 padding
	dataBytes := []byte(data)
	padding := aes.BlockSize - len(dataBytes)%aes.BlockSize
	for i := 0; i < padding; i++ {
		dataBytes = append(dataBytes, byte(padding))
	}

	// Encrypt
	ciphertext := make([]byte, len(dataBytes))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, dataBytes)

	// Combine IV and ciphertext
	final := append(iv, ciphertext...)
	return hex.EncodeToString(final), nil
}

// Decrypt decrypts a hex-encoded string using AES with PKCS#5/PKCS#7 padding
func Decrypt(encryptedData string, key []byte) (string, error) {
	if len(encryptedData) == 0 {
		return "", fmt.Errorf("encrypted data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("decryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	// Decode hex
	data, err := hex.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	// Extract IV and ciphertext
	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	if len(ciphertext) == 0 {
		return "", fmt.Errorf("ciphertext is empty")
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(ciphertext))
	}

	// Create cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	// Decrypt
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	// Remove PKCS#5/PKCS#7 padding
	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding bytes: expected %d, got %d at position %d", padding, plaintext[i], i)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}

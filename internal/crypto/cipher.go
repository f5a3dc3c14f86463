package crypto

// Cipher is the string-level encryption service used by the repository for
// sensitive subscription fields.
type Cipher struct {
	keys *KeyManager
}

// NewCipher creates a Cipher over the given key manager.
func NewCipher(keys *KeyManager) *Cipher {
	return &Cipher{keys: keys}
}

// EncryptString encrypts a string to a storable blob. The empty string is
// returned unchanged: absence of a value is not worth a ciphertext.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}
	return Encrypt([]byte(plaintext), key)
}

// DecryptString reverses EncryptString. The empty string is returned
// unchanged.
func (c *Cipher) DecryptString(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}
	plaintext, err := Decrypt(blob, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

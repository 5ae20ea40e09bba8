/*
Package security provides secrets encryption for Flotilla.

This package implements AES-256-GCM encryption for sensitive fleet data:
node SSH private keys at rest and swarm join tokens in the settings
store. The SecretsManager is the opaque encrypt/decrypt capability the
rest of the system consumes; nothing outside this package touches key
material.

# Usage

	sm, err := security.NewSecretsManagerFromPassword(passphrase)
	if err != nil {
		return err
	}

	ciphertext, err := sm.Encrypt(privateKey)
	// store ciphertext; decrypt transiently at provisioning time
	plaintext, err := sm.Decrypt(ciphertext)

String forms (EncryptString/DecryptString) wrap the ciphertext in
base64 for JSON-friendly settings values.

# Security Properties

  - AES-256-GCM authenticated encryption (confidentiality + integrity)
  - Random nonce generated per encryption, prepended to ciphertext
  - Keys derived from operator passphrases via SHA-256
  - Failures surface as *CryptoError so callers can distinguish
    credential faults from other errors
*/
package security

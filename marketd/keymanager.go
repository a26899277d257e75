package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"
)

// KeyManager manages the daemon's Ed25519 key pair for settlement receipt
// signing.
type KeyManager struct {
	privateKey ed25519.PrivateKey // Keep private - sensitive!
	PublicKey  ed25519.PublicKey
}

// NewKeyManager creates a new KeyManager and generates a fresh Ed25519 key pair
func NewKeyManager() (*KeyManager, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  publicKey,
	}, nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}
	return string(pem.EncodeToMemory(pemBlock)), nil
}

// Signer returns a COSE EdDSA signer backed by the private key.
func (km *KeyManager) Signer() (cose.Signer, error) {
	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create COSE signer: %w", err)
	}
	return signer, nil
}

package firmware

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ParsePublicKey reads an RSA public key from PEM, accepting both PKCS#1
// ("RSA PUBLIC KEY") and PKIX ("PUBLIC KEY") encodings. The key is only
// ever used to verify signature blocks; this tool never signs.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("firmware: no PEM block in key data")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("firmware: parse public key: %w", err)
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("firmware: unsupported public key type %T", pub)
	}
	return key, nil
}

// verifySignatureBlock checks block as a PKCS#1 v1.5 signature over the
// SHA-1 digest of message. SHA-1 is what the device bootloaders verify;
// this is format fidelity, not a hash choice this tool gets to make.
func verifySignatureBlock(key *rsa.PublicKey, message, block []byte) bool {
	digest := sha1.Sum(message)
	return rsa.VerifyPKCS1v15(key, crypto.SHA1, digest[:], block) == nil
}

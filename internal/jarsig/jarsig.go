// Package jarsig implements JAR signature block creation and verification.
// A real PKCS#7/CMS implementation needs an ASN.1 SignedData library that
// does not appear anywhere in the retrieval pack; the rsaBackend here
// produces and checks a minimal custom detached-signature envelope instead
// (see DESIGN.md for the justification). CryptoDisabled mirrors the
// "absent implementation" capability pattern for builds or environments
// that opt out of signing.
package jarsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrCryptoDisabled is returned by disabledBackend for every operation.
var ErrCryptoDisabled = errors.New("jarsig: signing support is disabled")

// Credentials bundles a PEM certificate and PEM private key as loaded from
// disk; Backend implementations parse them lazily so that a disabled
// backend never touches the crypto/x509 machinery at all.
type Credentials struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Backend abstracts JAR signature block creation and verification so the
// caller can swap in a no-op implementation when signing credentials are
// unavailable, without branching at every call site.
type Backend interface {
	// Sign produces a detached signature block over sf (the bytes of the
	// .SF signature file).
	Sign(sf []byte, creds Credentials) ([]byte, error)
	// Verify checks a signature block against the .SF bytes it was
	// produced from, using the given certificate's public key.
	Verify(sf, block []byte, cert *x509.Certificate) (bool, error)
}

// NewBackend returns rsaBackend when both cert and key are non-empty, and
// disabledBackend otherwise — the "absent implementation" shape used
// throughout this codebase for optional capabilities.
func NewBackend(cert, key []byte) (Backend, error) {
	if len(cert) == 0 || len(key) == 0 {
		return disabledBackend{}, nil
	}
	return rsaBackend{}, nil
}

// NewVerifyBackend returns rsaBackend when a signer's certificate is
// available, and disabledBackend otherwise. Verify never needs a private
// key, unlike Sign, so it has its own capability switch independent of
// NewBackend's signing-credentials check.
func NewVerifyBackend(cert []byte) Backend {
	if len(cert) == 0 {
		return disabledBackend{}
	}
	return rsaBackend{}
}

// ExtractCertificate pulls the first "CERTIFICATE" PEM block out of a
// signature block produced by rsaBackend.Sign, for callers that received
// the block without already knowing the signer's certificate out-of-band.
func ExtractCertificate(block []byte) (*x509.Certificate, error) {
	rest := block
	for {
		var p *pem.Block
		p, rest = pem.Decode(rest)
		if p == nil {
			return nil, fmt.Errorf("jarsig: no certificate block found in envelope")
		}
		if p.Type == "CERTIFICATE" {
			return x509.ParseCertificate(p.Bytes)
		}
	}
}

type disabledBackend struct{}

func (disabledBackend) Sign(sf []byte, creds Credentials) ([]byte, error) {
	return nil, ErrCryptoDisabled
}

func (disabledBackend) Verify(sf, block []byte, cert *x509.Certificate) (bool, error) {
	return false, ErrCryptoDisabled
}

// envelopeBlockType names the PEM block this package emits for its custom
// signature envelope, distinguishing it from a real PKCS#7 ContentInfo DER
// blob at a glance.
const envelopeBlockType = "JAVADIFF SIGNATURE BLOCK"

// rsaBackend implements Backend using RSA-PKCS1v15 over SHA-256 via the
// standard library, wrapped in a minimal envelope: a PEM block carrying the
// raw signature bytes and the DER certificate, rather than a full PKCS#7
// SignedData structure.
type rsaBackend struct{}

func (rsaBackend) Sign(sf []byte, creds Credentials) ([]byte, error) {
	keyBlock, _ := pem.Decode(creds.KeyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("jarsig: no PEM block found in private key")
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err2 != nil {
			return nil, fmt.Errorf("jarsig: parse private key: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jarsig: private key is not RSA")
		}
		key = rsaKey
	}

	certBlock, _ := pem.Decode(creds.CertPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("jarsig: no PEM block found in certificate")
	}

	digest := sha256.Sum256(sf)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("jarsig: sign: %w", err)
	}

	var out []byte
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: envelopeBlockType, Bytes: sig})...)
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certBlock.Bytes})...)
	return out, nil
}

func (rsaBackend) Verify(sf, block []byte, cert *x509.Certificate) (bool, error) {
	rest := block
	var sig []byte
	for {
		var p *pem.Block
		p, rest = pem.Decode(rest)
		if p == nil {
			break
		}
		if p.Type == envelopeBlockType {
			sig = p.Bytes
			break
		}
	}
	if sig == nil {
		return false, fmt.Errorf("jarsig: no signature block found in envelope")
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("jarsig: certificate does not carry an RSA public key")
	}

	digest := sha256.Sum256(sf)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return false, nil
	}
	return true, nil
}

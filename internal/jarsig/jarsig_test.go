package jarsig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

func selfSignedCreds(t *testing.T) Credentials {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "javadiff-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return Credentials{CertPEM: certPEM, KeyPEM: keyPEM}
}

func TestNewBackendDisabledWhenEmpty(t *testing.T) {
	b, err := NewBackend(nil, nil)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if _, ok := b.(disabledBackend); !ok {
		t.Fatalf("got %T, want disabledBackend", b)
	}
	if _, err := b.Sign([]byte("x"), Credentials{}); err != ErrCryptoDisabled {
		t.Fatalf("got %v, want ErrCryptoDisabled", err)
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	creds := selfSignedCreds(t)

	b, err := NewBackend(creds.CertPEM, creds.KeyPEM)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	sf := []byte("Signature-Version: 1.0\r\n\r\n")
	block, err := b.Sign(sf, creds)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	certBlock, _ := pem.Decode(creds.CertPEM)
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}

	ok, err := b.Verify(sf, block, cert)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to succeed")
	}
}

func TestExtractCertificateAndVerifyBackend(t *testing.T) {
	creds := selfSignedCreds(t)
	b, _ := NewBackend(creds.CertPEM, creds.KeyPEM)

	sf := []byte("Signature-Version: 1.0\r\n\r\n")
	block, err := b.Sign(sf, creds)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	cert, err := ExtractCertificate(block)
	if err != nil {
		t.Fatalf("ExtractCertificate: %v", err)
	}

	vb := NewVerifyBackend(cert.Raw)
	if _, ok := vb.(rsaBackend); !ok {
		t.Fatalf("got %T, want rsaBackend", vb)
	}
	ok, err := vb.Verify(sf, block, cert)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to succeed")
	}
}

func TestNewVerifyBackendDisabledWhenEmpty(t *testing.T) {
	if _, ok := NewVerifyBackend(nil).(disabledBackend); !ok {
		t.Fatal("expected disabledBackend for an empty certificate")
	}
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	creds := selfSignedCreds(t)
	b, _ := NewBackend(creds.CertPEM, creds.KeyPEM)

	sf := []byte("Signature-Version: 1.0\r\n\r\n")
	block, err := b.Sign(sf, creds)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	certBlock, _ := pem.Decode(creds.CertPEM)
	cert, _ := x509.ParseCertificate(certBlock.Bytes)

	tampered := append([]byte{}, sf...)
	tampered[0] = 'X'

	ok, err := b.Verify(tampered, block, cert)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail on tampered content")
	}
}

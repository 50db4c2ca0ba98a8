package crypto

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/pkcs12"
)

const (
	CertExt = ".crt.pem"
	KeyExt  = ".key.pem"
	P12Ext  = ".p12"
)

var (
	ErrCredentialNotFound = errors.New("credential_not_found")
	ErrCredentialLoad     = errors.New("credential_load")
)

// Credentials is the signing identity of one pass type. The same material
// signs bundles and authenticates to the push provider.
type Credentials struct {
	Certificate   *x509.Certificate
	PrivateKey    stdcrypto.PrivateKey
	Intermediates []*x509.Certificate
}

// TLSCertificate returns the client certificate for the push provider.
func (c *Credentials) TLSCertificate() tls.Certificate {
	chain := [][]byte{c.Certificate.Raw}
	for _, ic := range c.Intermediates {
		chain = append(chain, ic.Raw)
	}
	return tls.Certificate{Certificate: chain, PrivateKey: c.PrivateKey, Leaf: c.Certificate}
}

// FileStore loads credentials from Dir: {id}.crt.pem + {id}.key.pem, or
// {id}.p12 when the PEM pair is absent.
type FileStore struct {
	Dir        string
	Passphrase string
	WWDR       *x509.Certificate
}

// NewFileStore reads the optional WWDR intermediate certificate up front.
func NewFileStore(dir, passphrase, wwdrFile string) (*FileStore, error) {
	s := &FileStore{Dir: dir, Passphrase: passphrase}
	if wwdrFile == "" {
		return s, nil
	}
	b, err := os.ReadFile(wwdrFile)
	if err != nil {
		return nil, fmt.Errorf("read wwdr: %w", err)
	}
	leaf, _, err := parseCertificates(b)
	if err != nil {
		return nil, fmt.Errorf("parse wwdr: %w", err)
	}
	s.WWDR = leaf
	return s, nil
}

func (s *FileStore) Load(passTypeID string) (*Credentials, error) {
	if passTypeID == "" || strings.ContainsAny(passTypeID, `/\`) || strings.Contains(passTypeID, "..") {
		return nil, fmt.Errorf("%w: %q", ErrCredentialNotFound, passTypeID)
	}
	base := filepath.Join(s.Dir, passTypeID)

	creds, err := s.loadPEM(base)
	if errors.Is(err, os.ErrNotExist) {
		creds, err = s.loadP12(base + P12Ext)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, passTypeID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentialLoad, passTypeID, err)
	}
	if s.WWDR != nil {
		creds.Intermediates = append(creds.Intermediates, s.WWDR)
	}
	return creds, nil
}

func (s *FileStore) loadPEM(base string) (*Credentials, error) {
	certPEM, err := os.ReadFile(base + CertExt)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(base + KeyExt)
	if err != nil {
		return nil, err
	}
	return ParsePEM(certPEM, keyPEM, s.Passphrase)
}

func (s *FileStore) loadP12(path string) (*Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, cert, err := pkcs12.Decode(b, s.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("decode p12: %w", err)
	}
	return newCredentials(cert, nil, key)
}

// ParsePEM builds credentials from a certificate chain and a private key,
// decrypting the key with passphrase when it is encrypted.
func ParsePEM(certPEM, keyPEM []byte, passphrase string) (*Credentials, error) {
	leaf, rest, err := parseCertificates(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(keyPEM, passphrase)
	if err != nil {
		return nil, err
	}
	return newCredentials(leaf, rest, key)
}

func newCredentials(cert *x509.Certificate, intermediates []*x509.Certificate, key any) (*Credentials, error) {
	pub, ok := key.(interface{ Public() stdcrypto.PublicKey })
	if !ok {
		return nil, errors.New("unsupported private key type")
	}
	eq, ok := pub.Public().(interface{ Equal(stdcrypto.PublicKey) bool })
	if !ok || !eq.Equal(cert.PublicKey) {
		return nil, errors.New("private key does not match certificate")
	}
	return &Credentials{Certificate: cert, PrivateKey: key, Intermediates: intermediates}, nil
}

func parseCertificates(data []byte) (*x509.Certificate, []*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("parse certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, nil, errors.New("no certificate found")
	}
	return certs[0], certs[1:], nil
}

func parsePrivateKey(data []byte, passphrase string) (any, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no private key found")
		}
		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
			if err != nil {
				return nil, fmt.Errorf("decrypt pkcs8 key: %w", err)
			}
			return key, nil
		case "RSA PRIVATE KEY", "EC PRIVATE KEY", "PRIVATE KEY":
			der := block.Bytes
			//lint:ignore SA1019 legacy encrypted PEM keys are still issued by openssl
			if x509.IsEncryptedPEMBlock(block) {
				var err error
				//lint:ignore SA1019 see above
				der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
				if err != nil {
					return nil, fmt.Errorf("decrypt key: %w", err)
				}
			}
			return parseDERKey(der)
		}
	}
}

func parseDERKey(der []byte) (any, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return k, nil
		}
		return nil, errors.New("unsupported pkcs8 key type")
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, errors.New("unrecognised private key encoding")
}

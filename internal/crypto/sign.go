package crypto

import (
	"fmt"

	"go.mozilla.org/pkcs7"
)

// Sign creates a detached DER PKCS#7 SignedData (SHA-256) over data,
// embedding the signer certificate and any intermediates.
func (c *Credentials) Sign(data []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, fmt.Errorf("pkcs7 init: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(c.Certificate, c.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("pkcs7 signer: %w", err)
	}
	for _, ic := range c.Intermediates {
		sd.AddCertificate(ic)
	}
	sd.Detach()
	out, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("pkcs7 finish: %w", err)
	}
	return out, nil
}

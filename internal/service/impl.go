package service

import (
	"crypto/rand"
	"encoding/base32"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
)

// RealClock реализует Clock поверх системного времени
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// RandomTokens выдаёт base32-токены из 160 случайных бит (32 символа)
type RandomTokens struct{}

func (RandomTokens) NewToken() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// BundleBuilder собирает бандл через pkpass.Build
type BundleBuilder struct{}

func (BundleBuilder) Build(p *pkpass.Pass, signer pkpass.Signer) ([]byte, error) {
	return pkpass.Build(p, signer)
}

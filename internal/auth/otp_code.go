package auth

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const otpSecretSize = 20

// CodeGenerator produces six-digit one-time codes. Each code is an HOTP value
// over a fresh random secret and counter, so codes are uniform and unpredictable.
type CodeGenerator struct {
	digits otp.Digits
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{digits: otp.DigitsSix}
}

func (g *CodeGenerator) Generate() (string, error) {
	buf := make([]byte, otpSecretSize+8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:otpSecretSize])
	counter := binary.BigEndian.Uint64(buf[otpSecretSize:])

	code, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    g.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

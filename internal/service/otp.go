package service

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator produce codigos numericos de un solo uso.
type OTPGenerator interface {
	Generate() (string, error)
}

type randomOTPGenerator struct{}

// NewOTPGenerator devuelve un generador uniforme sobre [100000, 999999]
// alimentado por crypto/rand.
func NewOTPGenerator() OTPGenerator {
	return randomOTPGenerator{}
}

func (randomOTPGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// otpMatches compara en tiempo constante. Un codigo guardado vacio nunca coincide.
func otpMatches(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

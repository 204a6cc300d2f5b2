package verification

import (
	"crypto/rand"
	"math/big"
)

const (
	// CodeLength es el largo del código de un solo uso.
	CodeLength = 8
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var alphabetLen = big.NewInt(int64(len(alphabet)))

// NewCode genera un código alfanumérico uniforme de CodeLength caracteres.
func NewCode() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

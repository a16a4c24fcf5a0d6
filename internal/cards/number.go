package cards

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	numberLength = 16
	cvvLength    = 3
)

// prefixes lists issuer identification prefixes per network.
var prefixes = map[PaymentSystem][]string{
	PaymentVisa:       {"4"},
	PaymentMastercard: {"51", "52", "53", "54", "55"},
	PaymentMir:        {"2200", "2201", "2202", "2203", "2204"},
}

// NumberGenerator draws card numbers and CVVs from a random source.
type NumberGenerator struct {
	random io.Reader
}

// NewNumberGenerator uses crypto/rand when random is nil.
func NewNumberGenerator(random io.Reader) *NumberGenerator {
	if random == nil {
		random = rand.Reader
	}
	return &NumberGenerator{random: random}
}

// Number returns a Luhn-valid 16 digit number for ps.
func (g *NumberGenerator) Number(ps PaymentSystem) (string, error) {
	options, ok := prefixes[ps]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentSystem, ps)
	}
	pick, err := g.digit(len(options))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(options[pick])
	for b.Len() < numberLength-1 {
		d, err := g.digit(10)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d))
	}
	body := b.String()
	return body + string(rune('0'+luhnCheckDigit(body))), nil
}

// CVV returns three random digits.
func (g *NumberGenerator) CVV() (string, error) {
	out := make([]byte, cvvLength)
	for i := range out {
		d, err := g.digit(10)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d)
	}
	return string(out), nil
}

func (g *NumberGenerator) digit(n int) (int, error) {
	v, err := rand.Int(g.random, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("cards: random digit: %w", err)
	}
	return int(v.Int64()), nil
}

// LuhnValid reports whether number passes the Luhn checksum.
func LuhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// luhnCheckDigit computes the digit that makes body+digit Luhn-valid.
func luhnCheckDigit(body string) int {
	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

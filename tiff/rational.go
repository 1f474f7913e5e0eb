package tiff

import (
	"fmt"
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// ErrZeroDenominator is returned when a rational with a zero denominator is
// converted to an exact value.
var ErrZeroDenominator = errors.New("tiff: rational has zero denominator")

// Rational is a RATIONAL or SRATIONAL component. Numerator and Denominator
// hold uint32 values when Signed is false and int32 values otherwise.
type Rational struct {
	Numerator   int64
	Denominator int64
	Signed      bool
}

// NewRational returns an unsigned rational.
func NewRational(num, den uint32) Rational {
	return Rational{Numerator: int64(num), Denominator: int64(den)}
}

// NewSignedRational returns a signed rational.
func NewSignedRational(num, den int32) Rational {
	return Rational{Numerator: int64(num), Denominator: int64(den), Signed: true}
}

// FromFloat64 returns the rational closest to f whose terms fit the 32-bit
// encoding selected by signed. Integral values are encoded as f/1. Negative
// values clamp to zero for unsigned rationals; NaN encodes as 0/0.
func FromFloat64(f float64, signed bool) Rational {
	if math.IsNaN(f) {
		return Rational{Signed: signed}
	}
	maxTerm := float64(math.MaxUint32)
	if signed {
		maxTerm = math.MaxInt32
	}

	neg := f < 0
	if neg {
		if !signed {
			return Rational{Denominator: 1}
		}
		f = -f
	}
	if f >= maxTerm {
		return withSign(int64(maxTerm), 1, neg, signed)
	}
	if f == math.Trunc(f) {
		return withSign(int64(f), 1, neg, signed)
	}

	// continued fraction expansion, keeping the last convergent in range
	var h0, h1 float64 = 0, 1
	var k0, k1 float64 = 1, 0
	x := f
	for i := 0; i < 64; i++ {
		a := math.Floor(x)
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if h2 > maxTerm || k2 > maxTerm {
			break
		}
		h0, h1 = h1, h2
		k0, k1 = k1, k2
		frac := x - a
		if frac < 1e-12 || math.Abs(f-h1/k1) < 1e-12*f {
			break
		}
		x = 1 / frac
	}
	if k1 == 0 {
		return withSign(int64(math.Round(f)), 1, neg, signed)
	}
	return withSign(int64(h1), int64(k1), neg, signed)
}

func withSign(num, den int64, neg, signed bool) Rational {
	if neg {
		num = -num
	}
	return Rational{Numerator: num, Denominator: den, Signed: signed}
}

// Float64 returns Numerator/Denominator, or NaN if the denominator is zero.
func (r Rational) Float64() float64 {
	if r.Denominator == 0 {
		return math.NaN()
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// Rat returns r as an exact rational number.
func (r Rational) Rat() (*big.Rat, error) {
	if r.Denominator == 0 {
		return nil, ErrZeroDenominator
	}
	return big.NewRat(r.Numerator, r.Denominator), nil
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

// Type returns the TIFF type r encodes as.
func (r Rational) Type() DataType {
	if r.Signed {
		return DTSRational
	}
	return DTRational
}

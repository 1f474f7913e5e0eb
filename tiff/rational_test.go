package tiff

import (
	"math"
	"testing"
)

func TestFromFloat64(t *testing.T) {
	tests := []struct {
		in     float64
		signed bool
		want   Rational
	}{
		{72, false, NewRational(72, 1)},
		{96, false, NewRational(96, 1)},
		{0, false, NewRational(0, 1)},
		{72.5, false, NewRational(145, 2)},
		{0.25, false, NewRational(1, 4)},
		{1.0 / 3.0, false, NewRational(1, 3)},
		{-1.5, true, NewSignedRational(-3, 2)},
		{-1.5, false, NewRational(0, 1)},
		{1e12, false, NewRational(math.MaxUint32, 1)},
		{1e12, true, NewSignedRational(math.MaxInt32, 1)},
	}
	for _, tt := range tests {
		got := FromFloat64(tt.in, tt.signed)
		if got != tt.want {
			t.Errorf("FromFloat64(%v, %v) = %v (signed=%v), want %v", tt.in, tt.signed, got, got.Signed, tt.want)
		}
	}
}

func TestFromFloat64Precision(t *testing.T) {
	for _, f := range []float64{math.Pi, 2.54, 299.9999, 0.0001} {
		r := FromFloat64(f, false)
		if r.Numerator > math.MaxUint32 || r.Denominator > math.MaxUint32 {
			t.Fatalf("%v: terms out of range: %v", f, r)
		}
		if math.Abs(r.Float64()-f) > 1e-9*math.Max(1, f) {
			t.Errorf("%v: approximation %v = %v too far off", f, r, r.Float64())
		}
	}
}

func TestRationalZeroDenominator(t *testing.T) {
	r := NewRational(1, 0)
	if !math.IsNaN(r.Float64()) {
		t.Errorf("Float64() = %v, want NaN", r.Float64())
	}
	if _, err := r.Rat(); err != ErrZeroDenominator {
		t.Errorf("Rat() err = %v, want ErrZeroDenominator", err)
	}

	rat, err := NewSignedRational(-6, 4).Rat()
	if err != nil {
		t.Fatal(err)
	}
	if rat.String() != "-3/2" {
		t.Errorf("Rat() = %v, want -3/2", rat)
	}
}

func TestRationalType(t *testing.T) {
	if NewRational(1, 2).Type() != DTRational {
		t.Error("unsigned rational should encode as DTRational")
	}
	if NewSignedRational(1, 2).Type() != DTSRational {
		t.Error("signed rational should encode as DTSRational")
	}
}

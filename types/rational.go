package types

import (
	"fmt"
)

type Rational struct {
	Num int
	Den int
}

func NewRational(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

func (r Rational) Reverse() Rational {
	return Rational{
		Num: r.Den,
		Den: r.Num,
	}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

package lib

import (
	"bytes"
	"io"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

/* This file implements the 128-bit token amounts used across the engine; products are taken in 256 bits */

// Near tags an Amount denominated in yocto-NEAR
type Near struct{}

// Stake tags an Amount denominated in yocto-STAKE (the share token)
type Stake struct{}

// Denomination is the set of units an Amount may be expressed in
type Denomination interface{ Near | Stake }

// Amount is an unsigned 128-bit quantity of a single denomination
type Amount[D Denomination] struct {
	v uint256.Int
}

type (
	YoctoNear  = Amount[Near]
	YoctoStake = Amount[Stake]
)

var (
	maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	// Yocto is the number of smallest units in one whole token (10^24)
	Yocto = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(24))
)

// NewAmount() creates an amount from a uint64
func NewAmount[D Denomination](v uint64) (a Amount[D]) {
	a.v.SetUint64(v)
	return
}

func NewYoctoNear(v uint64) YoctoNear { return NewAmount[Near](v) }
func NewYoctoStake(v uint64) YoctoStake { return NewAmount[Stake](v) }

// OneNear() is 10^24 yocto-NEAR
func OneNear() (a YoctoNear) {
	a.v.Set(Yocto)
	return
}

// OneStake() is 10^24 yocto-STAKE
func OneStake() (a YoctoStake) {
	a.v.Set(Yocto)
	return
}

// NearToYocto() converts whole NEAR into yocto-NEAR
func NearToYocto(n uint64) YoctoNear {
	a, err := OneNear().MulUint64(n)
	if err != nil {
		panic(err)
	}
	return a
}

// StakeToYocto() converts whole STAKE into yocto-STAKE
func StakeToYocto(n uint64) YoctoStake {
	a, err := OneStake().MulUint64(n)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromInt() converts a 256-bit integer, failing when it does not fit 128 bits
func AmountFromInt[D Denomination](x *uint256.Int) (a Amount[D], err ErrorI) {
	if x.Gt(maxUint128) {
		return a, ErrAmountOverflow()
	}
	a.v.Set(x)
	return
}

// ParseAmount() parses a base 10 string
func ParseAmount[D Denomination](s string) (a Amount[D], err ErrorI) {
	x, e := uint256.FromDecimal(s)
	if e != nil {
		return a, ErrParseAmount(s)
	}
	return AmountFromInt[D](x)
}

func ParseYoctoNear(s string) (YoctoNear, ErrorI) { return ParseAmount[Near](s) }
func ParseYoctoStake(s string) (YoctoStake, ErrorI) { return ParseAmount[Stake](s) }

// MustParseYoctoNear() parses or panics; for constants only
func MustParseYoctoNear(s string) YoctoNear {
	a, err := ParseYoctoNear(s)
	if err != nil {
		panic(err)
	}
	return a
}

// MustParseYoctoStake() parses or panics; for constants only
func MustParseYoctoStake(s string) YoctoStake {
	a, err := ParseYoctoStake(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Int() returns a copy of the underlying 256-bit integer
func (a Amount[D]) Int() *uint256.Int { return new(uint256.Int).Set(&a.v) }

func (a Amount[D]) IsZero() bool { return a.v.IsZero() }
func (a Amount[D]) Cmp(b Amount[D]) int { return a.v.Cmp(&b.v) }
func (a Amount[D]) Equal(b Amount[D]) bool { return a.v.Eq(&b.v) }
func (a Amount[D]) LT(b Amount[D]) bool { return a.v.Lt(&b.v) }
func (a Amount[D]) GT(b Amount[D]) bool { return a.v.Gt(&b.v) }
func (a Amount[D]) GTE(b Amount[D]) bool { return !a.v.Lt(&b.v) }
func (a Amount[D]) String() string { return a.v.Dec() }
func (a Amount[D]) Uint64() (uint64, bool) { return a.v.Uint64(), a.v.IsUint64() }
func (a Amount[D]) Float64() (f float64) {
	f, _ = new(big.Float).SetInt(a.v.ToBig()).Float64()
	return
}

// Add() returns a+b or an overflow error if the sum needs more than 128 bits
func (a Amount[D]) Add(b Amount[D]) (Amount[D], ErrorI) {
	return AmountFromInt[D](new(uint256.Int).Add(&a.v, &b.v))
}

// Sub() returns a-b or an underflow error
func (a Amount[D]) Sub(b Amount[D]) (res Amount[D], err ErrorI) {
	if a.v.Lt(&b.v) {
		return res, ErrAmountUnderflow()
	}
	res.v.Sub(&a.v, &b.v)
	return
}

// SaturatingSub() returns a-b floored at zero
func (a Amount[D]) SaturatingSub(b Amount[D]) (res Amount[D]) {
	if a.v.Gt(&b.v) {
		res.v.Sub(&a.v, &b.v)
	}
	return
}

// MulUint64() returns a*n
func (a Amount[D]) MulUint64(n uint64) (Amount[D], ErrorI) {
	return AmountFromInt[D](new(uint256.Int).Mul(&a.v, uint256.NewInt(n)))
}

// Percent() returns floor(a * pct / 100)
func (a Amount[D]) Percent(pct uint8) Amount[D] {
	var res Amount[D]
	res.v.Div(new(uint256.Int).Mul(&a.v, uint256.NewInt(uint64(pct))), uint256.NewInt(100))
	return res
}

// MinAmount() returns the smaller of a and b
func MinAmount[D Denomination](a, b Amount[D]) Amount[D] {
	if a.LT(b) {
		return a
	}
	return b
}

// MulDiv() returns floor(x * num / den) with a 256-bit intermediate product
// the result takes the denomination of num, so x and den must share a denomination
func MulDiv[From, To Denomination](x Amount[From], num Amount[To], den Amount[From]) (Amount[To], ErrorI) {
	if den.IsZero() {
		return Amount[To]{}, ErrDivideByZero()
	}
	// both operands are at most 128 bits so the product never overflows 256 bits
	res, _ := new(uint256.Int).MulDivOverflow(&x.v, &num.v, &den.v)
	return AmountFromInt[To](res)
}

// MulDivCeil() is MulDiv() rounded up
func MulDivCeil[From, To Denomination](x Amount[From], num Amount[To], den Amount[From]) (Amount[To], ErrorI) {
	if den.IsZero() {
		return Amount[To]{}, ErrDivideByZero()
	}
	res, _ := new(uint256.Int).MulDivOverflow(&x.v, &num.v, &den.v)
	if !new(uint256.Int).MulMod(&x.v, &num.v, &den.v).IsZero() {
		res.AddUint64(res, 1)
	}
	return AmountFromInt[To](res)
}

// Convert() reinterprets the amount in another denomination at a 1:1 rate
func Convert[To, From Denomination](a Amount[From]) (res Amount[To]) {
	res.v.Set(&a.v)
	return
}

// EncodeRLP() writes the amount as an rlp big integer
func (a Amount[D]) EncodeRLP(w io.Writer) error { return rlp.Encode(w, a.v.ToBig()) }

// DecodeRLP() reads an rlp big integer, failing when it does not fit 128 bits
func (a *Amount[D]) DecodeRLP(s *rlp.Stream) error {
	b, err := s.BigInt()
	if err != nil {
		return err
	}
	x, overflow := uint256.FromBig(b)
	if overflow {
		return ErrAmountOverflow()
	}
	parsed, e := AmountFromInt[D](x)
	if e != nil {
		return e
	}
	*a = parsed
	return nil
}

// MarshalJSON() encodes the amount as a quoted base 10 string
func (a Amount[D]) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.v.Dec())), nil
}

// UnmarshalJSON() accepts a quoted base 10 string or a bare JSON number
func (a *Amount[D]) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		a.v.Clear()
		return nil
	}
	parsed, err := ParseAmount[D](s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

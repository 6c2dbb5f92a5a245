package lib

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	max := MustParseYoctoNear("340282366920938463463374607431768211455") // 2^128-1
	tests := []struct {
		name     string
		detail   string
		fn       func() (YoctoNear, ErrorI)
		expected string
		error    string
	}{
		{
			name:     "add",
			detail:   "plain addition",
			fn:       func() (YoctoNear, ErrorI) { return NewYoctoNear(2).Add(NewYoctoNear(3)) },
			expected: "5",
		},
		{
			name:     "add overflow",
			detail:   "a sum above 128 bits is rejected",
			fn:       func() (YoctoNear, ErrorI) { return max.Add(NewYoctoNear(1)) },
			error:    "128 bits",
		},
		{
			name:     "sub",
			detail:   "plain subtraction",
			fn:       func() (YoctoNear, ErrorI) { return NewYoctoNear(5).Sub(NewYoctoNear(3)) },
			expected: "2",
		},
		{
			name:     "sub underflow",
			detail:   "a negative result is rejected",
			fn:       func() (YoctoNear, ErrorI) { return NewYoctoNear(3).Sub(NewYoctoNear(5)) },
			error:    "underflow",
		},
		{
			name:     "mul overflow",
			detail:   "a product above 128 bits is rejected",
			fn:       func() (YoctoNear, ErrorI) { return max.MulUint64(2) },
			error:    "128 bits",
		},
		{
			name:     "whole near",
			detail:   "whole tokens carry 24 decimals",
			fn:       func() (YoctoNear, ErrorI) { return NearToYocto(3), nil },
			expected: "3000000000000000000000000",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.fn()
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got.String())
		})
	}
}

func TestMulDiv(t *testing.T) {
	max := MustParseYoctoNear("340282366920938463463374607431768211455")
	maxStake := MustParseYoctoStake("340282366920938463463374607431768211455")
	tests := []struct {
		name     string
		detail   string
		x        YoctoNear
		num      YoctoStake
		den      YoctoNear
		expected string
		error    string
	}{
		{
			name:     "floor",
			detail:   "the quotient is rounded down",
			x:        NewYoctoNear(10),
			num:      NewYoctoStake(1),
			den:      NewYoctoNear(3),
			expected: "3",
		},
		{
			name:     "wide intermediate",
			detail:   "the 256-bit product of two 128-bit operands does not overflow",
			x:        max,
			num:      maxStake,
			den:      max,
			expected: maxStake.String(),
		},
		{
			name:   "result overflow",
			detail: "a quotient above 128 bits is rejected",
			x:      max,
			num:    maxStake,
			den:    NewYoctoNear(1),
			error:  "128 bits",
		},
		{
			name:   "zero denominator",
			detail: "dividing by zero is rejected",
			x:      NewYoctoNear(1),
			num:    NewYoctoStake(1),
			error:  "divide by zero",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := MulDiv(test.x, test.num, test.den)
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got.String())
		})
	}
}

func TestMulDivCeil(t *testing.T) {
	got, err := MulDivCeil(NewYoctoNear(10), NewYoctoStake(1), NewYoctoNear(3))
	require.NoError(t, err)
	require.Equal(t, "4", got.String())
	// exact quotients are not rounded
	got, err = MulDivCeil(NewYoctoNear(9), NewYoctoStake(1), NewYoctoNear(3))
	require.NoError(t, err)
	require.Equal(t, "3", got.String())
	_, err = MulDivCeil(NewYoctoNear(9), NewYoctoStake(1), NewYoctoNear(0))
	require.ErrorContains(t, err, "divide by zero")
	require.Equal(t, "7", Convert[Stake](NewYoctoNear(7)).String())
}

func TestAmountHelpers(t *testing.T) {
	require.Equal(t, "0", NewYoctoNear(3).SaturatingSub(NewYoctoNear(5)).String())
	require.Equal(t, "25", NewYoctoNear(50).Percent(50).String())
	require.Equal(t, "33", NewYoctoNear(100).Percent(33).String())
	require.Equal(t, "2", MinAmount(NewYoctoNear(2), NewYoctoNear(3)).String())
	require.True(t, NewYoctoNear(3).GTE(NewYoctoNear(3)))
	require.True(t, NewYoctoNear(2).LT(NewYoctoNear(3)))
	require.InDelta(t, 1.5, NearToYocto(3).Float64()/NearToYocto(2).Float64(), 1e-9)
	_, err := ParseYoctoNear("-1")
	require.ErrorContains(t, err, "unable to parse")
}

func TestAmountJSON(t *testing.T) {
	type wrapper struct {
		Near  YoctoNear  `json:"near"`
		Stake YoctoStake `json:"stake"`
	}
	expected := wrapper{Near: NearToYocto(1), Stake: NewYoctoStake(7)}
	bz, err := json.Marshal(expected)
	require.NoError(t, err)
	require.JSONEq(t, `{"near":"1000000000000000000000000","stake":"7"}`, string(bz))
	got := wrapper{}
	require.NoError(t, json.Unmarshal(bz, &got))
	require.Equal(t, expected, got)
	// bare numbers are accepted too
	require.NoError(t, json.Unmarshal([]byte(`{"near":12,"stake":"3"}`), &got))
	require.Equal(t, "12", got.Near.String())
}

func TestAmountRLP(t *testing.T) {
	max := MustParseYoctoNear("340282366920938463463374607431768211455") // 2^128-1
	tests := []struct {
		name   string
		detail string
		amount YoctoNear
	}{
		{
			name:   "zero",
			detail: "zero encodes as the empty string",
			amount: YoctoNear{},
		},
		{
			name:   "one near",
			detail: "a 24 decimal amount survives the store codec",
			amount: OneNear(),
		},
		{
			name:   "max",
			detail: "the largest 128 bit amount survives the store codec",
			amount: max,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bz, err := Marshal(&test.amount)
			require.NoError(t, err)
			var got YoctoNear
			require.NoError(t, Unmarshal(bz, &got))
			require.Equal(t, test.amount, got)
		})
	}
}

func TestAmountRLPOverflow(t *testing.T) {
	// 2^128 does not fit an amount
	bz, err := rlp.EncodeToBytes(new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)
	var got YoctoStake
	require.Error(t, Unmarshal(bz, &got))
}

package sqrtmath

import (
	"testing"

	"github.com/holiman/uint256"
)

func q96Mul(x uint64) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(x), 96)
}

func TestAmount0Delta(t *testing.T) {
	// Price 1 -> price 4: sqrt ratio doubles. amount0 = L * (b-a) * 2^96 / (a*b).
	sqrtA := q96Mul(1)
	sqrtB := q96Mul(2)
	liquidity := uint256.NewInt(4)

	got, err := Amount0Delta(sqrtA, sqrtB, liquidity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(2)) {
		t.Fatalf("amount0 mismatch: %s", got.Dec())
	}

	// Order of the two prices must not matter.
	swapped, err := Amount0Delta(sqrtB, sqrtA, liquidity, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !swapped.Eq(got) {
		t.Fatalf("amount0 depends on argument order: %s", swapped.Dec())
	}
}

func TestAmount1Delta(t *testing.T) {
	sqrtA := q96Mul(1)
	sqrtB := q96Mul(2)
	liquidity := uint256.NewInt(4)

	got, err := Amount1Delta(sqrtA, sqrtB, liquidity, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Eq(uint256.NewInt(4)) {
		t.Fatalf("amount1 mismatch: %s", got.Dec())
	}
}

func TestAmount0DeltaSigned(t *testing.T) {
	sqrtA := q96Mul(1)
	sqrtB := q96Mul(2)
	negLiquidity := new(uint256.Int).Neg(uint256.NewInt(4))

	got, err := Amount0DeltaSigned(sqrtA, sqrtB, negLiquidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sign() >= 0 {
		t.Fatalf("expected negative amount, got %s", got.Dec())
	}
	if !new(uint256.Int).Neg(got).Eq(uint256.NewInt(2)) {
		t.Fatalf("signed amount0 magnitude mismatch: %s", got.Dec())
	}
}

func TestNextSqrtPriceFromInputToken1(t *testing.T) {
	// Adding token1 pushes the price up by amount * 2^96 / liquidity.
	next, err := NextSqrtPriceFromInput(q96Mul(1), uint256.NewInt(10), uint256.NewInt(10), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Eq(q96Mul(2)) {
		t.Fatalf("next price mismatch: %s", next.Dec())
	}
}

func TestNextSqrtPriceFromInputToken0(t *testing.T) {
	next, err := NextSqrtPriceFromInput(q96Mul(1), uint256.NewInt(10), uint256.NewInt(10), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 95)
	if !next.Eq(want) {
		t.Fatalf("next price mismatch: %s", next.Dec())
	}
}

func TestNextSqrtPriceFromInputZeroAmount(t *testing.T) {
	price := q96Mul(1)
	next, err := NextSqrtPriceFromInput(price, uint256.NewInt(10), uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Eq(price) {
		t.Fatalf("zero input must not move the price: %s", next.Dec())
	}
}

func TestNextSqrtPriceFromInputZeroLiquidity(t *testing.T) {
	if _, err := NextSqrtPriceFromInput(q96Mul(1), uint256.NewInt(0), uint256.NewInt(1), true); err != ErrPriceOverflow {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestNextSqrtPriceFromOutput(t *testing.T) {
	// Removing 5 token0 at liquidity 10 from price 1 doubles the sqrt price.
	next, err := NextSqrtPriceFromOutput(q96Mul(1), uint256.NewInt(10), uint256.NewInt(5), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Eq(q96Mul(2)) {
		t.Fatalf("next price mismatch: %s", next.Dec())
	}

	// Removing 5 token1 at liquidity 10 halves the sqrt price.
	next, err = NextSqrtPriceFromOutput(q96Mul(1), uint256.NewInt(10), uint256.NewInt(5), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Eq(new(uint256.Int).Lsh(uint256.NewInt(1), 95)) {
		t.Fatalf("next price mismatch: %s", next.Dec())
	}
}

func TestNextSqrtPriceFromOutputExcessive(t *testing.T) {
	// Asking for more token1 than the price can give up must fail.
	if _, err := NextSqrtPriceFromOutput(q96Mul(1), uint256.NewInt(1), q96Mul(2), true); err != ErrPriceOverflow {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

package position

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"clpool/internal/liquiditymath"
)

var testKey = Key{
	Owner:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
	TickLower: -60,
	TickUpper: 60,
}

func TestUpdateAccruesFees(t *testing.T) {
	ledger := NewLedger()
	info := ledger.Snapshot(testKey)

	if err := info.Update(uint256.NewInt(10), uint256.NewInt(0), uint256.NewInt(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Liquidity.Eq(uint256.NewInt(10)) {
		t.Fatalf("liquidity mismatch: %s", info.Liquidity.Dec())
	}

	// One full unit of per-liquidity growth owes one token per liquidity
	// unit.
	oneX128 := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	if err := info.Update(uint256.NewInt(0), oneX128, uint256.NewInt(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.TokensOwed0.Eq(uint256.NewInt(10)) {
		t.Fatalf("owed0 mismatch: %s", info.TokensOwed0.Dec())
	}
	if !info.TokensOwed1.IsZero() {
		t.Fatalf("owed1 mismatch: %s", info.TokensOwed1.Dec())
	}
	if !info.FeeGrowthInside0LastX128.Eq(oneX128) {
		t.Fatalf("growth snapshot not advanced: %s", info.FeeGrowthInside0LastX128.Dec())
	}
}

func TestUpdatePokeEmpty(t *testing.T) {
	ledger := NewLedger()
	info := ledger.Snapshot(testKey)

	if err := info.Update(uint256.NewInt(0), uint256.NewInt(0), uint256.NewInt(0)); err != ErrNoPosition {
		t.Fatalf("expected no-position error, got %v", err)
	}
}

func TestUpdateUnderflow(t *testing.T) {
	ledger := NewLedger()
	info := ledger.Snapshot(testKey)

	if err := info.Update(uint256.NewInt(10), uint256.NewInt(0), uint256.NewInt(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := info.Update(new(uint256.Int).Neg(uint256.NewInt(11)), uint256.NewInt(0), uint256.NewInt(0)); err != liquiditymath.ErrLiquidityUnderflow {
		t.Fatalf("expected underflow error, got %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ledger := NewLedger()

	info := ledger.Snapshot(testKey)
	if err := info.Update(uint256.NewInt(5), uint256.NewInt(0), uint256.NewInt(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Nothing is stored until Set.
	if _, ok := ledger.Lookup(testKey); ok {
		t.Fatalf("snapshot must not create the position")
	}

	ledger.Set(testKey, info)
	stored, ok := ledger.Lookup(testKey)
	if !ok || !stored.Liquidity.Eq(uint256.NewInt(5)) {
		t.Fatalf("stored position mismatch: %+v", stored)
	}
}

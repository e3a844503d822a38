package pool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"clpool/internal/fullmath"
	"clpool/internal/model"
	"clpool/internal/position"
	"clpool/internal/tick"
	"clpool/internal/tickmath"
	"clpool/internal/token"
)

var (
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token0   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	token1   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b1")

	priceOne = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
)

type captureSink struct {
	events []model.Event
}

func (s *captureSink) Emit(e model.Event) { s.events = append(s.events, e) }

func newTestPool(t *testing.T, sink EventSink) (*Pool, *token.MemLedger) {
	t.Helper()
	ledger := token.NewMemLedger()
	p := New(Config{
		Address:     poolAddr,
		Token0:      token0,
		Token1:      token1,
		Fee:         3000,
		TickSpacing: 60,
	}, Deps{
		Ledger: ledger,
		Events: sink,
		Clock:  func() uint32 { return 1000 },
	})
	return p, ledger
}

func fund(ledger *token.MemLedger, account common.Address, amount uint64) {
	ledger.Mint(token0, account, uint256.NewInt(amount))
	ledger.Mint(token1, account, uint256.NewInt(amount))
}

func mintStandard(t *testing.T, p *Pool, ledger *token.MemLedger) (*uint256.Int, *uint256.Int) {
	t.Helper()
	fund(ledger, alice, 1_000_000)
	amount0, amount1, err := p.Mint(alice, alice, -600, 600, uint256.NewInt(1_000_000), nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return amount0, amount1
}

func minLimit() *uint256.Int {
	return new(uint256.Int).AddUint64(tickmath.MinSqrtRatio, 1)
}

func maxLimit() *uint256.Int {
	return new(uint256.Int).SubUint64(tickmath.MaxSqrtRatio, 1)
}

func TestInitialize(t *testing.T) {
	p, _ := newTestPool(t, nil)

	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if p.CurrentTick() != 0 {
		t.Fatalf("tick mismatch: %d", p.CurrentTick())
	}
	if !p.SqrtPriceX96().Eq(priceOne) {
		t.Fatalf("price mismatch: %s", p.SqrtPriceX96().Dec())
	}

	if err := p.Initialize(priceOne); err != ErrAlreadyInitialized {
		t.Fatalf("expected already-initialized error, got %v", err)
	}
}

func TestOperationsRequireInitialization(t *testing.T) {
	p, _ := newTestPool(t, nil)

	if _, _, err := p.Mint(alice, alice, -600, 600, uint256.NewInt(1), nil); err != ErrNotInitialized {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(1), minLimit()); err != ErrNotInitialized {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}

func TestMintConservation(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	amount0, amount1 := mintStandard(t, p, ledger)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		t.Fatalf("in-range mint must take both tokens: %s, %s", amount0.Dec(), amount1.Dec())
	}

	if !ledger.BalanceOf(token0, poolAddr).Eq(amount0) {
		t.Fatalf("pool token0 balance mismatch")
	}
	if !ledger.BalanceOf(token1, poolAddr).Eq(amount1) {
		t.Fatalf("pool token1 balance mismatch")
	}
	if !p.Liquidity().Eq(uint256.NewInt(1_000_000)) {
		t.Fatalf("active liquidity mismatch: %s", p.Liquidity().Dec())
	}

	lower := p.TickInfo(-600)
	if !lower.LiquidityGross.Eq(uint256.NewInt(1_000_000)) || !lower.Initialized {
		t.Fatalf("lower tick not tracked: %+v", lower)
	}
}

func TestMintValidation(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	fund(ledger, alice, 1_000_000)

	if _, _, err := p.Mint(alice, alice, 600, -600, uint256.NewInt(1), nil); err != ErrInvalidTickRange {
		t.Fatalf("expected tick range error, got %v", err)
	}
	if _, _, err := p.Mint(alice, alice, -30, 600, uint256.NewInt(1), nil); err != tick.ErrUnalignedTick {
		t.Fatalf("expected alignment error, got %v", err)
	}
	if _, _, err := p.Mint(alice, alice, -600, 600, uint256.NewInt(0), nil); err != ErrZeroAmount {
		t.Fatalf("expected zero amount error, got %v", err)
	}
}

func TestMintUnfundedLeavesNoTrace(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, _, err := p.Mint(alice, alice, -600, 600, uint256.NewInt(1_000_000), nil); err == nil {
		t.Fatalf("expected payment failure")
	}

	if !p.Liquidity().IsZero() {
		t.Fatalf("failed mint must not add liquidity")
	}
	if !p.TickInfo(-600).LiquidityGross.IsZero() {
		t.Fatalf("failed mint must not touch ticks")
	}
	key := position.Key{Owner: alice, TickLower: -600, TickUpper: 600}
	if _, ok := p.Position(key); ok {
		t.Fatalf("failed mint must not create the position")
	}
	if !ledger.BalanceOf(token0, poolAddr).IsZero() {
		t.Fatalf("failed mint must not move funds")
	}
}

func TestBurnCollectRoundTrip(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mint0, mint1 := mintStandard(t, p, ledger)

	burn0, burn1, err := p.Burn(alice, -600, 600, uint256.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("burn: %v", err)
	}

	// Mint rounds against the owner, burn rounds toward the pool; at most
	// one unit per token stays behind.
	diff0 := new(uint256.Int).Sub(mint0, burn0)
	diff1 := new(uint256.Int).Sub(mint1, burn1)
	if diff0.CmpUint64(1) > 0 || diff1.CmpUint64(1) > 0 {
		t.Fatalf("burn returned too little: %s, %s", diff0.Dec(), diff1.Dec())
	}

	if !p.Liquidity().IsZero() {
		t.Fatalf("liquidity must be zero after full burn")
	}
	if !p.TickInfo(-600).LiquidityGross.IsZero() {
		t.Fatalf("emptied ticks must be cleared")
	}

	max := new(uint256.Int).Not(new(uint256.Int))
	got0, got1, err := p.Collect(alice, alice, -600, 600, max, max)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !got0.Eq(burn0) || !got1.Eq(burn1) {
		t.Fatalf("collect mismatch: %s/%s != %s/%s", got0.Dec(), got1.Dec(), burn0.Dec(), burn1.Dec())
	}

	key := position.Key{Owner: alice, TickLower: -600, TickUpper: 600}
	pos, ok := p.Position(key)
	if !ok || !pos.TokensOwed0.IsZero() || !pos.TokensOwed1.IsZero() {
		t.Fatalf("owed balances must be drained: %+v", pos)
	}
}

func TestBurnDustRejected(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)

	// One unit of liquidity rounds to zero on both sides in this range.
	if _, _, err := p.Burn(alice, -600, 600, uint256.NewInt(1)); err != ErrBurnAmountTooSmall {
		t.Fatalf("expected dust burn rejection, got %v", err)
	}

	if !p.Liquidity().Eq(uint256.NewInt(1_000_000)) {
		t.Fatalf("rejected burn must not change liquidity: %s", p.Liquidity().Dec())
	}
	key := position.Key{Owner: alice, TickLower: -600, TickUpper: 600}
	pos, ok := p.Position(key)
	if !ok || !pos.Liquidity.Eq(uint256.NewInt(1_000_000)) {
		t.Fatalf("rejected burn must not change the position: %+v", pos)
	}
}

func TestCollectUnknownPosition(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	max := new(uint256.Int).Not(new(uint256.Int))
	got0, got1, err := p.Collect(alice, alice, -600, 600, max, max)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !got0.IsZero() || !got1.IsZero() {
		t.Fatalf("nothing owed: %s, %s", got0.Dec(), got1.Dec())
	}

	key := position.Key{Owner: alice, TickLower: -600, TickUpper: 600}
	if _, ok := p.Position(key); ok {
		t.Fatalf("collect must not create positions")
	}
}

func TestBurnPokeEmptyPosition(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if _, _, err := p.Burn(alice, -600, 600, uint256.NewInt(0)); err != position.ErrNoPosition {
		t.Fatalf("expected no-position error, got %v", err)
	}
}

func TestSwapExactIn(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mint0, mint1 := mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	amount0, amount1, err := p.Swap(bob, bob, true, uint256.NewInt(1000), minLimit())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if !amount0.Eq(uint256.NewInt(1000)) {
		t.Fatalf("exact input must be fully consumed: %s", amount0.Dec())
	}
	if amount1.Sign() >= 0 {
		t.Fatalf("output must be negative: %s", amount1.Dec())
	}
	out := new(uint256.Int).Neg(amount1)
	if out.CmpUint64(900) < 0 || out.CmpUint64(1000) >= 0 {
		t.Fatalf("output out of expected band: %s", out.Dec())
	}

	if p.SqrtPriceX96().Cmp(priceOne) >= 0 {
		t.Fatalf("price must fall on a zero-for-one swap")
	}
	if p.CurrentTick() >= 0 {
		t.Fatalf("tick must fall on a zero-for-one swap: %d", p.CurrentTick())
	}
	if p.FeeGrowthGlobal0X128().IsZero() {
		t.Fatalf("input-side fee growth must accrue")
	}
	if !p.FeeGrowthGlobal1X128().IsZero() {
		t.Fatalf("output-side fee growth must stay zero")
	}

	// Conservation against the ledger.
	wantBalance0 := new(uint256.Int).Add(mint0, uint256.NewInt(1000))
	if !ledger.BalanceOf(token0, poolAddr).Eq(wantBalance0) {
		t.Fatalf("pool token0 balance mismatch")
	}
	wantBalance1 := new(uint256.Int).Sub(mint1, out)
	if !ledger.BalanceOf(token1, poolAddr).Eq(wantBalance1) {
		t.Fatalf("pool token1 balance mismatch")
	}
}

func TestSwapExactOut(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	want := uint256.NewInt(500)
	amount0, amount1, err := p.Swap(bob, bob, true, new(uint256.Int).Neg(want), minLimit())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if !new(uint256.Int).Neg(amount1).Eq(want) {
		t.Fatalf("exact output mismatch: %s", amount1.Dec())
	}
	// The input covers the output plus fees.
	if amount0.Cmp(want) <= 0 {
		t.Fatalf("input must exceed output: %s", amount0.Dec())
	}
}

func TestSwapFeeAccruesToPosition(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(1000), minLimit()); err != nil {
		t.Fatalf("swap: %v", err)
	}

	// Poke to bring fees current.
	if _, _, err := p.Burn(alice, -600, 600, uint256.NewInt(0)); err != nil {
		t.Fatalf("poke: %v", err)
	}

	key := position.Key{Owner: alice, TickLower: -600, TickUpper: 600}
	pos, ok := p.Position(key)
	if !ok {
		t.Fatalf("position missing")
	}
	// The 0.3% fee on a 1000 input is 3, minus per-liquidity rounding.
	if pos.TokensOwed0.CmpUint64(2) < 0 || pos.TokensOwed0.CmpUint64(3) > 0 {
		t.Fatalf("fee credit out of band: %s", pos.TokensOwed0.Dec())
	}
	if !pos.TokensOwed1.IsZero() {
		t.Fatalf("no token1 fees expected: %s", pos.TokensOwed1.Dec())
	}
}

func TestSwapValidation(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(0), minLimit()); err != ErrZeroAmount {
		t.Fatalf("expected zero amount error, got %v", err)
	}
	// Limit on the wrong side of the current price.
	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(10), maxLimit()); err != ErrPriceLimit {
		t.Fatalf("expected price limit error, got %v", err)
	}
	if _, _, err := p.Swap(bob, bob, false, uint256.NewInt(10), minLimit()); err != ErrPriceLimit {
		t.Fatalf("expected price limit error, got %v", err)
	}
}

func TestSwapUnfundedLeavesNoTrace(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)

	priceBefore := p.SqrtPriceX96()
	liquidityBefore := p.Liquidity()

	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(1000), minLimit()); err == nil {
		t.Fatalf("expected settlement failure")
	}

	if !p.SqrtPriceX96().Eq(priceBefore) {
		t.Fatalf("failed swap must not move the price")
	}
	if !p.Liquidity().Eq(liquidityBefore) {
		t.Fatalf("failed swap must not change liquidity")
	}
	if !p.FeeGrowthGlobal0X128().IsZero() {
		t.Fatalf("failed swap must not accrue fees")
	}
}

func TestSwapStopsAtPriceLimit(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	limit, err := tickmath.SqrtRatioAtTick(-60)
	if err != nil {
		t.Fatalf("limit ratio: %v", err)
	}

	amount0, _, err := p.Swap(bob, bob, true, uint256.NewInt(500_000), limit)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if !p.SqrtPriceX96().Eq(limit) {
		t.Fatalf("price must stop at the limit: %s", p.SqrtPriceX96().Dec())
	}
	// Partial fill: far less input consumed than specified.
	if amount0.CmpUint64(500_000) >= 0 {
		t.Fatalf("swap must stop early at the limit: %s", amount0.Dec())
	}
}

func TestSwapCrossesTicks(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 100_000_000)

	// Large enough to push the price through the range's lower bound.
	amount0, _, err := p.Swap(bob, bob, true, uint256.NewInt(50_000), minLimit())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if p.CurrentTick() >= -600 {
		t.Fatalf("price must cross below the range: %d", p.CurrentTick())
	}
	if !p.Liquidity().IsZero() {
		t.Fatalf("no liquidity is active outside the range: %s", p.Liquidity().Dec())
	}
	// Input stops once liquidity runs out, short of the full amount.
	if amount0.CmpUint64(50_000) >= 0 {
		t.Fatalf("swap must starve at zero liquidity: %s", amount0.Dec())
	}

	lower := p.TickInfo(-600)
	if lower.FeeGrowthOutside0X128.IsZero() {
		t.Fatalf("crossed tick must flip its outside growth")
	}
}

func TestSetFeeProtocol(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := p.SetFeeProtocol(3, 0); err != ErrInvalidFeeProtocol {
		t.Fatalf("expected invalid fee protocol error, got %v", err)
	}
	if err := p.SetFeeProtocol(0, 11); err != ErrInvalidFeeProtocol {
		t.Fatalf("expected invalid fee protocol error, got %v", err)
	}

	if err := p.SetFeeProtocol(4, 5); err != nil {
		t.Fatalf("set fee protocol: %v", err)
	}
	if got := p.SlotState().FeeProtocol; got != 4+(5<<4) {
		t.Fatalf("packed fee protocol mismatch: %d", got)
	}
}

func TestProtocolFeesFromSwap(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := p.SetFeeProtocol(4, 4); err != nil {
		t.Fatalf("set fee protocol: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)

	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(10_000), minLimit()); err != nil {
		t.Fatalf("swap: %v", err)
	}

	fees0, fees1 := p.ProtocolFees()
	if fees0.IsZero() {
		t.Fatalf("protocol fees must accrue on the input side")
	}
	if !fees1.IsZero() {
		t.Fatalf("no protocol fees expected on the output side")
	}

	// A full drain leaves one unit behind.
	max := new(uint256.Int).Not(new(uint256.Int))
	paid0, _, err := p.CollectProtocol(alice, alice, max, max)
	if err != nil {
		t.Fatalf("collect protocol: %v", err)
	}
	wantPaid := new(uint256.Int).SubUint64(fees0, 1)
	if !paid0.Eq(wantPaid) {
		t.Fatalf("protocol payout mismatch: %s != %s", paid0.Dec(), wantPaid.Dec())
	}
	remaining0, _ := p.ProtocolFees()
	if !remaining0.Eq(uint256.NewInt(1)) {
		t.Fatalf("one unit must remain: %s", remaining0.Dec())
	}
}

func TestFlash(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 100)

	balance0Before := ledger.BalanceOf(token0, poolAddr)
	balance1Before := ledger.BalanceOf(token1, poolAddr)

	if err := p.Flash(bob, bob, uint256.NewInt(1000), uint256.NewInt(500), nil); err != nil {
		t.Fatalf("flash: %v", err)
	}

	// 0.3% fees rounded up: 3 on 1000 and 2 on 500.
	want0 := new(uint256.Int).AddUint64(balance0Before, 3)
	want1 := new(uint256.Int).AddUint64(balance1Before, 2)
	if !ledger.BalanceOf(token0, poolAddr).Eq(want0) {
		t.Fatalf("token0 fee not collected")
	}
	if !ledger.BalanceOf(token1, poolAddr).Eq(want1) {
		t.Fatalf("token1 fee not collected")
	}

	wantGrowth0, err := fullmath.MulDiv(uint256.NewInt(3), new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	if !p.FeeGrowthGlobal0X128().Eq(wantGrowth0) {
		t.Fatalf("flash fee growth mismatch: %s", p.FeeGrowthGlobal0X128().Dec())
	}
}

func TestFlashRequiresLiquidity(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := p.Flash(bob, bob, uint256.NewInt(1), uint256.NewInt(0), nil); err != ErrNoFlashLiquidity {
		t.Fatalf("expected no-liquidity error, got %v", err)
	}
}

func TestFlashUnderpaymentRejected(t *testing.T) {
	p, ledger := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 100)

	growthBefore := p.FeeGrowthGlobal0X128()

	err := p.Flash(bob, bob, uint256.NewInt(1000), uint256.NewInt(0), func(fee0, fee1 *uint256.Int) error {
		// Repay the principal only.
		return ledger.Transfer(token0, bob, poolAddr, uint256.NewInt(1000))
	})
	if err != ErrInsufficientPayment0 {
		t.Fatalf("expected underpayment error, got %v", err)
	}
	if !p.FeeGrowthGlobal0X128().Eq(growthBefore) {
		t.Fatalf("failed flash must not accrue fees")
	}
}

func TestObserve(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ticks, perLiqs, err := p.Observe([]uint32{0})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(ticks) != 1 || len(perLiqs) != 1 {
		t.Fatalf("result length mismatch")
	}
	if ticks[0] != 0 {
		t.Fatalf("tick cumulative mismatch: %d", ticks[0])
	}
}

func TestIncreaseObservationCardinality(t *testing.T) {
	p, _ := newTestPool(t, nil)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := p.IncreaseObservationCardinalityNext(4); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if got := p.SlotState().ObservationCardinalityNext; got != 4 {
		t.Fatalf("cardinality next mismatch: %d", got)
	}
}

func TestEventSequence(t *testing.T) {
	sink := &captureSink{}
	p, ledger := newTestPool(t, sink)
	if err := p.Initialize(priceOne); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mintStandard(t, p, ledger)
	fund(ledger, bob, 1_000_000)
	if _, _, err := p.Swap(bob, bob, true, uint256.NewInt(1000), minLimit()); err != nil {
		t.Fatalf("swap: %v", err)
	}

	want := []string{model.EventInitialize, model.EventMint, model.EventSwap}
	if len(sink.events) != len(want) {
		t.Fatalf("event count mismatch: %d", len(sink.events))
	}
	for i, name := range want {
		if sink.events[i].Name != name {
			t.Fatalf("event %d mismatch: %s != %s", i, sink.events[i].Name, name)
		}
		if sink.events[i].Seq != uint64(i+1) {
			t.Fatalf("event %d seq mismatch: %d", i, sink.events[i].Seq)
		}
		if sink.events[i].Pool != poolAddr.Hex() {
			t.Fatalf("event %d pool mismatch: %s", i, sink.events[i].Pool)
		}
	}
}

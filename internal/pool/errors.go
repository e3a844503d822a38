package pool

import "errors"

var (
	// ErrLocked is returned when an operation reenters a pool that is
	// already executing one.
	ErrLocked = errors.New("pool: locked")
	// ErrAlreadyInitialized is returned by Initialize on a priced pool.
	ErrAlreadyInitialized = errors.New("pool: already initialized")
	// ErrNotInitialized is returned when operating on a pool before
	// Initialize.
	ErrNotInitialized = errors.New("pool: not initialized")
	// ErrInvalidTickRange is returned for an unordered or out-of-bounds
	// tick range.
	ErrInvalidTickRange = errors.New("pool: invalid tick range")
	// ErrZeroAmount is returned for zero-amount mints and swaps.
	ErrZeroAmount = errors.New("pool: zero amount")
	// ErrPriceLimit is returned when a swap's price limit lies on the
	// wrong side of the current price or outside the valid range.
	ErrPriceLimit = errors.New("pool: invalid price limit")
	// ErrInsufficientPayment0 is returned when the payer delivers less
	// token0 than owed.
	ErrInsufficientPayment0 = errors.New("pool: insufficient token0 payment")
	// ErrInsufficientPayment1 is returned when the payer delivers less
	// token1 than owed.
	ErrInsufficientPayment1 = errors.New("pool: insufficient token1 payment")
	// ErrInvalidFeeProtocol is returned when a protocol fee fraction is
	// outside {0, 4..10}.
	ErrInvalidFeeProtocol = errors.New("pool: invalid protocol fee")
	// ErrNoFlashLiquidity is returned when flash borrowing from a pool
	// with no active liquidity.
	ErrNoFlashLiquidity = errors.New("pool: no liquidity for flash")
	// ErrBurnAmountTooSmall is returned when a liquidity burn frees no
	// tokens on either side.
	ErrBurnAmountTooSmall = errors.New("pool: burn frees no tokens")
)

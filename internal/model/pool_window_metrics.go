package model

// PoolWindowMetrics stores aggregated activity for a pool over one time
// window of the engine clock. Volumes and fees are decimal strings of the
// absolute token amounts.
type PoolWindowMetrics struct {
	PoolAddress     string
	WindowSizeSecs  uint32
	WindowStart     uint32
	WindowEnd       uint32
	SwapCount       uint64
	MintCount       uint64
	BurnCount       uint64
	FlashCount      uint64
	Volume0         string
	Volume1         string
	Fee0            string
	Fee1            string
	EndSqrtPriceX96 string
	EndTick         int32
	EndLiquidity    string
}

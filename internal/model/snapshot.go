package model

// PoolSnapshot captures a pool's full state at a point in the replay.
type PoolSnapshot struct {
	Address              string `json:"address"`
	Token0               string `json:"token0"`
	Token1               string `json:"token1"`
	Fee                  uint32 `json:"fee"`
	TickSpacing          int32  `json:"tick_spacing"`
	SqrtPriceX96         string `json:"sqrt_price_x96"`
	Tick                 int32  `json:"tick"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthGlobal0X128 string `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string `json:"fee_growth_global1_x128"`
	ProtocolFees0        string `json:"protocol_fees0"`
	ProtocolFees1        string `json:"protocol_fees1"`
}

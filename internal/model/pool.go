package model

// Pool is the pool registry record for storage.
type Pool struct {
	Address     string `json:"address"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	CreatedAt   uint32 `json:"created_at"`
}

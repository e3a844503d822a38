package sim

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Scenario operation names.
const (
	OpAdvanceTime         = "advance_time"
	OpFund                = "fund"
	OpCreatePool          = "create_pool"
	OpInitialize          = "initialize"
	OpMint                = "mint"
	OpBurn                = "burn"
	OpCollect             = "collect"
	OpSwap                = "swap"
	OpFlash               = "flash"
	OpEnableFeeAmount     = "enable_fee_amount"
	OpSetFeeProtocol      = "set_fee_protocol"
	OpCollectProtocol     = "collect_protocol"
	OpIncreaseCardinality = "increase_cardinality"
)

// Op is one scenario line. Which fields matter depends on Op; pools are
// addressed by token pair and fee tier.
type Op struct {
	Op string `json:"op"`

	TokenA string `json:"token_a,omitempty"`
	TokenB string `json:"token_b,omitempty"`
	Fee    uint32 `json:"fee,omitempty"`

	Sender    string `json:"sender,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Token     string `json:"token,omitempty"`
	Account   string `json:"account,omitempty"`

	Seconds           uint32 `json:"seconds,omitempty"`
	SqrtPriceX96      string `json:"sqrt_price_x96,omitempty"`
	TickLower         int32  `json:"tick_lower,omitempty"`
	TickUpper         int32  `json:"tick_upper,omitempty"`
	Amount            string `json:"amount,omitempty"`
	Amount0           string `json:"amount0,omitempty"`
	Amount1           string `json:"amount1,omitempty"`
	ZeroForOne        bool   `json:"zero_for_one,omitempty"`
	AmountSpecified   string `json:"amount_specified,omitempty"`
	SqrtPriceLimitX96 string `json:"sqrt_price_limit_x96,omitempty"`
	FeeProtocol0      uint8  `json:"fee_protocol0,omitempty"`
	FeeProtocol1      uint8  `json:"fee_protocol1,omitempty"`
	TickSpacing       int32  `json:"tick_spacing,omitempty"`
	Next              uint16 `json:"next,omitempty"`
}

func parseAddress(value, field string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(value, field string) (*uint256.Int, error) {
	if value == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s amount: %q", field, value)
	}
	return v, nil
}

// parseSignedAmount parses an optionally negative decimal into two's
// complement form.
func parseSignedAmount(value, field string) (*uint256.Int, error) {
	if strings.HasPrefix(value, "-") {
		v, err := parseAmount(value[1:], field)
		if err != nil {
			return nil, err
		}
		return v.Neg(v), nil
	}
	return parseAmount(value, field)
}

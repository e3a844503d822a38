package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"clpool/internal/fullmath"
	"clpool/internal/model"
	"clpool/internal/swapmath"
)

// FlashBorrower repays a flash loan. It runs after the borrowed amounts
// have been transferred to the recipient and must return the principal
// plus the given fees to the pool. A nil borrower repays from the sender
// through the ledger.
type FlashBorrower func(fee0, fee1 *uint256.Int) error

// Flash lends the requested amounts for the duration of the borrower
// callback. Repayment is verified against the pool's balances; the paid
// fees are folded into the fee growth accumulators, with the protocol
// share skimmed first.
func (p *Pool) Flash(sender, recipient common.Address, amount0, amount1 *uint256.Int, borrower FlashBorrower) error {
	unlock, err := p.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if p.liquidity.IsZero() {
		return ErrNoFlashLiquidity
	}

	fee0, err := fullmath.MulDivRoundingUp(amount0, uint256.NewInt(uint64(p.cfg.Fee)), swapmath.FeeDenominator)
	if err != nil {
		return err
	}
	fee1, err := fullmath.MulDivRoundingUp(amount1, uint256.NewInt(uint64(p.cfg.Fee)), swapmath.FeeDenominator)
	if err != nil {
		return err
	}

	balance0Before := p.deps.Ledger.BalanceOf(p.cfg.Token0, p.cfg.Address)
	balance1Before := p.deps.Ledger.BalanceOf(p.cfg.Token1, p.cfg.Address)

	if err := p.deps.Ledger.Transfer(p.cfg.Token0, p.cfg.Address, recipient, amount0); err != nil {
		return err
	}
	if err := p.deps.Ledger.Transfer(p.cfg.Token1, p.cfg.Address, recipient, amount1); err != nil {
		return err
	}

	if borrower == nil {
		borrower = func(f0, f1 *uint256.Int) error {
			repay0 := new(uint256.Int).Add(amount0, f0)
			if err := p.deps.Ledger.Transfer(p.cfg.Token0, sender, p.cfg.Address, repay0); err != nil {
				return err
			}
			repay1 := new(uint256.Int).Add(amount1, f1)
			return p.deps.Ledger.Transfer(p.cfg.Token1, sender, p.cfg.Address, repay1)
		}
	}
	if err := borrower(fee0.Clone(), fee1.Clone()); err != nil {
		return err
	}

	balance0After := p.deps.Ledger.BalanceOf(p.cfg.Token0, p.cfg.Address)
	balance1After := p.deps.Ledger.BalanceOf(p.cfg.Token1, p.cfg.Address)

	if new(uint256.Int).Add(balance0Before, fee0).Cmp(balance0After) > 0 {
		return ErrInsufficientPayment0
	}
	if new(uint256.Int).Add(balance1Before, fee1).Cmp(balance1After) > 0 {
		return ErrInsufficientPayment1
	}

	paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
	paid1 := new(uint256.Int).Sub(balance1After, balance1Before)

	share0, growth0, err := p.splitFlashFees(paid0, p.slot0.FeeProtocol%16)
	if err != nil {
		return err
	}
	share1, growth1, err := p.splitFlashFees(paid1, p.slot0.FeeProtocol>>4)
	if err != nil {
		return err
	}
	p.protocolFees0 = new(uint256.Int).Add(p.protocolFees0, share0)
	p.protocolFees1 = new(uint256.Int).Add(p.protocolFees1, share1)
	p.feeGrowthGlobal0X128 = new(uint256.Int).Add(p.feeGrowthGlobal0X128, growth0)
	p.feeGrowthGlobal1X128 = new(uint256.Int).Add(p.feeGrowthGlobal1X128, growth1)

	p.log.Debug("flash",
		zap.String("recipient", recipient.Hex()),
		zap.String("amount0", amount0.Dec()),
		zap.String("amount1", amount1.Dec()),
	)
	p.emit(model.EventFlash, model.FlashEventData{
		Sender:    sender.Hex(),
		Recipient: recipient.Hex(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
		Paid0:     paid0.Dec(),
		Paid1:     paid1.Dec(),
	})
	return nil
}

// splitFlashFees divides paid fees into the protocol share and the per-unit
// liquidity growth for everyone else.
func (p *Pool) splitFlashFees(paid *uint256.Int, feeProtocol uint8) (*uint256.Int, *uint256.Int, error) {
	share := uint256.NewInt(0)
	if paid.IsZero() {
		return share, uint256.NewInt(0), nil
	}
	fees := paid
	if feeProtocol > 0 {
		share = new(uint256.Int).Div(paid, uint256.NewInt(uint64(feeProtocol)))
		fees = new(uint256.Int).Sub(paid, share)
	}
	growth, err := fullmath.MulDiv(fees, q128, p.liquidity)
	if err != nil {
		return nil, nil, err
	}
	return share, growth, nil
}

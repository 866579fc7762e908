package prices

import (
	"errors"
	"fmt"
	"math/big"

	ui "github.com/holiman/uint256"
)

var ErrDeviation = errors.New("price deviates from recent average")

// Prices is a ring buffer of sqrt price observations.
type Prices struct {
	prices []*ui.Int
	index  int
	count  int
}

func NewPrices(length int) *Prices {
	if length < 1 {
		length = 1
	}
	return &Prices{prices: make([]*ui.Int, length)}
}

func (p *Prices) Add(sqrtPriceX96 *ui.Int) {
	p.prices[p.index] = sqrtPriceX96.Clone()
	p.index = (p.index + 1) % len(p.prices)
	if p.count < len(p.prices) {
		p.count++
	}
}

// Full reports whether the window has been filled once.
func (p *Prices) Full() bool {
	return p.count == len(p.prices)
}

func (p *Prices) Len() int {
	return p.count
}

func (p *Prices) Average() *ui.Int {
	if p.count == 0 {
		return new(ui.Int)
	}
	sum := new(big.Int)
	for _, price := range p.prices[:p.count] {
		sum.Add(sum, price.ToBig())
	}
	avg, _ := ui.FromBig(sum.Div(sum, big.NewInt(int64(p.count))))
	return avg
}

// Volatility is the sample standard deviation of the observations.
func (p *Prices) Volatility() *ui.Int {
	if p.count < 2 {
		return new(ui.Int)
	}
	avg := p.Average().ToBig()
	sum := new(big.Int)
	for _, price := range p.prices[:p.count] {
		diff := new(big.Int).Sub(price.ToBig(), avg)
		sum.Add(sum, diff.Mul(diff, diff))
	}
	variance := sum.Div(sum, big.NewInt(int64(p.count-1)))
	volatility, _ := ui.FromBig(variance.Sqrt(variance))
	return volatility
}

// DeviationBps returns |sqrtPriceX96 - average| in basis points of the average.
func (p *Prices) DeviationBps(sqrtPriceX96 *ui.Int) uint64 {
	avg := p.Average()
	if avg.IsZero() {
		return 0
	}
	diff := new(big.Int).Sub(sqrtPriceX96.ToBig(), avg.ToBig())
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(10_000))
	return diff.Div(diff, avg.ToBig()).Uint64()
}

// Check fails when the window is full and sqrtPriceX96 strays more than
// maxBps from its average. A zero maxBps disables the check.
func (p *Prices) Check(sqrtPriceX96 *ui.Int, maxBps uint64) error {
	if maxBps == 0 || !p.Full() {
		return nil
	}
	if dev := p.DeviationBps(sqrtPriceX96); dev > maxBps {
		return fmt.Errorf("%w: %d bps > %d bps", ErrDeviation, dev, maxBps)
	}
	return nil
}

// Clone copies the window.
func (p *Prices) Clone() *Prices {
	c := &Prices{prices: make([]*ui.Int, len(p.prices)), index: p.index, count: p.count}
	for i, v := range p.prices {
		if v != nil {
			c.prices[i] = v.Clone()
		}
	}
	return c
}

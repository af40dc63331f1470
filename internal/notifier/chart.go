package notifier

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Chart receives the price line and the buy/sell markers.
type Chart interface {
	AppendPrice(label string, v decimal.Decimal)
	AppendBuy(label string, v decimal.Decimal)
	AppendSell(label string, v decimal.Decimal)
	Redraw()
}

// Label formats t as H:M:S without zero padding, in t's location.
func Label(t time.Time) string {
	return fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second())
}

// Point is one chart sample.
type Point struct {
	Label string
	Value decimal.Decimal
}

// SeriesChart keeps the three series in memory, each capped at a fixed length.
type SeriesChart struct {
	mu      sync.Mutex
	limit   int
	price   []Point
	buys    []Point
	sells   []Point
	redraws int
}

// NewSeriesChart keeps at most limit points per series; limit <= 0 means unbounded.
func NewSeriesChart(limit int) *SeriesChart {
	return &SeriesChart{limit: limit}
}

func (c *SeriesChart) AppendPrice(label string, v decimal.Decimal) { c.append(&c.price, label, v) }
func (c *SeriesChart) AppendBuy(label string, v decimal.Decimal)   { c.append(&c.buys, label, v) }
func (c *SeriesChart) AppendSell(label string, v decimal.Decimal)  { c.append(&c.sells, label, v) }

func (c *SeriesChart) append(series *[]Point, label string, v decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*series = append(*series, Point{Label: label, Value: v})
	if c.limit > 0 && len(*series) > c.limit {
		*series = append((*series)[:0], (*series)[len(*series)-c.limit:]...)
	}
}

func (c *SeriesChart) Redraw() {
	c.mu.Lock()
	c.redraws++
	c.mu.Unlock()
}

// Redraws counts Redraw calls.
func (c *SeriesChart) Redraws() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraws
}

func (c *SeriesChart) Prices() []Point { return c.snapshot(&c.price) }
func (c *SeriesChart) Buys() []Point   { return c.snapshot(&c.buys) }
func (c *SeriesChart) Sells() []Point  { return c.snapshot(&c.sells) }

// PriceValues returns the price series without labels.
func (c *SeriesChart) PriceValues() []decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]decimal.Decimal, len(c.price))
	for i, p := range c.price {
		out[i] = p.Value
	}
	return out
}

func (c *SeriesChart) snapshot(series *[]Point) []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Point(nil), *series...)
}

package amount

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Quantize truncates d to at most precision fractional digits, rounding toward zero.
func Quantize(d decimal.Decimal, precision int32) decimal.Decimal {
	if precision < 0 {
		precision = 0
	}
	return d.Truncate(precision)
}

// Format renders a quantized amount the way contract payloads expect it:
// fixed notation, no exponent, trailing zeros dropped.
func Format(d decimal.Decimal, precision int32) string {
	return Quantize(d, precision).String()
}

// Parse reads a decimal string as returned by the sidechain API.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// PrecisionSource returns the on-chain precision of a token.
type PrecisionSource interface {
	Precision(ctx context.Context, symbol string) (int32, error)
}

// Book caches token precisions for the lifetime of a single run.
type Book struct {
	src PrecisionSource

	mu    sync.Mutex
	known map[string]int32
}

func NewBook(src PrecisionSource) *Book {
	return &Book{src: src, known: make(map[string]int32)}
}

// Precision looks a symbol up once and serves it from memory afterwards.
func (b *Book) Precision(ctx context.Context, symbol string) (int32, error) {
	b.mu.Lock()
	p, ok := b.known[symbol]
	b.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := b.src.Precision(ctx, symbol)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.known[symbol] = p
	b.mu.Unlock()
	return p, nil
}

// Load resolves every symbol up front so a missing token fails before any trade.
// Lookups run concurrently; the first failure cancels the rest.
func (b *Book) Load(ctx context.Context, symbols ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range symbols {
		g.Go(func() error {
			_, err := b.Precision(ctx, s)
			return err
		})
	}
	return g.Wait()
}

// Quantize truncates d to the precision of symbol.
func (b *Book) Quantize(ctx context.Context, symbol string, d decimal.Decimal) (decimal.Decimal, error) {
	p, err := b.Precision(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return Quantize(d, p), nil
}

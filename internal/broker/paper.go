package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"daytrade-core/internal/risk"
)

// ErrDuplicateIntent flags a second order for the same symbol and side inside
// the suppression window. Duplicates are silently possible when a cycle
// overlaps a slow approval; the broker is the last line that catches them.
var ErrDuplicateIntent = errors.New("duplicate intent suppressed")

// Fill is a simulated execution.
type Fill struct {
	IntentID string    `json:"intent_id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Qty      int       `json:"qty"`
	Price    float64   `json:"price"` // slippage-adjusted
	Fee      float64   `json:"fee"`
	At       time.Time `json:"at"`
}

// Paper simulates fills: buys pay up by the slippage fraction and every order
// pays flat brokerage. No partial fills, no rejections on size.
type Paper struct {
	mu          sync.Mutex
	slippagePct float64
	brokerage   float64
	window      time.Duration
	recent      map[string]time.Time // symbol+side -> last execution
}

// NewPaper builds a paper broker.
func NewPaper(slippagePct, brokerage float64, dupWindow time.Duration) *Paper {
	return &Paper{
		slippagePct: slippagePct,
		brokerage:   brokerage,
		window:      dupWindow,
		recent:      make(map[string]time.Time),
	}
}

// Execute fills an approved intent at entry plus slippage.
func (b *Paper) Execute(ctx context.Context, intent *risk.Intent) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if intent.Qty <= 0 {
		return Fill{}, fmt.Errorf("intent %s has no quantity", intent.ID)
	}

	now := time.Now()
	key := intent.Symbol + "|" + intent.Side

	b.mu.Lock()
	if last, seen := b.recent[key]; seen && now.Sub(last) < b.window {
		b.mu.Unlock()
		return Fill{}, fmt.Errorf("%s within %s of last %s order: %w",
			intent.Symbol, b.window, intent.Side, ErrDuplicateIntent)
	}
	b.recent[key] = now
	b.mu.Unlock()

	f := Fill{
		IntentID: intent.ID,
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Qty:      intent.Qty,
		Price:    intent.Entry * (1 + b.slippagePct),
		Fee:      b.brokerage,
		At:       now,
	}
	log.Printf("[BROKER] filled %s %s qty=%d at %.2f fee=%.2f", f.Side, f.Symbol, f.Qty, f.Price, f.Fee)
	return f, nil
}

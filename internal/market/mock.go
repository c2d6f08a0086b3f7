package market

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"daytrade-core/internal/events"
	"daytrade-core/internal/indicators"
)

const historyLen = 120

// MockFeed generates synthetic snapshots for local development and dry runs.
// Prices follow a gently biased random walk and the indicator fields are
// computed from the walk's history, so exits, trailing stops and regime
// classification get exercised without a live data provider.
type MockFeed struct {
	Bus        *events.Bus
	Symbols    []string
	StartPrice float64
	Step       float64
	Interval   time.Duration

	mu      sync.Mutex
	history map[string][]float64
	volumes map[string][]float64
	opens   map[string]float64
}

func (m *MockFeed) Start(ctx context.Context) {
	if m.Bus == nil {
		log.Println("mock feed: bus not set")
		return
	}
	if len(m.Symbols) == 0 {
		m.Symbols = []string{"HINDCOPPER"}
	}

	m.mu.Lock()
	for _, sym := range m.Symbols {
		m.seedLocked(sym)
	}
	m.mu.Unlock()

	go func() {
		t := time.NewTicker(m.interval())
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, sym := range m.Symbols {
					m.Bus.Publish(events.EventSnapshot, m.next(sym))
				}
			}
		}
	}()
}

// Snapshot returns the latest synthetic snapshot for a symbol on demand.
func (m *MockFeed) Snapshot(sym string) Snapshot {
	return m.next(sym)
}

func (m *MockFeed) interval() time.Duration {
	if m.Interval == 0 {
		return time.Second
	}
	return m.Interval
}

// seedLocked warms up a symbol with a short walk so every indicator has
// enough history from the first snapshot.
func (m *MockFeed) seedLocked(sym string) {
	if m.history == nil {
		m.history = make(map[string][]float64)
		m.volumes = make(map[string][]float64)
		m.opens = make(map[string]float64)
	}
	if _, seeded := m.history[sym]; seeded {
		return
	}
	if m.StartPrice == 0 {
		m.StartPrice = 100.0
	}
	if m.Step == 0 {
		m.Step = 0.4
	}

	price := m.StartPrice
	prices := make([]float64, 0, historyLen)
	vols := make([]float64, 0, historyLen)
	for i := 0; i < 60; i++ {
		price = m.walk(price)
		prices = append(prices, price)
		vols = append(vols, float64(50000+rand.Intn(150000)))
	}
	m.history[sym] = prices
	m.volumes[sym] = vols
	m.opens[sym] = prices[0]
}

// walk advances the price one step with a slight upward drift so BUY paths
// stay reachable.
func (m *MockFeed) walk(price float64) float64 {
	price += (rand.Float64()*2 - 0.9) * m.Step
	if price < 1 {
		price = 1
	}
	return price
}

func (m *MockFeed) next(sym string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seedLocked(sym)

	prices := m.history[sym]
	vols := m.volumes[sym]
	price := m.walk(prices[len(prices)-1])
	volume := float64(50000 + rand.Intn(150000))

	prices = append(prices, price)
	vols = append(vols, volume)
	if len(prices) > historyLen {
		prices = prices[1:]
		vols = vols[1:]
	}
	m.history[sym] = prices
	m.volumes[sym] = vols

	bbUpper, bbLower := indicators.Bollinger(prices, 20, 2)
	avgVol := indicators.SMA(vols, 20)
	volRatio := 0.0
	if avgVol > 0 {
		volRatio = volume / avgVol
	}

	open := m.opens[sym]
	return Snapshot{
		Symbol:    sym,
		LTP:       price,
		Open:      open,
		High:      price * 1.004,
		Low:       price * 0.996,
		Close:     price,
		PrevClose: open * 0.995,
		Volume:    int64(volume),
		VolRatio:  volRatio,
		VWAP:      indicators.VWAP(prices, vols),
		EMA9:      indicators.EMA(prices, 9),
		EMA21:     indicators.EMA(prices, 21),
		EMA50:     indicators.EMA(prices, 50),
		RSI:       indicators.RSI(prices, 14),
		BBUpper:   bbUpper,
		BBLower:   bbLower,
		Bid:       price * 0.9995,
		Ask:       price * 1.0005,
		VIX:       12 + rand.Float64()*6,
		RangeHigh: open * 1.005,
		Timestamp: time.Now(),
	}
}

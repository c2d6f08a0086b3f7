package strategy

import (
	"os"
	"path/filepath"
	"testing"
)

const rosterYAML = `
shape:
  max_stop_loss_pct: 0.08
  slippage_buf_pct: 0.001
  min_risk_reward: 1.2

ensemble:
  min_agreement: 4
  min_confidence: 75

strategies:
  - id: momentum
    type: momentum
    enabled: true
    params:
      min_vol_ratio: 1.4
      confidence: 80
  - id: scalping
    type: scalping
    enabled: false
  - id: ma_cross
    type: ma_cross
    enabled: true
`

func TestLoadConfigAndBuildSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	if err := os.WriteFile(path, []byte(rosterYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	file, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if file.Ensemble.MinAgreement != 4 || file.Ensemble.MinConfidence != 75 {
		t.Fatalf("ensemble = %d/%.0f, want 4/75", file.Ensemble.MinAgreement, file.Ensemble.MinConfidence)
	}

	set, err := BuildSet(file)
	if err != nil {
		t.Fatalf("BuildSet: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("set size = %d, want 2 (scalping disabled)", set.Len())
	}
}

func TestBuildUnknownType(t *testing.T) {
	if _, err := Build(Config{ID: "x", Type: "martingale"}); err == nil {
		t.Fatal("expected error for unknown strategy type")
	}
}

func TestBuildDecodesParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	if err := os.WriteFile(path, []byte(rosterYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	file, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	s, err := Build(file.Strategies[0])
	if err != nil {
		t.Fatalf("Build momentum: %v", err)
	}
	m, okM := s.(*Momentum)
	if !okM {
		t.Fatalf("built %T, want *Momentum", s)
	}
	if m.params.MinVolRatio != 1.4 || m.params.Confidence != 80 {
		t.Fatalf("params = %+v, want overrides applied", m.params)
	}
	if m.params.StopPct != 0.02 {
		t.Fatalf("stop pct = %.3f, want default 0.02", m.params.StopPct)
	}
}

func TestDefaultSetRoster(t *testing.T) {
	set := DefaultSet()
	if set.Len() != 9 {
		t.Fatalf("default roster = %d strategies, want 9", set.Len())
	}
	seen := map[string]bool{}
	for _, s := range set.Strategies() {
		if seen[s.ID()] {
			t.Fatalf("duplicate strategy id %s", s.ID())
		}
		seen[s.ID()] = true
	}
}

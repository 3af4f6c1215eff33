package model

import (
	"fmt"
	"strings"
)

// Tier names a whisper.cpp model size.
type Tier string

const (
	TierTiny   Tier = "tiny"
	TierBase   Tier = "base"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

var tiers = []Tier{TierTiny, TierBase, TierSmall, TierMedium, TierLarge}

// Tiers returns every known tier, smallest first.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// ParseTier validates s as a tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range tiers {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown model tier %q (expected one of tiny, base, small, medium, large)", s)
}

// FileName is the on-disk name of the tier's weights.
func (t Tier) FileName() string {
	return "ggml-" + string(t) + ".bin"
}

// State is the lifecycle of a local model file.
type State string

const (
	StateMissing     State = "missing"
	StateDownloading State = "downloading"
	StateReady       State = "ready"
)

// Asset describes one tier's model file.
type Asset struct {
	Tier  Tier   `json:"tier"`
	Path  string `json:"path"`
	State State  `json:"state"`
	Size  int64  `json:"size"`
}

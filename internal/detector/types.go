// Package detector estimates whether an image is synthetically generated by
// fusing several deterministic numeric signals.
package detector

import "math"

// Label is the classification outcome.
type Label string

const (
	LabelHuman     Label = "human"
	LabelAI        Label = "ai"
	LabelUncertain Label = "uncertain"
)

// Signal names, in the order they are evaluated and reported.
const (
	SignalNoise        = "noise_analysis"
	SignalFrequency    = "frequency_analysis"
	SignalColor        = "color_distribution"
	SignalHashEntropy  = "hash_entropy"
	SignalPipelineFail = "error"
)

// Signal is the outcome of one analyzer.
// A neutral signal carries the failure in Err and a fixed score of 0.5, so a
// failure can be told apart from a genuine mid-range measurement.
type Signal struct {
	Name        string  `json:"-"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	Err         error   `json:"-"`
}

// Neutral reports whether the analyzer failed and fell back to the neutral score.
func (s Signal) Neutral() bool {
	return s.Err != nil
}

// Verdict is the fused result of all signals.
type Verdict struct {
	Score       float64           `json:"score"`
	Verdict     Label             `json:"verdict"`
	Explanation string            `json:"explanation"`
	Signals     map[string]Signal `json:"signals"`
}

// clamp01 limits v to [0,1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round3 rounds to three decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package detector

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/rs/zerolog/log"
)

// Detector fuses the signal scores into a verdict.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	aiThreshold        float64
	uncertainThreshold float64
	maxSize            int
}

// NewDetector creates a detector with the given verdict thresholds.
func NewDetector(aiThreshold, uncertainThreshold float64) *Detector {
	return &Detector{
		aiThreshold:        aiThreshold,
		uncertainThreshold: uncertainThreshold,
		maxSize:            constants.MaxAnalysisSize,
	}
}

// NewDefaultDetector creates a detector with the default thresholds (0.70 / 0.50).
func NewDefaultDetector() *Detector {
	return NewDetector(constants.DefaultAIThreshold, constants.DefaultUncertainThreshold)
}

// Classify maps a fused score to a label.
func (d *Detector) Classify(score float64) Label {
	switch {
	case score >= d.aiThreshold:
		return LabelAI
	case score <= d.uncertainThreshold:
		return LabelHuman
	default:
		return LabelUncertain
	}
}

// Detect runs every analyzer and fuses their scores with equal weights.
// It never returns an error: a failure of the whole pipeline produces an
// uncertain verdict with the cause under the "error" signal.
func (d *Detector) Detect(buf *imaging.Buffer) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = failedVerdict(fmt.Errorf("panic: %v", r))
		}
	}()

	if buf == nil {
		return failedVerdict(imaging.ErrNilImage)
	}

	s := newSample(buf, d.maxSize)
	signals := make(map[string]Signal, len(analyzers))
	var sum float64
	for _, a := range analyzers {
		sig := a.run(s)
		signals[a.name] = sig
		sum += sig.Score
	}
	score := clamp01(sum / float64(len(analyzers)))

	label := d.Classify(score)
	log.Info().Str("verdict", string(label)).Float64("score", round3(score)).Msg("AI detection")

	return Verdict{
		Score:       round3(score),
		Verdict:     label,
		Explanation: explain(label, score, signals),
		Signals:     signals,
	}
}

func explain(label Label, score float64, signals map[string]Signal) string {
	switch label {
	case LabelAI:
		var flagged []string
		for _, a := range analyzers {
			if sig, ok := signals[a.name]; ok && sig.Score > constants.SignalHighlightScore {
				flagged = append(flagged, a.name)
			}
		}
		return fmt.Sprintf("High probability of AI generation (score: %.2f). "+
			"Multiple signals indicate synthetic origin: %s", score, strings.Join(flagged, ", "))
	case LabelHuman:
		return fmt.Sprintf("Likely human-created (score: %.2f). Natural artifacts and patterns detected.", score)
	default:
		return fmt.Sprintf("Uncertain origin (score: %.2f). Mixed signals prevent definitive classification.", score)
	}
}

func failedVerdict(err error) Verdict {
	log.Error().Err(err).Msg("AI detection failed")
	return Verdict{
		Score:       constants.NeutralScore,
		Verdict:     LabelUncertain,
		Explanation: "Detection failed: " + err.Error(),
		Signals: map[string]Signal{
			SignalPipelineFail: {
				Name:        SignalPipelineFail,
				Score:       constants.NeutralScore,
				Description: err.Error(),
				Err:         err,
			},
		},
	}
}

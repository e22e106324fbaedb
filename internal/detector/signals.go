package detector

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/bits"

	"github.com/corona10/goimagehash"
	"github.com/kozaktomas/tracelens/internal/constants"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	errEmptyPlane = errors.New("empty pixel plane")
	errNotANumber = errors.New("score is not a number")
)

// sample is the shared, capped view of one image that every analyzer reads.
type sample struct {
	buf  *imaging.Buffer
	rgba *image.RGBA
	gray imaging.Plane
}

func newSample(buf *imaging.Buffer, maxSize int) *sample {
	rgba := buf.RGBA(maxSize)
	return &sample{
		buf:  buf,
		rgba: rgba,
		gray: imaging.GrayPlane(rgba),
	}
}

type analyzer struct {
	name        string
	description string
	measure     func(s *sample) (float64, error)
}

// analyzers lists every signal in reporting order.
var analyzers = []analyzer{
	{SignalNoise, "Low noise suggests potential AI generation", measureNoise},
	{SignalFrequency, "Unusual frequency patterns common in AI images", measureFrequency},
	{SignalColor, "Overly uniform colors may indicate AI generation", measureColor},
	{SignalHashEntropy, "Hash patterns can reveal synthetic artifacts", measureHashEntropy},
}

// run evaluates one analyzer. It never panics; failures become neutral signals.
func (a analyzer) run(s *sample) (sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			sig = neutralSignal(a.name, fmt.Errorf("panic: %v", r))
		}
	}()

	score, err := a.measure(s)
	if err == nil && math.IsNaN(score) {
		err = errNotANumber
	}
	if err != nil {
		return neutralSignal(a.name, err)
	}
	return Signal{Name: a.name, Score: clamp01(score), Description: a.description}
}

func neutralSignal(name string, err error) Signal {
	log.Warn().Err(err).Str("signal", name).Msg("signal analysis failed, using neutral score")
	return Signal{
		Name:        name,
		Score:       constants.NeutralScore,
		Description: "error: " + err.Error(),
		Err:         err,
	}
}

// AnalyzeNoise runs only the noise-level analyzer.
func AnalyzeNoise(buf *imaging.Buffer) Signal { return analyzeOne(buf, analyzers[0]) }

// AnalyzeFrequency runs only the frequency-domain analyzer.
func AnalyzeFrequency(buf *imaging.Buffer) Signal { return analyzeOne(buf, analyzers[1]) }

// AnalyzeColor runs only the color-distribution analyzer.
func AnalyzeColor(buf *imaging.Buffer) Signal { return analyzeOne(buf, analyzers[2]) }

// AnalyzeHashEntropy runs only the hash-entropy analyzer.
func AnalyzeHashEntropy(buf *imaging.Buffer) Signal { return analyzeOne(buf, analyzers[3]) }

func analyzeOne(buf *imaging.Buffer, a analyzer) Signal {
	if buf == nil {
		return neutralSignal(a.name, imaging.ErrNilImage)
	}
	return a.run(newSample(buf, constants.MaxAnalysisSize))
}

// measureNoise averages the 3x3 local variance of the grayscale image and inverts
// it against the sensor-noise ceiling: smooth images score high.
func measureNoise(s *sample) (float64, error) {
	avg, err := meanLocalVariance(s.gray)
	if err != nil {
		return 0, err
	}
	normalized := math.Min(avg/constants.NoiseReferenceVariance, 1.0)
	return 1.0 - normalized, nil
}

// meanLocalVariance computes the population variance over every 3x3 window.
// Out-of-bounds neighbours reflect back onto the edge pixel.
func meanLocalVariance(gray imaging.Plane) (float64, error) {
	height := len(gray)
	if height == 0 || len(gray[0]) == 0 {
		return 0, errEmptyPlane
	}
	width := len(gray[0])

	var total float64
	for y := range height {
		for x := range width {
			var sum, sumSq float64
			for dy := -1; dy <= 1; dy++ {
				row := gray[clampIndex(y+dy, height)]
				for dx := -1; dx <= 1; dx++ {
					v := row[clampIndex(x+dx, width)]
					sum += v
					sumSq += v * v
				}
			}
			mean := sum / 9
			total += math.Max(sumSq/9-mean*mean, 0)
		}
	}
	return total / float64(width*height), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// measureFrequency maps the share of spectral magnitude in the central quartile box.
func measureFrequency(s *sample) (float64, error) {
	concentration, err := centralConcentration(s.gray)
	if err != nil {
		return 0, err
	}
	switch {
	case concentration > 0.8:
		return 0.7, nil
	case concentration > 0.7:
		return 0.5, nil
	default:
		return 0.3, nil
	}
}

// centralConcentration returns the fraction of the zero-centred magnitude spectrum
// that falls inside [h/4, 3h/4) x [w/4, 3w/4).
func centralConcentration(gray imaging.Plane) (float64, error) {
	height := len(gray)
	if height == 0 || len(gray[0]) == 0 {
		return 0, errEmptyPlane
	}
	width := len(gray[0])

	spectrum := fft2(gray)

	var center, total float64
	for y := range height {
		sy := (y + height/2) % height
		inRows := sy >= height/4 && sy < 3*height/4
		for x := range width {
			mag := math.Hypot(real(spectrum[y][x]), imag(spectrum[y][x]))
			total += mag
			sx := (x + width/2) % width
			if inRows && sx >= width/4 && sx < 3*width/4 {
				center += mag
			}
		}
	}
	return center / (total + 1e-10), nil
}

// fft2 computes the 2D discrete Fourier transform as row transforms followed by column transforms.
func fft2(gray imaging.Plane) [][]complex128 {
	height, width := len(gray), len(gray[0])

	out := make([][]complex128, height)
	rowFFT := fourier.NewCmplxFFT(width)
	row := make([]complex128, width)
	for y := range height {
		for x, v := range gray[y] {
			row[x] = complex(v, 0)
		}
		out[y] = rowFFT.Coefficients(nil, row)
	}

	colFFT := fourier.NewCmplxFFT(height)
	col := make([]complex128, height)
	colOut := make([]complex128, height)
	for x := range width {
		for y := range height {
			col[y] = out[y][x]
		}
		colOut = colFFT.Coefficients(colOut, col)
		for y := range height {
			out[y][x] = colOut[y]
		}
	}
	return out
}

// measureColor maps the mean per-channel histogram entropy (natural log).
// Grayscale sources are measured on the RGB copy, where all three channels agree.
func measureColor(s *sample) (float64, error) {
	avg, err := meanChannelEntropy(imaging.ChannelValues(s.rgba))
	if err != nil {
		return 0, err
	}
	switch {
	case avg < 5.5:
		return 0.7, nil
	case avg < 6.5:
		return 0.5, nil
	default:
		return 0.3, nil
	}
}

func meanChannelEntropy(channels [3][]uint8) (float64, error) {
	var sum float64
	for _, values := range channels {
		if len(values) == 0 {
			return 0, errEmptyPlane
		}
		sum += histogramEntropy(values)
	}
	return sum / float64(len(channels)), nil
}

// histogramEntropy is the Shannon entropy of a 256-bin histogram.
func histogramEntropy(values []uint8) float64 {
	var hist [256]float64
	for _, v := range values {
		hist[v]++
	}
	total := float64(len(values)) + 1e-10

	var entropy float64
	for _, count := range hist {
		p := count / total
		entropy -= p * math.Log(p+1e-10)
	}
	return entropy
}

// measureHashEntropy uses the minority-bit ratio of three concatenated perceptual
// hashes as a structural-entropy proxy.
func measureHashEntropy(s *sample) (float64, error) {
	ratio, err := hashMinorityRatio(s.buf.Image())
	if err != nil {
		return 0, err
	}
	switch {
	case ratio < 0.4:
		return 0.7, nil
	case ratio < 0.6:
		return 0.5, nil
	default:
		return 0.3, nil
	}
}

// hashMinorityRatio returns min(ones, zeros) / (bits/2) over aHash, pHash and dHash.
func hashMinorityRatio(img image.Image) (float64, error) {
	ahash, err := goimagehash.AverageHash(img)
	if err != nil {
		return 0, fmt.Errorf("average hash: %w", err)
	}
	phash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("perception hash: %w", err)
	}
	dhash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("difference hash: %w", err)
	}
	return minorityRatio(ahash.GetHash(), phash.GetHash(), dhash.GetHash()), nil
}

func minorityRatio(hashes ...uint64) float64 {
	length := 64 * len(hashes)
	if length == 0 {
		return 0
	}
	ones := 0
	for _, h := range hashes {
		ones += bits.OnesCount64(h)
	}
	return float64(min(ones, length-ones)) / (float64(length) / 2)
}

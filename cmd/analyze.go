package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/kozaktomas/tracelens/internal/analysis"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/detector"
	"github.com/kozaktomas/tracelens/internal/logging"
	"github.com/kozaktomas/tracelens/internal/revsearch"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze image files",
	Long: `Run the full analysis on one or more image files.
Files share one in-memory fingerprint index, so later files report earlier
ones as near-duplicates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("json", false, "Output results as JSON")
}

// fileFailure records a file that could not be analyzed.
type fileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type analyzeOutput struct {
	Results  []*analysis.Result `json:"results"`
	Failures []fileFailure      `json:"failures,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	if jsonOutput {
		logging.SetWriter(os.Stderr)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index := database.NewFingerprintIndex()
	defer index.Close()
	service := analysis.NewService(cfg, index)

	ctx := context.Background()
	out := analyzeOutput{Results: []*analysis.Result{}}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			out.Failures = append(out.Failures, fileFailure{Path: path, Error: err.Error()})
			continue
		}
		result, err := service.Analyze(ctx, filepath.Base(path), data)
		if err != nil {
			out.Failures = append(out.Failures, fileFailure{Path: path, Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, result)
	}

	if jsonOutput {
		if err := outputJSON(out); err != nil {
			return err
		}
	} else {
		for _, r := range out.Results {
			printResult(r)
		}
		for _, f := range out.Failures {
			color.Red("%s: %s", f.Path, f.Error)
		}
	}

	if len(out.Failures) > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", len(out.Failures), len(args))
	}
	return nil
}

// verdictColor maps a label to the color used to print it.
func verdictColor(label detector.Label) *color.Color {
	switch label {
	case detector.LabelAI:
		return color.New(color.FgRed, color.Bold)
	case detector.LabelHuman:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

func printResult(r *analysis.Result) {
	bold := color.New(color.Bold)
	bold.Printf("\n%s\n", r.Filename)

	v := r.AIDetection
	fmt.Printf("  Verdict:     %s (score %.3f)\n", verdictColor(v.Verdict).Sprint(strings.ToUpper(string(v.Verdict))), v.Score)
	fmt.Printf("  Explanation: %s\n", v.Explanation)

	names := make([]string, 0, len(v.Signals))
	for name := range v.Signals {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("  Signals:")
	for _, name := range names {
		sig := v.Signals[name]
		line := fmt.Sprintf("    %-20s %.3f  %s", name, sig.Score, sig.Description)
		if sig.Neutral() {
			line = color.YellowString("%s (neutral)", line)
		}
		fmt.Println(line)
	}

	hash := r.PerceptualHash
	if hash == "" {
		hash = color.YellowString("unavailable")
	}
	fmt.Printf("  pHash:       %s\n", hash)

	if len(r.Duplicates) == 0 {
		fmt.Println("  Duplicates:  none")
	} else {
		fmt.Printf("  Duplicates:  %d\n", len(r.Duplicates))
		for _, d := range r.Duplicates {
			fmt.Printf("    %s  distance %d  (%.2f%%)\n", d.Hash, d.Distance, d.SimilarityPercentage)
		}
	}

	fmt.Println("  Reverse search:")
	for _, m := range r.ReverseSearch {
		if revsearch.IsSentinel(m) {
			fmt.Println("    no matches")
			continue
		}
		line := fmt.Sprintf("    %-16s %.2f", m.Source, m.Similarity)
		if m.URL != nil {
			line += "  " + *m.URL
		}
		fmt.Println(line)
	}

	fmt.Printf("  Metadata:    %d tags\n", r.Metadata.TagCount())
	if sw := r.Metadata.Software(); sw != "" {
		fmt.Printf("  Software:    %s\n", sw)
	}
}

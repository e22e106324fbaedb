package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/kozaktomas/tracelens/internal/database"
	"github.com/kozaktomas/tracelens/internal/fingerprint"
	"github.com/kozaktomas/tracelens/internal/imaging"
	"github.com/kozaktomas/tracelens/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Find near-duplicate images in a directory",
	Long: `Fingerprint every image under a directory and print groups of
near-duplicates. Files with identical fingerprints are always grouped.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("threshold", database.DuplicateThresholdBits, "Maximum Hamming distance (0-64)")
	scanCmd.Flags().Int("concurrency", 4, "Number of files fingerprinted in parallel")
	scanCmd.Flags().Bool("json", false, "Output groups as JSON")
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// scannedFile is one fingerprinted file.
type scannedFile struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// duplicateGroup is a set of files within the threshold of the first one.
type duplicateGroup struct {
	Files []scannedFile `json:"files"`
}

func collectImages(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func fingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	buf, err := imaging.Decode(data)
	if err != nil {
		return "", err
	}
	hash := fingerprint.ComputeBuffer(buf)
	if hash == "" {
		return "", errors.New("fingerprint unavailable")
	}
	return hash, nil
}

// groupDuplicates clusters files greedily: each ungrouped file starts a group
// holding every ungrouped file within threshold of it.
func groupDuplicates(files []scannedFile, index *database.FingerprintIndex, threshold int) []duplicateGroup {
	byHash := make(map[string][]int)
	for i, f := range files {
		byHash[f.Hash] = append(byHash[f.Hash], i)
	}

	grouped := make([]bool, len(files))
	var groups []duplicateGroup
	for i, f := range files {
		if grouped[i] {
			continue
		}
		members := []int{}
		// Scan skips identical hashes, so exact copies are added separately.
		for _, j := range byHash[f.Hash] {
			if !grouped[j] {
				members = append(members, j)
			}
		}
		for _, m := range index.Scan(f.Hash, threshold) {
			for _, j := range byHash[m.Hash] {
				if !grouped[j] && !containsIndex(members, j) {
					members = append(members, j)
				}
			}
		}
		if len(members) < 2 {
			continue
		}
		group := duplicateGroup{}
		for _, j := range members {
			grouped[j] = true
			group.Files = append(group.Files, files[j])
		}
		groups = append(groups, group)
	}
	return groups
}

func containsIndex(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func runScan(cmd *cobra.Command, args []string) error {
	threshold := mustGetInt(cmd, "threshold")
	concurrency := max(1, mustGetInt(cmd, "concurrency"))
	jsonOutput := mustGetBool(cmd, "json")
	if jsonOutput {
		logging.SetWriter(os.Stderr)
	}

	if threshold < 0 || threshold > 64 {
		return fmt.Errorf("threshold must be between 0 and 64, got %d", threshold)
	}

	paths, err := collectImages(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		if jsonOutput {
			return outputJSON([]duplicateGroup{})
		}
		fmt.Println("No images found.")
		return nil
	}

	// Create progress bar (only for non-JSON output)
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription("Fingerprinting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	index := database.NewFingerprintIndex()
	defer index.Close()

	hashes := make([]string, len(paths))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			hash, err := fingerprintFile(path)
			if err != nil {
				log.Debug().Err(err).Str("path", path).Msg("skipping file")
				mu.Lock()
				failed++
				mu.Unlock()
			} else {
				index.Insert(hash)
				hashes[i] = hash
			}
			if bar != nil {
				bar.Add(1)
			}
		}()
	}
	wg.Wait()

	files := make([]scannedFile, 0, len(paths))
	for i, path := range paths {
		if hashes[i] != "" {
			files = append(files, scannedFile{Path: path, Hash: hashes[i]})
		}
	}

	groups := groupDuplicates(files, index, threshold)

	if jsonOutput {
		if groups == nil {
			groups = []duplicateGroup{}
		}
		return outputJSON(groups)
	}

	fmt.Printf("\n\nFingerprinted %d of %d images", len(files), len(paths))
	if failed > 0 {
		fmt.Printf(" (%s)", color.YellowString("%d skipped", failed))
	}
	fmt.Println()

	if len(groups) == 0 {
		color.Green("No near-duplicates found within %d bits.", threshold)
		return nil
	}

	for i, g := range groups {
		color.New(color.Bold).Printf("\nGroup %d (%d files)\n", i+1, len(g.Files))
		for _, f := range g.Files {
			fmt.Printf("  %s  %s\n", f.Hash, f.Path)
		}
	}
	return nil
}

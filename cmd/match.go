package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-login/internal/facematch"
	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Identify a face image against the gallery",
	Long: `Load the gallery reference images, then find the closest identity to the
given image. The match is accepted when its distance is at most the threshold.

Examples:
  # Who is this?
  face-login match capture.png

  # Stricter threshold, show every candidate
  face-login match --threshold 40 --all capture.png`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int("threshold", 0, "Maximum accepted distance (default MATCH_THRESHOLD)")
	matchCmd.Flags().Bool("all", false, "Show all candidates ranked by distance")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

// MatchResult is the outcome of the match command.
type MatchResult struct {
	Image      string           `json:"image"`
	Matched    bool             `json:"matched"`
	Identity   string           `json:"identity,omitempty"`
	Distance   *int             `json:"distance,omitempty"`
	Threshold  int              `json:"threshold"`
	Ready      int              `json:"gallery_ready"`
	Total      int              `json:"gallery_total"`
	Candidates []CandidateEntry `json:"candidates,omitempty"`
	Failed     []string         `json:"failed,omitempty"`
}

// CandidateEntry is one ranked gallery identity.
type CandidateEntry struct {
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	showAll := mustGetBool(cmd, "all")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	threshold, err := thresholdFlag(cmd, cfg)
	if err != nil {
		return err
	}

	log, err := newCLILogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	// Fingerprint the probe first so a bad image fails before loading the gallery.
	probe, err := fingerprintFile(registry.Extractor(), args[0])
	if err != nil {
		return err
	}

	if _, err := initStorage(ctx, cfg, log); err != nil {
		return err
	}
	defer closeStorage()

	report := loadGallery(ctx, cfg, registry, log, jsonOutput)
	snapshot := registry.Snapshot()

	match, err := facematch.BestMatch(probe, snapshot, threshold)
	if err != nil {
		return fmt.Errorf("matching: %w", err)
	}

	result := MatchResult{
		Image:     args[0],
		Matched:   match != nil,
		Threshold: threshold,
		Ready:     readyCount(snapshot),
		Total:     len(snapshot),
	}
	if match != nil {
		result.Identity = match.Identity.Name
		result.Distance = &match.Distance
	}
	if showAll {
		ranked, err := facematch.Rank(probe, snapshot)
		if err != nil {
			return fmt.Errorf("ranking: %w", err)
		}
		for _, m := range ranked {
			result.Candidates = append(result.Candidates, CandidateEntry{Name: m.Identity.Name, Distance: m.Distance})
		}
	}
	for name := range report.Failed {
		result.Failed = append(result.Failed, name)
	}

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Gallery: %d of %d identities ready\n", result.Ready, result.Total)
	if match != nil {
		fmt.Printf("Match:   %s (distance %d, threshold %d)\n", match.Identity.Name, match.Distance, threshold)
	} else {
		fmt.Printf("No match (threshold %d)\n", threshold)
	}

	if showAll && len(result.Candidates) > 0 {
		fmt.Println("\nCandidates:")
		for i, c := range result.Candidates {
			marker := " "
			if c.Distance <= threshold {
				marker = "*"
			}
			fmt.Printf("  %s %2d. %-20s %d\n", marker, i+1, c.Name, c.Distance)
		}
	}

	printLoadFailures(report)
	return nil
}

func readyCount(identities []gallery.Identity) int {
	n := 0
	for _, identity := range identities {
		if identity.Ready() {
			n++
		}
	}
	return n
}

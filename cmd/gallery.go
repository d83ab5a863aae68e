package cmd

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-login/internal/gallery"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Load the gallery and show each identity's fingerprint",
	Long: `Load every reference image of the gallery and print which identities
are ready for face login, with their fingerprints.

Examples:
  face-login gallery
  face-login gallery --gallery my-gallery.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().Bool("json", false, "Output as JSON")
}

// GalleryEntry describes one identity in the gallery command output.
type GalleryEntry struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Ready       bool   `json:"ready"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// GalleryOutput is the JSON output of the gallery command.
type GalleryOutput struct {
	Identities []GalleryEntry `json:"identities"`
	Ready      int            `json:"ready"`
	Cached     int            `json:"cached"`
	Total      int            `json:"total"`
	Duration   string         `json:"duration"`
}

func runGallery(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := cmd.Context()

	cfg, err := loadConfig()
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

	if _, err := initStorage(ctx, cfg, log); err != nil {
		return err
	}
	defer closeStorage()

	report := loadGallery(ctx, cfg, registry, log, jsonOutput)
	out := buildGalleryOutput(registry.Snapshot(), report)

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Printf("Gallery: %d of %d identities ready (%d from cache) in %s\n\n", out.Ready, out.Total, out.Cached, out.Duration)
	for _, e := range out.Identities {
		state := "pending"
		if e.Ready {
			state = "ready"
		}
		fmt.Printf("  %-20s %-8s %s\n", e.Name, state, e.Image)
		if e.Fingerprint != "" {
			fmt.Printf("  %-20s %s\n", "", e.Fingerprint)
		}
	}

	printLoadFailures(report)
	return nil
}

func buildGalleryOutput(snapshot []gallery.Identity, report gallery.LoadReport) GalleryOutput {
	out := GalleryOutput{
		Identities: make([]GalleryEntry, len(snapshot)),
		Cached:     len(report.Cached),
		Total:      len(snapshot),
		Duration:   report.Duration.Round(time.Millisecond).String(),
	}
	for i, identity := range snapshot {
		entry := GalleryEntry{
			Name:  identity.Name,
			Image: identity.ImageRef,
			Ready: identity.Ready(),
		}
		if identity.Ready() {
			out.Ready++
			entry.Fingerprint = identity.Fingerprint.Hex()
		}
		if err, ok := report.Failed[identity.Name]; ok {
			entry.Error = err.Error()
		}
		out.Identities[i] = entry
	}
	return out
}

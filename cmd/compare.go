package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image-a> <image-b>",
	Short: "Print the Hamming distance between two images",
	Long: `Fingerprint two images and print how many bits differ.

Examples:
  face-login compare public/users/nd.JPG capture.png
  face-login compare --threshold 60 a.jpg b.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Int("threshold", 0, "Acceptance threshold to evaluate (default MATCH_THRESHOLD)")
	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

// CompareResult is the outcome of comparing two images.
type CompareResult struct {
	A         string `json:"a"`
	B         string `json:"b"`
	Distance  int    `json:"distance"`
	Length    int    `json:"length"`
	Threshold int    `json:"threshold"`
	Match     bool   `json:"match"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	threshold, err := thresholdFlag(cmd, cfg)
	if err != nil {
		return err
	}
	extractor, err := cfg.Match.Extractor()
	if err != nil {
		return err
	}

	a, err := fingerprintFile(extractor, args[0])
	if err != nil {
		return err
	}
	b, err := fingerprintFile(extractor, args[1])
	if err != nil {
		return err
	}

	distance, err := fingerprint.Distance(a, b)
	if err != nil {
		return fmt.Errorf("comparing fingerprints: %w", err)
	}

	result := CompareResult{
		A:         args[0],
		B:         args[1],
		Distance:  distance,
		Length:    a.Len(),
		Threshold: threshold,
		Match:     distance <= threshold,
	}
	if jsonOutput {
		return outputJSON(result)
	}

	similarity := 100 * float64(result.Length-distance) / float64(result.Length)
	fmt.Printf("Distance:   %d / %d bits (%.1f%% similar)\n", distance, result.Length, similarity)
	fmt.Printf("Threshold:  %d\n", threshold)
	if result.Match {
		fmt.Println("Result:     match")
	} else {
		fmt.Println("Result:     no match")
	}
	return nil
}

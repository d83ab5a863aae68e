package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/face-login/internal/fingerprint"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <image>...",
	Short: "Print the perceptual fingerprint of images",
	Long: `Compute the average-hash fingerprint of one or more image files using
the configured grid size (HASH_GRID_SIZE) and filter (HASH_FILTER).

Examples:
  # Hex fingerprint of a photo
  face-login hash public/users/nd.JPG

  # Full bit string, as JSON
  face-login hash --bits --json capture.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().Bool("json", false, "Output as JSON")
	hashCmd.Flags().Bool("bits", false, "Print the full bit string instead of hex")
}

// HashResult is the fingerprint of one image file.
type HashResult struct {
	Path   string `json:"path"`
	Length int    `json:"length,omitempty"`
	Hex    string `json:"hex,omitempty"`
	Bits   string `json:"bits,omitempty"`
	Error  string `json:"error,omitempty"`
}

// fingerprintFile reads and fingerprints a single image file.
func fingerprintFile(extractor *fingerprint.Extractor, path string) (fingerprint.Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("reading %s: %w", path, err)
	}
	fp, err := extractor.ExtractBytes(data)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("%s: %w", path, err)
	}
	return fp, nil
}

func runHash(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	showBits := mustGetBool(cmd, "bits")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	extractor, err := cfg.Match.Extractor()
	if err != nil {
		return err
	}

	results := make([]HashResult, 0, len(args))
	failed := 0
	for _, path := range args {
		fp, err := fingerprintFile(extractor, path)
		if err != nil {
			failed++
			results = append(results, HashResult{Path: path, Error: err.Error()})
			continue
		}
		result := HashResult{Path: path, Length: fp.Len(), Hex: fp.Hex()}
		if showBits {
			result.Bits = fp.String()
		}
		results = append(results, result)
	}

	if jsonOutput {
		if err := outputJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Fprintf(os.Stderr, "error: %s\n", r.Error)
			case showBits:
				fmt.Printf("%s  %s\n", r.Bits, r.Path)
			default:
				fmt.Printf("%s  %s\n", r.Hex, r.Path)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}

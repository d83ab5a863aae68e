package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var galleryFile string

var rootCmd = &cobra.Command{
	Use:   "face-login",
	Short: "Log in by face against a small gallery of known people",
	Long: `Face Login identifies a person from a captured or uploaded photo by
comparing a coarse perceptual fingerprint (average hash) against a gallery
of reference images, and serves a small message board for logged-in people.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&galleryFile, "gallery", "", "Gallery seed file (overrides GALLERY_FILE)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

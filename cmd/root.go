package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face enrollment and recognition for access control",
	Long: `Facegate enrolls people from batches of face photos and identifies
them on subsequent scans. It talks to an external face service for
detection and embeddings, stores identities and face samples in
PostgreSQL, and keeps a nearest-neighbor model in memory for fast
identification.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stationhouse",
	Short: "Backend for the fire district website",
	Long:  "Stationhouse is the backend for the agency's public site: email/password authentication with verification codes, invitation-gated registration, session management, and the blog and contact APIs behind the admin dashboard.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (built-in defaults and STATIONHOUSE_* env when omitted)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command apmctl processes WAV files with the audio processing module.
package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/apm/internal/cli"
)

func main() {
	if err := cli.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "apmctl:", err)
		os.Exit(1)
	}
}

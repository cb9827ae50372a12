package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(app.ExitCode(err))
	}
}

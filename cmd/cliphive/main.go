// @title ClipHive Narrator API
// @version 1.0
// @description Resolves short-form videos and keeps translated narration in sync with their playback.
// @BasePath /api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

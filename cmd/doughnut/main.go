package main

import (
	"context"
	"os"
)

// Set at link time: -ldflags "-X main.version=1.2.0 -X main.buildMode=release".
var (
	version   = "dev"
	buildMode = "debug"
)

func main() {
	noColor = !colorEnabled(os.Stderr, os.LookupEnv)

	a := newApp()
	err := newRootCmd(a).ExecuteContext(context.Background())
	a.close()
	if err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

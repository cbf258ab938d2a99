// Command coown manages the capital and the deals income of a shared brokerage account.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/coown/cmd"
	"github.com/google/subcommands"
)

func main() {
	// exits when invoked by the shell for completion.
	cmd.Completion().Complete("coown")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// Package cmd implements the CLI application to manage a shared brokerage account.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/coown"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "coown.yaml", "Path to the YAML configuration file")
	bookDir    = flag.String("book", "", "Path to the book directory. Overrides the configuration file.")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error). Overrides the configuration file.")
	raw        = flag.Bool("raw", false, "Print markdown as is, without terminal rendering")
)

// Commands lists the application subcommands, by group.
var Commands = map[string][]subcommands.Command{
	"account":    {&initCmd{}, &coOwnerCmd{}, &capitalCmd{}},
	"operations": {&importCmd{}, &sharesCmd{}},
	"deals":      {&syncCmd{}, &incomeCmd{}, &dealsCmd{}},
	"help":       {&topicCmd{}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	for group, cmds := range Commands {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}

// app is what every subcommand needs: the resolved configuration and a logger.
type app struct {
	cfg Config
	log *zap.SugaredLogger
}

// newApp resolves the configuration from the config file and the global flags.
func newApp() (*app, error) {
	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	if *bookDir != "" {
		cfg.Book = *bookDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger.Sugar()}, nil
}

// run wraps a subcommand body with the app setup and the error reporting.
func run(body func(a *app) error) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.log.Sync()
	if err := body(a); err != nil {
		a.log.Errorw("command failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// openBook decodes the book from the configured directory.
func (a *app) openBook() (*coown.Book, error) {
	if _, err := os.Stat(filepath.Join(a.cfg.Book, coown.AccountFile)); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no book in %q, run 'coown init' first", a.cfg.Book)
	}
	b, err := coown.OpenBook(a.cfg.Book)
	if err != nil {
		return nil, err
	}
	a.log.Debugw("book opened", "dir", a.cfg.Book, "account", b.Account().ID)
	return b, nil
}

// saveBook encodes the book into the configured directory.
func (a *app) saveBook(b *coown.Book) error {
	if err := b.Save(a.cfg.Book); err != nil {
		return fmt.Errorf("cannot save book in %q: %w", a.cfg.Book, err)
	}
	a.log.Debugw("book saved", "dir", a.cfg.Book)
	return nil
}

// printMarkdown prints md to stdout, rendered for the terminal unless -raw is set.
func printMarkdown(md string) {
	if *raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

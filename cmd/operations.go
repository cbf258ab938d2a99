package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/etnz/coown"
	"github.com/etnz/coown/broker"
	"github.com/etnz/coown/renderer"
	"github.com/google/subcommands"
)

type importCmd struct {
	selector string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import broker operations exports into the book" }
func (*importCmd) Usage() string {
	return `coown import [-selector <jsonpath>] <export.json>...

  Reads broker operations exports, records the executed operations that are
  not in the book yet, assigns trades and dividends to deals and recomputes
  the income of every deal they changed.

  New trades are shared between co-owners according to their current default
  share in the trade currency.
`
}

func (p *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.selector, "selector", "", "JSONPath of the operations list. Overrides the configuration file.")
}

func (p *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		if f.NArg() == 0 {
			return errors.New("at least one export file is required")
		}
		book, err := a.openBook()
		if err != nil {
			return err
		}
		im := broker.Importer{Account: book.Account().ID, Selector: a.cfg.Broker.Selector}
		if p.selector != "" {
			im.Selector = p.selector
		}

		var ops []coown.Operation
		for _, name := range f.Args() {
			decoded, err := decodeExport(im, name)
			if err != nil {
				return err
			}
			a.log.Debugw("export decoded", "file", name, "operations", len(decoded))
			ops = append(ops, decoded...)
		}

		res, err := book.Sync(ops)
		if err != nil {
			return err
		}
		a.log.Infow("operations imported", "added", len(res.Added), "known", res.Duplicates, "newDeals", len(res.Assignment.Created))
		if len(res.Assignment.Unassigned) > 0 {
			a.log.Warnw("dividends without a deal", "operations", res.Assignment.Unassigned)
		}
		logSkipped(a, res.Skipped)
		if err := a.saveBook(book); err != nil {
			return err
		}
		printMarkdown(renderer.RenderSync(res))
		return nil
	})
}

func decodeExport(im broker.Importer, name string) ([]coown.Operation, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ops, err := im.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot import %q: %w", name, err)
	}
	return ops, nil
}

type sharesCmd struct {
	incomplete bool
}

func (*sharesCmd) Name() string     { return "shares" }
func (*sharesCmd) Synopsis() string { return "display the co-owners shares of each trade" }
func (*sharesCmd) Usage() string {
	return `coown shares [-incomplete]

  Displays the share of each co-owner in each trade, as recorded when the
  trade was imported.
`
}

func (p *sharesCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.incomplete, "incomplete", false, "Only list the trades whose shares do not sum to 100%")
}

func (p *sharesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		book, err := a.openBook()
		if err != nil {
			return err
		}
		ledger := coown.NewShareLedger(book.Shares()...)
		incomplete := ledger.Incomplete()
		rows := ledger.Rows()
		if p.incomplete {
			rows = slices.DeleteFunc(rows, func(s coown.Share) bool { return !slices.Contains(incomplete, s.Operation) })
		}
		printMarkdown(renderer.RenderShares(rows, incomplete))
		return nil
	})
}

// logSkipped warns about deals whose income could not be computed.
func logSkipped(a *app, skipped map[coown.DealID]error) {
	for _, id := range slices.Sorted(maps.Keys(skipped)) {
		a.log.Warnw("deal income not computed", "deal", id, "error", skipped[id])
	}
}

package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/coown"
	"github.com/etnz/coown/renderer"
	"github.com/google/subcommands"
)

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "recompute the income of every deal" }
func (*syncCmd) Usage() string {
	return `coown sync

  Recomputes the income of every deal from its operations and shares, and
  removes the income of co-owners that no longer take part in a deal.
`
}

func (*syncCmd) SetFlags(f *flag.FlagSet) {}

func (*syncCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		book, err := a.openBook()
		if err != nil {
			return err
		}
		incomes, skipped := book.RecomputeAll()
		a.log.Infow("deals recomputed", "deals", len(incomes), "skipped", len(skipped))
		logSkipped(a, skipped)
		if err := a.saveBook(book); err != nil {
			return err
		}
		printMarkdown(renderer.RenderSync(coown.SyncResult{Incomes: incomes, Skipped: skipped}))
		return nil
	})
}

type incomeCmd struct {
	deal string
}

func (*incomeCmd) Name() string     { return "income" }
func (*incomeCmd) Synopsis() string { return "display the income of each co-owner in a deal" }
func (*incomeCmd) Usage() string {
	return `coown income -deal <deal>

  Recomputes and displays the income of each co-owner in a deal. A deal
  without any sale has a zero income.
`
}

func (p *incomeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.deal, "deal", "", "Deal id, or a unique prefix of it")
}

func (p *incomeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		book, err := a.openBook()
		if err != nil {
			return err
		}
		deal, err := findDeal(book.Deals(), p.deal)
		if err != nil {
			return err
		}
		res, err := book.RecomputeDeal(deal.ID)
		if err != nil {
			return err
		}
		if len(res.Stale) > 0 {
			a.log.Infow("stale incomes removed", "deal", deal.ID, "coOwners", res.Stale)
		}
		if err := a.saveBook(book); err != nil {
			return err
		}
		printMarkdown(renderer.RenderIncome(renderer.NewIncome(book.Account(), deal, res)))
		return nil
	})
}

// findDeal returns the deal whose id is, or starts with, prefix.
func findDeal(deals []coown.Deal, prefix string) (coown.Deal, error) {
	if prefix == "" {
		return coown.Deal{}, fmt.Errorf("-deal is required")
	}
	var found []coown.Deal
	for _, d := range deals {
		if string(d.ID) == prefix {
			return d, nil
		}
		if strings.HasPrefix(string(d.ID), prefix) {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return coown.Deal{}, fmt.Errorf("no deal %q", prefix)
	case 1:
		return found[0], nil
	default:
		return coown.Deal{}, fmt.Errorf("%d deals start with %q", len(found), prefix)
	}
}

type dealsCmd struct{}

func (*dealsCmd) Name() string     { return "deals" }
func (*dealsCmd) Synopsis() string { return "list the deals of the account" }
func (*dealsCmd) Usage() string {
	return `coown deals

  Lists every deal with its state, the lots bought and sold, and the total
  income last computed.
`
}

func (*dealsCmd) SetFlags(f *flag.FlagSet) {}

func (*dealsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		book, err := a.openBook()
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderDeals(renderer.NewDeals(book.Account(), book.Deals(), book.Operations())))
		return nil
	})
}

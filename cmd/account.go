package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/coown"
	"github.com/etnz/coown/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type initCmd struct {
	id       string
	name     string
	creator  string
	investor string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a new book for a shared account" }
func (*initCmd) Usage() string {
	return `coown init -id <account> -creator <co-owner> -investor <investor> [-name <name>]

  Creates an empty book in the book directory. The creator is the first
  co-owner of the account and cannot be removed.
`
}

func (p *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.id, "id", "", "Account id")
	f.StringVar(&p.name, "name", "", "Account display name")
	f.StringVar(&p.creator, "creator", "", "Co-owner id of the account creator")
	f.StringVar(&p.investor, "investor", "", "Investor id of the account creator")
}

func (p *initCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		if p.id == "" || p.creator == "" || p.investor == "" {
			return errors.New("-id, -creator and -investor are required")
		}
		if _, err := os.Stat(filepath.Join(a.cfg.Book, coown.AccountFile)); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("a book already exists in %q", a.cfg.Book)
		}
		account := coown.Account{
			ID:   coown.AccountID(p.id),
			Name: p.name,
			CoOwners: []coown.CoOwner{{
				ID:       coown.CoOwnerID(p.creator),
				Account:  coown.AccountID(p.id),
				Investor: coown.InvestorID(p.investor),
				Creator:  true,
			}},
		}
		book, err := coown.NewBook(account)
		if err != nil {
			return err
		}
		if err := a.saveBook(book); err != nil {
			return err
		}
		a.log.Infow("book created", "dir", a.cfg.Book, "account", p.id)
		return nil
	})
}

type coOwnerCmd struct {
	add      string
	investor string
	remove   string
}

func (*coOwnerCmd) Name() string     { return "coowner" }
func (*coOwnerCmd) Synopsis() string { return "add or remove a co-owner of the account" }
func (*coOwnerCmd) Usage() string {
	return `coown coowner -add <co-owner> -investor <investor>
coown coowner -remove <co-owner>

  Adds a co-owner to the account, or removes one with its capital and shares.
  Removing a co-owner recomputes the income of the deals it was part of.
`
}

func (p *coOwnerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.add, "add", "", "Co-owner id to add")
	f.StringVar(&p.investor, "investor", "", "Investor id of the added co-owner")
	f.StringVar(&p.remove, "remove", "", "Co-owner id to remove")
}

func (p *coOwnerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		if (p.add == "") == (p.remove == "") {
			return errors.New("exactly one of -add or -remove is required")
		}
		book, err := a.openBook()
		if err != nil {
			return err
		}
		if p.add != "" {
			if p.investor == "" {
				return errors.New("-investor is required with -add")
			}
			c := coown.CoOwner{ID: coown.CoOwnerID(p.add), Investor: coown.InvestorID(p.investor)}
			if err := book.AddCoOwner(c); err != nil {
				return err
			}
			a.log.Infow("co-owner added", "coOwner", p.add, "investor", p.investor)
			return a.saveBook(book)
		}

		incomes, skipped, err := book.RemoveCoOwner(coown.CoOwnerID(p.remove))
		if err != nil {
			return err
		}
		a.log.Infow("co-owner removed", "coOwner", p.remove, "deals", len(incomes))
		logSkipped(a, skipped)
		return a.saveBook(book)
	})
}

type capitalCmd struct {
	add    listFlag
	values pairsFlag
	shares pairsFlag
}

func (*capitalCmd) Name() string     { return "capital" }
func (*capitalCmd) Synopsis() string { return "display and edit the co-owners capital" }
func (*capitalCmd) Usage() string {
	return `coown capital [-add <capital>:<co-owner>:<currency>]... [-value <capital>=<amount>]... [-share <capital>=<fraction>]...

  Displays the capital of each co-owner per currency, with its default share
  of new trades and the part of the account it could withdraw.

  Edits given with -value and -share are validated and applied together:
  either all of them are applied or none is. When the default shares of a
  currency sum to less than 1, every default share of that currency is
  rescaled so that they sum to 1.

Usage Examples:
$ coown capital -add k1:alice:EUR -add k2:bob:EUR
$ coown capital -value k1=500 -value k2=300 -share k1=0.5 -share k2=0.3
`
}

func (p *capitalCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&p.add, "add", "Declare a capital row as <capital>:<co-owner>:<currency> (repeatable)")
	f.Var(&p.values, "value", "Set a capital value as <capital>=<amount> (repeatable)")
	f.Var(&p.shares, "share", "Set a default share as <capital>=<fraction> (repeatable)")
}

func (p *capitalCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(func(a *app) error {
		book, err := a.openBook()
		if err != nil {
			return err
		}
		changed := false
		for _, s := range p.add {
			id, coOwner, currency, err := parseCapitalRow(s)
			if err != nil {
				return err
			}
			if err := book.AddCapital(id, coOwner, currency); err != nil {
				return err
			}
			changed = true
		}

		edits, err := parseCapitalEdits(&p.values, &p.shares)
		if err != nil {
			return err
		}
		if len(edits) > 0 {
			res, err := book.EditCapital(edits)
			if err != nil {
				return err
			}
			for _, cur := range slices.Sorted(maps.Keys(res.Factors)) {
				a.log.Infow("default shares rescaled", "currency", cur, "factor", res.Factors[cur].String())
			}
			if len(res.Rescaled) > 0 {
				a.log.Warnw("capitals not edited had their default share rescaled", "capitals", res.Rescaled)
			}
			changed = true
		}
		if changed {
			if err := a.saveBook(book); err != nil {
				return err
			}
		}
		printMarkdown(renderer.RenderCapitals(renderer.NewCapitals(book.Account(), book.Capitals(), book.TotalCapital(), book.CashBalance())))
		return nil
	})
}

// parseCapitalRow parses <capital>:<co-owner>:<currency>.
func parseCapitalRow(s string) (coown.CapitalID, coown.CoOwnerID, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid capital %q, expected <capital>:<co-owner>:<currency>", s)
	}
	currency := strings.ToUpper(parts[2])
	if err := coown.ValidateCurrency(currency); err != nil {
		return "", "", "", err
	}
	return coown.CapitalID(parts[0]), coown.CoOwnerID(parts[1]), currency, nil
}

// parseCapitalEdits merges value and share pairs into one batch of edits.
func parseCapitalEdits(values, shares *pairsFlag) (map[coown.CapitalID]coown.CapitalEdit, error) {
	edits := make(map[coown.CapitalID]coown.CapitalEdit)
	for i, k := range values.keys {
		v, err := decimal.NewFromString(values.values[i])
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", k, err)
		}
		e := edits[coown.CapitalID(k)]
		e.Value = &v
		edits[coown.CapitalID(k)] = e
	}
	for i, k := range shares.keys {
		f, err := coown.ParseFraction(shares.values[i])
		if err != nil {
			return nil, err
		}
		v := f.Decimal()
		e := edits[coown.CapitalID(k)]
		e.DefaultShare = &v
		edits[coown.CapitalID(k)] = e
	}
	return edits, nil
}

package cmd

import (
	"fmt"
	"strings"
)

// pairsFlag is a repeatable flag of "key=value" pairs.
type pairsFlag struct {
	keys   []string
	values []string
}

func (p *pairsFlag) String() string {
	pairs := make([]string, len(p.keys))
	for i := range p.keys {
		pairs[i] = p.keys[i] + "=" + p.values[i]
	}
	return strings.Join(pairs, ",")
}

func (p *pairsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" || v == "" {
		return fmt.Errorf("invalid pair %q, expected <key>=<value>", s)
	}
	p.keys = append(p.keys, k)
	p.values = append(p.values, v)
	return nil
}

// listFlag is a repeatable flag of values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }
func (l *listFlag) Set(s string) error {
	*l = append(*l, s)
	return nil
}

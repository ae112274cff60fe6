// Package rank computes deterministic confidence scores for candidate
// identity records against a query. Pure computation, no I/O
package rank

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(), // unicode case folding
			width.Fold,   // map fullwidth forms to ASCII
		)
	},
}

// fold canonicalizes a name for comparison: NFKC, case fold, width fold, trim
func fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return strings.TrimSpace(ns)
}

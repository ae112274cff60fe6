package rank

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Signal weights. They sum to 1.0 so confidence lands on a 0-100 scale
const (
	weightName         = 0.40
	weightAccount      = 0.25
	weightKeyword      = 0.15
	weightGroup        = 0.10
	weightCompleteness = 0.10
)

// Keyword hits and group overlap are reserved extension points scored at a
// fixed neutral value; no extra upstream calls are made for them
const neutralSignal = 0.5

// Candidate is one identity record under consideration
type Candidate struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Verified    bool       `json:"verified"`
	Created     *time.Time `json:"created,omitempty"`
	Description string     `json:"description,omitempty"`
	Banned      bool       `json:"banned,omitempty"`
}

// Signals is the per-candidate breakdown behind a confidence score
type Signals struct {
	NameSimilarity float64 `json:"name_similarity"`
	AccountSignals float64 `json:"account_signals"`
	KeywordHits    float64 `json:"keyword_hits"`
	GroupOverlap   float64 `json:"group_overlap"`
	Completeness   float64 `json:"completeness"`
}

// Scored is a candidate with its composite confidence and rationale
type Scored struct {
	Candidate  Candidate `json:"candidate"`
	Confidence int       `json:"confidence"`
	Signals    Signals   `json:"signals"`
	Rationale  []string  `json:"rationale"`
}

// Engine scores and orders candidates. Construct one per process;
// it holds no mutable state beyond the clock seam
type Engine struct {
	now func() time.Time
}

// New constructs an Engine
func New() *Engine {
	return &Engine{now: time.Now}
}

// Rank scores every candidate against query and returns them ordered by
// confidence descending. The sort is stable so input order breaks ties
func (e *Engine) Rank(query string, candidates []Candidate) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, e.score(query, c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func (e *Engine) score(query string, c Candidate) Scored {
	sig := Signals{
		NameSimilarity: nameSimilarity(query, c),
		AccountSignals: accountSignals(c, e.now()),
		KeywordHits:    neutralSignal,
		GroupOverlap:   neutralSignal,
		Completeness:   completeness(c),
	}

	composite := sig.NameSimilarity*weightName +
		sig.AccountSignals*weightAccount +
		sig.KeywordHits*weightKeyword +
		sig.GroupOverlap*weightGroup +
		sig.Completeness*weightCompleteness

	return Scored{
		Candidate:  c,
		Confidence: int(math.Round(100 * composite)),
		Signals:    sig,
		Rationale:  rationale(sig, c),
	}
}

// nameSimilarity grades the query against display and primary names with a
// ladder of exact, prefix, and substring checks before falling back to
// string similarity. All comparisons run on folded forms
func nameSimilarity(query string, c Candidate) float64 {
	q := fold(query)
	display := fold(c.DisplayName)
	primary := fold(c.Name)
	if q == "" || (display == "" && primary == "") {
		return 0
	}

	switch {
	case display != "" && display == q:
		return 1.0
	case primary != "" && primary == q:
		return 0.95
	case display != "" && strings.HasPrefix(display, q):
		return 0.85
	case primary != "" && strings.HasPrefix(primary, q):
		return 0.80
	case display != "" && strings.Contains(display, q):
		return 0.70
	case primary != "" && strings.Contains(primary, q):
		return 0.65
	}

	best := jaroWinkler(q, display)
	bestName := display
	if s := jaroWinkler(q, primary); s > best {
		best = s
		bestName = primary
	}

	// a small edit distance means a near-miss typo; floor the score upward
	switch dist := levenshtein(q, bestName); {
	case dist <= 2 && best < 0.75:
		return 0.75
	case dist <= 3 && best < 0.60:
		return 0.60
	}
	return best
}

// accountSignals rewards verification, account age, and a filled-in
// description. Capped at 1.0
func accountSignals(c Candidate, now time.Time) float64 {
	s := 0.0
	if c.Verified {
		s += 0.4
	}

	if c.Created != nil {
		age := now.Sub(*c.Created)
		switch {
		case age > 3*365*24*time.Hour:
			s += 0.3
		case age > 365*24*time.Hour:
			s += 0.2
		case age > 90*24*time.Hour:
			s += 0.1
		}
	} else {
		// unknown age is treated as mildly positive rather than zero
		s += 0.15
	}

	if len(c.Description) > 10 {
		s += 0.3
	} else if len(c.Description) > 0 {
		s += 0.15
	}

	return math.Min(s, 1.0)
}

// completeness rewards a distinct display name, a substantial description,
// and verification. Capped at 1.0
func completeness(c Candidate) float64 {
	s := 0.0
	if c.DisplayName != "" && c.DisplayName != c.Name {
		s += 0.3
	}
	switch {
	case len(c.Description) > 100:
		s += 0.4
	case len(c.Description) > 20:
		s += 0.3
	case len(c.Description) > 0:
		s += 0.1
	}
	if c.Verified {
		s += 0.3
	}
	return math.Min(s, 1.0)
}

// rationale builds the human-readable breakdown. Check order is fixed so
// the strings always appear in the same sequence
func rationale(sig Signals, c Candidate) []string {
	var out []string
	switch {
	case sig.NameSimilarity >= 0.9:
		out = append(out, "Exact name match")
	case sig.NameSimilarity >= 0.8:
		out = append(out, "Strong name similarity")
	case sig.NameSimilarity >= 0.6:
		out = append(out, "Moderate name similarity")
	}
	if c.Verified {
		out = append(out, "Verified badge")
	}
	if sig.AccountSignals >= 0.7 {
		out = append(out, "Established account")
	}
	if sig.Completeness >= 0.7 {
		out = append(out, "Complete profile")
	}
	return out
}

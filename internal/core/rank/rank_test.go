package rank

import (
	"testing"
	"time"

	ptime "veriscope/internal/platform/time"
)

func newTestEngine() *Engine {
	e := New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	return e
}

func yearsAgo(n int) *time.Time {
	return ptime.Ptr(time.Date(2025-n, 5, 1, 0, 0, 0, 0, time.UTC))
}

func TestRankDeterministic(t *testing.T) {
	e := newTestEngine()
	cands := []Candidate{
		{ID: 1, Name: "johndoe", DisplayName: "John Doe", Created: yearsAgo(5)},
		{ID: 2, Name: "johnd", DisplayName: "Johnny"},
	}

	a := e.Rank("johndoe", cands)
	b := e.Rank("johndoe", cands)
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("lens %d %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Confidence != b[i].Confidence || a[i].Candidate.ID != b[i].Candidate.ID {
			t.Fatalf("run diverged at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestExactDisplayBeatsContains(t *testing.T) {
	e := newTestEngine()
	cands := []Candidate{
		{ID: 1, Name: "xjohnx", DisplayName: "also john here"},
		{ID: 2, Name: "whatever", DisplayName: "john"},
	}

	out := e.Rank("john", cands)
	if out[0].Candidate.ID != 2 {
		t.Fatalf("exact display match did not rank first: %+v", out)
	}
	if out[0].Signals.NameSimilarity != 1.0 {
		t.Fatalf("exact display similarity = %f", out[0].Signals.NameSimilarity)
	}
	if out[1].Signals.NameSimilarity != 0.70 {
		t.Fatalf("display contains similarity = %f", out[1].Signals.NameSimilarity)
	}
}

func TestNameSimilarityLadder(t *testing.T) {
	cases := []struct {
		query string
		c     Candidate
		want  float64
	}{
		{"JohnDoe", Candidate{Name: "x", DisplayName: "johndoe"}, 1.0},
		{"johndoe", Candidate{Name: "johndoe", DisplayName: "Johnny"}, 0.95},
		{"john", Candidate{Name: "zzz", DisplayName: "johnny"}, 0.85},
		{"john", Candidate{Name: "johnny", DisplayName: "zzz"}, 0.80},
		{"ohn", Candidate{Name: "zzz", DisplayName: "mrjohn"}, 0.70},
		{"ohn", Candidate{Name: "mrjohn", DisplayName: "zzz"}, 0.65},
	}
	for _, tc := range cases {
		if got := nameSimilarity(tc.query, tc.c); got != tc.want {
			t.Errorf("nameSimilarity(%q, %+v) = %f, want %f", tc.query, tc.c, got, tc.want)
		}
	}
}

func TestNameSimilarityEdgeCases(t *testing.T) {
	if got := nameSimilarity("", Candidate{Name: "john"}); got != 0 {
		t.Fatalf("empty query = %f", got)
	}
	if got := nameSimilarity("john", Candidate{}); got != 0 {
		t.Fatalf("no name data = %f", got)
	}
}

func TestNameSimilarityEditDistanceFloor(t *testing.T) {
	// one transposed pair, edit distance 2, no shared prefix ladder hit
	got := nameSimilarity("ojhndoe", Candidate{Name: "johndoe"})
	if got < 0.75 {
		t.Fatalf("distance-2 floor not applied: %f", got)
	}
}

func TestAccountSignals(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	old := Candidate{Verified: true, Created: yearsAgo(5), Description: "longtime member here"}
	if got := accountSignals(old, now); got != 1.0 {
		t.Fatalf("verified+old+described = %f, want capped 1.0", got)
	}

	noTimestamp := Candidate{}
	if got := accountSignals(noTimestamp, now); got != 0.15 {
		t.Fatalf("no timestamp flat bonus = %f", got)
	}

	shortDesc := Candidate{Description: "hey"}
	if got := accountSignals(shortDesc, now); got != 0.30 { // 0.15 age + 0.15 desc
		t.Fatalf("short description = %f", got)
	}
}

func TestCompleteness(t *testing.T) {
	full := Candidate{
		Name:        "johndoe",
		DisplayName: "John Doe",
		Verified:    true,
		Description: "A description comfortably longer than one hundred characters so the top completeness tier applies to it.",
	}
	if got := completeness(full); got != 1.0 {
		t.Fatalf("full profile = %f", got)
	}
	if got := completeness(Candidate{Name: "a", DisplayName: "a"}); got != 0 {
		t.Fatalf("bare profile = %f", got)
	}
}

func TestRationaleOrder(t *testing.T) {
	e := newTestEngine()
	out := e.Rank("johndoe", []Candidate{{
		ID:          1,
		Name:        "johndoe",
		DisplayName: "John Doe",
		Verified:    true,
		Created:     yearsAgo(5),
		Description: "A description comfortably longer than one hundred characters so the top completeness tier applies to it.",
	}})

	want := []string{"Exact name match", "Verified badge", "Established account", "Complete profile"}
	got := out[0].Rationale
	if len(got) != len(want) {
		t.Fatalf("rationale = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rationale[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestVerifiedExactMatchOutranksPartial(t *testing.T) {
	e := newTestEngine()
	out := e.Rank("JohnDoe", []Candidate{
		{ID: 1, Name: "johndoe", DisplayName: "JohnDoe", Verified: true},
		{ID: 2, Name: "johnny", DisplayName: "Johnny"},
	})

	if out[0].Candidate.ID != 1 {
		t.Fatalf("exact verified candidate not first: %+v", out)
	}
	// maximum reachable composite is 87.5 with the neutral extension signals
	if out[0].Confidence < 70 || out[0].Confidence > 88 {
		t.Fatalf("confidence = %d", out[0].Confidence)
	}
	got := out[0].Rationale
	if len(got) < 2 || got[0] != "Exact name match" || got[1] != "Verified badge" {
		t.Fatalf("rationale = %v", got)
	}
}

func TestHighConfidenceScenario(t *testing.T) {
	e := newTestEngine()
	out := e.Rank("JohnDoe", []Candidate{{
		ID:          42,
		Name:        "JohnDoe",
		DisplayName: "John Doe Gaming",
		Verified:    true,
		Created:     yearsAgo(4),
		Description: "Professional game developer and longtime community member with many published experiences and projects.",
	}})

	// 0.95*0.40 + 1.0*0.25 + 0.5*0.15 + 0.5*0.10 + 1.0*0.10 = 0.855
	if out[0].Confidence < 85 || out[0].Confidence > 86 {
		t.Fatalf("confidence = %d, want ~86", out[0].Confidence)
	}
}

func TestRankEmptyList(t *testing.T) {
	e := newTestEngine()
	out := e.Rank("john", nil)
	if len(out) != 0 {
		t.Fatalf("empty input produced %d results", len(out))
	}
}

func TestStableTieBreak(t *testing.T) {
	e := newTestEngine()
	cands := []Candidate{
		{ID: 1, Name: "aaaz"},
		{ID: 2, Name: "aaaz"},
		{ID: 3, Name: "aaaz"},
	}
	out := e.Rank("zzzzzz", cands)
	for i, want := range []int64{1, 2, 3} {
		if out[i].Candidate.ID != want {
			t.Fatalf("tie order broken: %+v", out)
		}
	}
}

func TestJaroWinkler(t *testing.T) {
	if got := jaroWinkler("martha", "martha"); got != 1.0 {
		t.Fatalf("identical = %f", got)
	}
	got := jaroWinkler("martha", "marhta")
	if got < 0.95 || got > 0.97 {
		t.Fatalf("martha/marhta = %f, want ~0.961", got)
	}
	if got := jaroWinkler("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint = %f", got)
	}
	if got := jaroWinkler("", ""); got != 1.0 {
		t.Fatalf("both empty = %f", got)
	}
	if got := jaroWinkler("a", ""); got != 0 {
		t.Fatalf("one empty = %f", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"johndoe", "johndoe1", 1},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

package config

import (
	"testing"
	"time"

	"veriscope/internal/platform/testkit"
)

func TestMayAccessors(t *testing.T) {
	c := New().Prefix("CFGTEST_")

	if got := c.MayString("ABSENT", "d"); got != "d" {
		t.Fatalf("MayString default = %q", got)
	}
	t.Setenv("CFGTEST_S", " padded ")
	if got := c.MayString("S", ""); got != "padded" {
		t.Fatalf("MayString trim = %q", got)
	}

	t.Setenv("CFGTEST_N", "42")
	if got := c.MayInt("N", 0); got != 42 {
		t.Fatalf("MayInt = %d", got)
	}
	t.Setenv("CFGTEST_N", "x")
	if got := c.MayInt("N", 7); got != 7 {
		t.Fatalf("MayInt invalid = %d", got)
	}

	t.Setenv("CFGTEST_F", "0.25")
	if got := c.MayFloat64("F", 1); got != 0.25 {
		t.Fatalf("MayFloat64 = %v", got)
	}

	t.Setenv("CFGTEST_B", "true")
	if !c.MayBool("B", false) {
		t.Fatalf("MayBool = false, want true")
	}

	t.Setenv("CFGTEST_D", "90s")
	if got := c.MayDuration("D", time.Minute); got != 90*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestMustStringPanicsWhenMissing(t *testing.T) {
	c := New().Prefix("CFGTEST_MUST_")
	testkit.MustPanic(t, func() { c.MustString("NOPE") })
}

func TestMustURL(t *testing.T) {
	c := New().Prefix("CFGTEST_URL_")

	t.Setenv("CFGTEST_URL_U", "https://users.example.com/v1")
	u := c.MustURL("U")
	if u.Host != "users.example.com" {
		t.Fatalf("MustURL host = %q", u.Host)
	}

	t.Setenv("CFGTEST_URL_U", "not a url")
	testkit.MustPanic(t, func() { c.MustURL("U") })
}

func TestPrefixNesting(t *testing.T) {
	t.Setenv("A_B_C", "v")
	if got := New().Prefix("A_").Prefix("B_").MayString("C", ""); got != "v" {
		t.Fatalf("nested prefix = %q", got)
	}
}

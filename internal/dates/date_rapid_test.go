package dates

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// --- Generators ---

func genDate() *rapid.Generator[Date] {
	return rapid.Custom(func(t *rapid.T) Date {
		base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		offset := rapid.IntRange(0, 20000).Draw(t, "offset")
		return FromTime(base.AddDate(0, 0, offset))
	})
}

// --- Property Tests ---

func TestRapidDate_ParseStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDate().Draw(t, "d")
		parsed, err := Parse(d.String())
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", d, err)
		}
		if parsed != d {
			t.Fatalf("round trip %v != %v", parsed, d)
		}
	})
}

func TestRapidDate_AddDaysAdditive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDate().Draw(t, "d")
		a := rapid.IntRange(-500, 500).Draw(t, "a")
		b := rapid.IntRange(-500, 500).Draw(t, "b")

		if got, want := d.AddDays(a).AddDays(b), d.AddDays(a+b); got != want {
			t.Fatalf("AddDays(%d).AddDays(%d) = %v, expected %v", a, b, got, want)
		}
	})
}

func TestRapidDate_AddDaysPreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDate().Draw(t, "d")
		n := rapid.IntRange(1, 1000).Draw(t, "n")

		if !d.Before(d.AddDays(n)) {
			t.Fatalf("%v not before %v", d, d.AddDays(n))
		}
		if !d.AddDays(-n).Before(d) {
			t.Fatalf("%v not after %v", d, d.AddDays(-n))
		}
	})
}

func TestRapidDate_CompareConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genDate().Draw(t, "a")
		b := genDate().Draw(t, "b")

		if a.Compare(b) != -b.Compare(a) {
			t.Fatalf("Compare not antisymmetric for %v, %v", a, b)
		}
		if a.Before(b) != (a.Compare(b) < 0) {
			t.Fatalf("Before inconsistent with Compare for %v, %v", a, b)
		}
		if (a.Compare(b) == 0) != (a == b) {
			t.Fatalf("Compare zero inconsistent with equality for %v, %v", a, b)
		}
	})
}

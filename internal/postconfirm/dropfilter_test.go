package postconfirm

import "testing"

func TestDropFilterDefaults(t *testing.T) {
	f, err := NewDropFilter("", "")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		headers []Header
		want    bool
	}{
		{nil, false},
		{[]Header{{Name: "Subject", Value: "Hello"}}, false},
		{[]Header{{Name: "Precedence", Value: " bulk"}}, true},
		{[]Header{{Name: "precedence", Value: "Junk"}}, true},
		{[]Header{{Name: "Auto-Submitted", Value: "auto-replied"}}, true},
		{[]Header{{Name: "Auto-Submitted", Value: "no"}}, false},
	}

	for _, c := range cases {
		if got := f.Evaluate(c.headers); got != c.want {
			t.Errorf("Evaluate(%v) = %v, want %v", c.headers, got, c.want)
		}
	}
}

func TestDropFilterMonotone(t *testing.T) {
	f, err := NewDropFilter("", "")
	if err != nil {
		t.Fatal(err)
	}

	base := []Header{{Name: "Subject", Value: "Hello"}}
	if f.Evaluate(base) {
		t.Fatal("base headers should not drop")
	}

	withBulk := append(append([]Header(nil), base...), Header{Name: "Precedence", Value: "bulk"})
	if !f.Evaluate(withBulk) {
		t.Fatal("adding a bulk Precedence header must flip drop=true")
	}

	withBoth := append(append([]Header(nil), withBulk...), Header{Name: "Auto-Submitted", Value: "no"})
	if !f.Evaluate(withBoth) {
		t.Fatal("adding another header must never flip drop=true back to false")
	}
}

func TestDropFilterCustomRegex(t *testing.T) {
	f, err := NewDropFilter("newsletter", `^robot-`)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Evaluate([]Header{{Name: "Precedence", Value: "newsletter"}}) {
		t.Fatal("expected custom bulk regex to match")
	}
	if f.Evaluate([]Header{{Name: "Precedence", Value: "bulk"}}) {
		t.Fatal("default bulk regex should not apply once overridden")
	}
}

package scpi

import "testing"

const measParams = "[{<range>|AUTO|MIN|MAX|DEF} [,{<resolution>|MIN|MAX|DEF}] ]"

func TestParseParams(t *testing.T) {
	ps, err := ParseParams(measParams)
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d parameters, want 2", len(ps))
	}
	for i, p := range ps {
		if !p.Optional {
			t.Errorf("parameter[%d] not optional", i)
		}
	}
	if got, want := len(ps[0].Values), 5; got != want {
		t.Errorf("parameter[0] got %d alternatives, want %d", got, want)
	}
	if got, want := len(ps[1].Values), 4; got != want {
		t.Errorf("parameter[1] got %d alternatives, want %d", got, want)
	}
}

func TestParseParamsMixed(t *testing.T) {
	ps, err := ParseParams("{ON|OFF}")
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if len(ps) != 1 || ps[0].Optional {
		t.Fatalf("got %+v", ps)
	}

	ps, err = ParseParams("<value>,{MIN|MAX}[,<digits>]")
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if len(ps) != 3 {
		t.Fatalf("got %d parameters, want 3", len(ps))
	}
	if ps[0].Optional || ps[1].Optional || !ps[2].Optional {
		t.Errorf("optionality got %t %t %t", ps[0].Optional, ps[1].Optional, ps[2].Optional)
	}

	ps, err = ParseParams("")
	if err != nil || ps != nil {
		t.Errorf("empty list got (%v, %v)", ps, err)
	}
}

func TestParseParamsReject(t *testing.T) {
	for _, spec := range []string{"[<a>", "<a>]", "{A|B", "{}"} {
		if _, err := ParseParams(spec); err == nil {
			t.Errorf("ParseParams(%q) got no error", spec)
		}
	}
}

func TestParamsMatch(t *testing.T) {
	ps, err := ParseParams(measParams)
	if err != nil {
		t.Fatal("compile error:", err)
	}
	tests := []struct {
		tail string
		want bool
	}{
		{"", true},
		{"10", true},
		{"AUTO", true},
		{"10,MAX", true},
		{"AUTO,MIN", true},
		{"-1e-37,DEF", true},
		// leading comma omits the first optional
		{",MAX", true},
		{",-1e-37", true},
		// mismatches
		{"10A,MAXi", false},
		{"asd", false},
		{"10,MAX,7", false},
		{"10,,MAX", false},
	}
	for _, test := range tests {
		if got := ps.Match(test.tail); got != test.want {
			t.Errorf("match %q got %t, want %t", test.tail, got, test.want)
		}
	}
}

// A required parameter after optional ones must be supplied in position.
func TestParamsMatchPosition(t *testing.T) {
	ps, err := ParseParams("[<p1>][,<p2>],{HIGH|LOW}")
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if len(ps) != 3 || ps[2].Optional {
		t.Fatalf("got %+v", ps)
	}
	if ps.Match("HIGH") {
		t.Error("accepted the required parameter out of position")
	}
	if !ps.Match("1,2,HIGH") {
		t.Error("rejected the full positional form")
	}
	if !ps.Match(",,LOW") {
		t.Error("rejected empty tokens for the optional positions")
	}
	if ps.Match("1,2") {
		t.Error("accepted a missing required parameter")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	for _, spec := range []string{measParams, "{ON|OFF}", "<value>,{MIN|MAX}[,<digits>]"} {
		ps, err := ParseParams(spec)
		if err != nil {
			t.Fatalf("compile %q error: %s", spec, err)
		}
		again, err := ParseParams(ps.String())
		if err != nil {
			t.Fatalf("recompile %q error: %s", ps.String(), err)
		}
		if len(again) != len(ps) {
			t.Errorf("%q round trip got %d parameters, want %d", spec, len(again), len(ps))
			continue
		}
		for i := range ps {
			if again[i].Optional != ps[i].Optional || len(again[i].Values) != len(ps[i].Values) {
				t.Errorf("%q round trip parameter[%d] got %+v, want %+v",
					spec, i, again[i], ps[i])
			}
		}
	}
}

package scpi

import (
	"errors"
	"strings"
	"testing"
)

const measSpec = "MEASure[:VOLTage][:DC]? " + measParams

func echoAction(req Request) (string, error) {
	return strings.Join(req.Args, ";"), nil
}

func TestParseCommand(t *testing.T) {
	cmd, err := Parse(measSpec, ActionFunc(echoAction))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if !cmd.IsQuery() {
		t.Error("query flag not set")
	}
	if got, want := len(cmd.Params), 2; got != want {
		t.Errorf("got %d parameters, want %d", got, want)
	}
	if got, want := cmd.Label, "MEASure[:VOLTage][:DC]?"; got != want {
		t.Errorf("label got %q, want %q", got, want)
	}

	if _, err := Parse("MEAS!? <v>", ActionFunc(echoAction)); err == nil {
		t.Error("malformed spec got no error")
	}
	var ce *CompileError
	_, err = Parse("MEAS[[? <v>", ActionFunc(echoAction))
	if !errors.As(err, &ce) {
		t.Errorf("got error %v, want a *CompileError", err)
	}
}

// Re-compiling the canonical rendering preserves path, parameters and the
// query flag.
func TestCommandRoundTrip(t *testing.T) {
	cmd, err := Parse(measSpec, ActionFunc(echoAction))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	again, err := Parse(cmd.String(), ActionFunc(echoAction))
	if err != nil {
		t.Fatal("recompile error:", err)
	}
	if again.String() != cmd.String() {
		t.Errorf("got %q, want %q", again.String(), cmd.String())
	}
	if again.IsQuery() != cmd.IsQuery() || len(again.Params) != len(cmd.Params) {
		t.Errorf("round trip lost structure: %+v", again)
	}
}

func TestCommandMatch(t *testing.T) {
	cmd, err := Parse(measSpec, ActionFunc(echoAction))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	tests := []struct {
		line string
		want bool
	}{
		{"MEASure:VOLTage:DC? 10,MAX", true},
		{"meas?", true},
		{"meas? 10, MAX", true},
		{"meas? AUTO , MIN", true},
		{"MEAS:DC? ,-1e-37", true},
		{"meas? 10 A, MAXi", false},
		{"measr?", false},
		{"meas", false},
		{"meas? 10,MAX,7", false},
	}
	for _, test := range tests {
		if got := cmd.Match(test.line); got != test.want {
			t.Errorf("match %q got %t, want %t", test.line, got, test.want)
		}
	}
}

func TestCommandExecute(t *testing.T) {
	var got Request
	cmd, err := Parse(measSpec, ActionFunc(func(req Request) (string, error) {
		got = req
		return "0.217", nil
	}))
	if err != nil {
		t.Fatal("compile error:", err)
	}

	resp, err := cmd.Execute("meas:volt:dc?  10 , MAX\n")
	if err != nil {
		t.Fatal("execute error:", err)
	}
	if resp != "0.217\n" {
		t.Errorf("response got %q, want %q", resp, "0.217\n")
	}
	if got.Line != "meas:volt:dc? 10 , MAX" {
		t.Errorf("line got %q", got.Line)
	}
	if len(got.Args) != 2 || got.Args[0] != "10" || got.Args[1] != "MAX" {
		t.Errorf("args got %q", got.Args)
	}
}

func TestCommandExecuteNoReply(t *testing.T) {
	cmd, err := Parse("*RST", ActionFunc(func(req Request) (string, error) {
		return "", nil
	}))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	resp, err := cmd.Execute("*RST")
	if err != nil {
		t.Fatal("execute error:", err)
	}
	if resp != "" {
		t.Errorf("response got %q, want none", resp)
	}
}

func TestRegistryExecute(t *testing.T) {
	var r Registry
	idn, err := Parse("*IDN?", ActionFunc(func(Request) (string, error) {
		return "SCPIDevice,0.0", nil
	}))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	r.Add(idn)
	meas, err := Parse("MEASure:CURRent[:DC]? "+measParams, ActionFunc(echoAction))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	meas.Label = "meas_current"
	r.Add(meas)

	resp, err := r.Execute("*IDN?\n")
	if err != nil {
		t.Fatal("execute error:", err)
	}
	if resp != "SCPIDevice,0.0\n" {
		t.Errorf("got %q", resp)
	}

	resp, err = r.Execute("meas:curre:DC? 10,MAX")
	if err != nil {
		t.Fatal("execute error:", err)
	}
	if resp != "10;MAX\n" {
		t.Errorf("got %q", resp)
	}

	if _, err = r.Execute("measr?"); err != ErrNoMatch {
		t.Errorf("got error %v, want ErrNoMatch", err)
	}
	if _, err = r.Execute("meas:curre:DC? 10 A, MAXi"); err != ErrParamMismatch {
		t.Errorf("got error %v, want ErrParamMismatch", err)
	}
}

func TestRegistryActionError(t *testing.T) {
	var r Registry
	boom := errors.New("sensor offline")
	cmd, err := Parse("MALfunction?", ActionFunc(func(Request) (string, error) {
		return "", boom
	}))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	cmd.Label = "malfunction"
	r.Add(cmd)

	_, err = r.Execute("mal?")
	var ae *ActionError
	if !errors.As(err, &ae) {
		t.Fatalf("got error %v, want an *ActionError", err)
	}
	if ae.Label != "malfunction" || !errors.Is(err, boom) {
		t.Errorf("got %+v", ae)
	}

	panics, err := Parse("PANic", ActionFunc(func(Request) (string, error) {
		panic("out of range")
	}))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	r.Add(panics)
	if _, err = r.Execute("pan"); !errors.As(err, &ae) {
		t.Errorf("panic got error %v, want an *ActionError", err)
	}
}

func TestDiscreteCommand(t *testing.T) {
	var got Request
	cmd, err := Parse("CALCulate:FUNCtion {NULL|DB|DBM|AVERage|LIMit}",
		ActionFunc(func(req Request) (string, error) {
			got = req
			return "", nil
		}))
	if err != nil {
		t.Fatal("compile error:", err)
	}
	if cmd.IsQuery() {
		t.Error("query flag set on a setter")
	}

	if !cmd.Match("CALC:FUNC LIM") {
		t.Error("short forms rejected")
	}
	if !cmd.Match("calculate:function average") {
		t.Error("long forms rejected")
	}
	if cmd.Match("CALC:FUNC LIMITS") {
		t.Error("bad discrete value accepted")
	}
	if cmd.Match("CALC:FUNC") {
		t.Error("missing required parameter accepted")
	}

	if _, err := cmd.Execute("CALC:FUNC LIM"); err != nil {
		t.Fatal("execute error:", err)
	}
	if len(got.Args) != 1 || got.Args[0] != "LIM" {
		t.Errorf("args got %q", got.Args)
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	var r Registry
	for _, resp := range []string{"first", "second"} {
		resp := resp
		cmd, err := Parse("CONFigure?", ActionFunc(func(Request) (string, error) {
			return resp, nil
		}))
		if err != nil {
			t.Fatal("compile error:", err)
		}
		r.Add(cmd)
	}
	resp, err := r.Execute("conf?")
	if err != nil {
		t.Fatal("execute error:", err)
	}
	if resp != "first\n" {
		t.Errorf("got %q, want %q", resp, "first\n")
	}
}

func TestRegistrySpecs(t *testing.T) {
	var r Registry
	for _, spec := range []string{"SOURce:FREQuency <f>", "*IDN?", "CALCulate:FUNCtion {NULL|DB|DBM|AVERage|LIMit}"} {
		cmd, err := Parse(spec, ActionFunc(echoAction))
		if err != nil {
			t.Fatal("compile error:", err)
		}
		r.Add(cmd)
	}
	specs := r.Specs()
	if len(specs) != 3 {
		t.Fatalf("got %d specs", len(specs))
	}
	if specs[0] != "*IDN?" {
		t.Errorf("specs not sorted: %q", specs)
	}
}

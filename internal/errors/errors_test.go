package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config", "R101", "Invalid configuration", CategoryConfig},
		{"cli", "R120", "Invalid flag value", CategoryCLI},
		{"recording", "R161", "Recording is corrupt", CategoryRecording},
		{"unknown", "R999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New("R101"), "R101: Invalid configuration"},
		{New("R101").WithDetail("tick_rate must be positive"), "R101: Invalid configuration: tick_rate must be positive"},
		{Newf(CategoryCLI, "bad %s", "flag"), "bad flag"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := New("R160").Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var target *Error
	if !stderrors.As(error(err), &target) || target.Code != "R160" {
		t.Errorf("errors.As = %v, want R160", target)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "R101") != nil {
		t.Error("FromError(nil) should return nil")
	}

	coded := New("R100")
	if FromError(coded, "R101") != coded {
		t.Error("FromError should return an existing *Error unchanged")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, "R121")
	if got.Code != "R121" || got.Wrapped != plain {
		t.Errorf("FromError = %+v, want R121 wrapping boom", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("R101").
		WithDetail("tick_rate must be between 1 and 240").
		WithSuggestion("Set tick_rate: 30").
		Wrap(stderrors.New("got 0"))
	out := err.Format()

	for _, want := range []string{
		"ERROR R101: Invalid configuration",
		"tick_rate must be between 1 and 240",
		"Cause: got 0",
		"Hint: Set tick_rate: 30",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not emit colors when disabled")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	if len(lines) < 2 {
		t.Fatalf("wrapText produced %d lines, want several", len(lines))
	}
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Print(plain) = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, New("R100"))
	if !strings.Contains(buf.String(), "R100: Configuration file not found") {
		t.Errorf("Print(coded) = %q", buf.String())
	}
}

func TestCodesRegistered(t *testing.T) {
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("code %s has incomplete template %+v", code, tmpl)
		}
	}
}

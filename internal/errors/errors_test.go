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
		{
			name:    "runtime error",
			code:    "E002",
			wantMsg: "Hook order changed",
			wantCat: CategoryRuntime,
		},
		{
			name:    "state error",
			code:    "E031",
			wantMsg: "Update before initialization",
			wantCat: CategoryState,
		},
		{
			name:    "config error",
			code:    "E141",
			wantMsg: "Configuration not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
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

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown command %q", "frob")
	if err.Message != `unknown command "frob"` {
		t.Errorf("Message = %q, want %q", err.Message, `unknown command "frob"`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New("E001")
	if got, want := err.Error(), "E001: Hook called outside render"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &Error{Message: "test error"}
	if bare.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", bare.Error(), "test error")
	}

	wrapped := New("E160").Wrap(stderrors.New("disk full"))
	if got, want := wrapped.Error(), "E160: Snapshot write failed: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorsIsAndUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E120").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("E120")) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New("E122")) {
		t.Error("errors.Is should not match a different code")
	}

	var he *Error
	if !stderrors.As(err, &he) || he.Code != "E120" {
		t.Errorf("errors.As returned %v", he)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E120") != nil {
		t.Error("FromError(nil) should return nil")
	}

	orig := New("E141")
	if FromError(orig, "E120") != orig {
		t.Error("FromError should return an *Error unchanged")
	}

	plain := stderrors.New("plain")
	got := FromError(plain, "E160")
	if got.Code != "E160" || got.Wrapped != plain {
		t.Errorf("FromError = %+v", got)
	}
}

func TestWithCaller(t *testing.T) {
	err := New("E001").WithCaller(0)
	if err.Location == nil {
		t.Fatal("expected a location")
	}
	if !strings.HasSuffix(err.Location.File, "errors_test.go") {
		t.Errorf("Location.File = %q", err.Location.File)
	}
	if err.Location.Line == 0 {
		t.Error("Location.Line should be set")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E002").
		WithDetail("expected 3 hooks, got 2").
		WithSuggestion("Call hooks unconditionally")
	out := err.Format()

	for _, want := range []string{
		"ERROR E002: Hook order changed",
		"expected 3 hooks, got 2",
		"Hint: Call hooks unconditionally",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E031")
	err.Location = &Location{File: "store.go", Line: 42}
	if got, want := err.FormatCompact(), "store.go:42: E031: Update before initialization"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Print(&buf, New("E003"))
	if !strings.Contains(buf.String(), "E003: Owner disposed") {
		t.Errorf("Print(*Error) = %q", buf.String())
	}

	buf.Reset()
	Print(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Print(error) = %q", buf.String())
	}
}

func TestRegistryCodesHaveMessages(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Fatalf("GetTemplate(%q) missing", code)
		}
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("code %s has incomplete template %+v", code, tmpl)
		}
	}
}

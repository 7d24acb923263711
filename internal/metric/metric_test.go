package metric

import "testing"

func TestOtherIsInvolution(t *testing.T) {
	for _, m := range All {
		if Other(Other(m)) != m {
			t.Errorf("Other(Other(%s)) = %s", m, Other(Other(m)))
		}
		if Other(m) == m {
			t.Errorf("Other(%s) returned itself", m)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		bytes int
		chars int
	}{
		{"empty", "", 0, 0},
		{"ascii", "print(1)", 8, 8},
		{"two byte rune", "é", 2, 1},
		{"cjk", "漢字", 6, 2},
		{"emoji", "😀!", 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(Bytes, tt.code); got != tt.bytes {
				t.Errorf("Score(Bytes, %q) = %d, want %d", tt.code, got, tt.bytes)
			}
			if got := Score(Chars, tt.code); got != tt.chars {
				t.Errorf("Score(Chars, %q) = %d, want %d", tt.code, got, tt.chars)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Metric{
		"Bytes": Bytes, "bytes": Bytes, "0": Bytes,
		"Chars": Chars, " chars ": Chars, "1": Chars,
	} {
		got, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := Parse("lines"); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestStrokes(t *testing.T) {
	if got := Strokes("é", All[:]); got != "2 bytes, 1 char" {
		t.Errorf("got %q", got)
	}
	if got := Strokes("", []Metric{Bytes}); got != "0 bytes" {
		t.Errorf("got %q", got)
	}

	long := make([]byte, 1234)
	for i := range long {
		long[i] = 'a'
	}
	if got := Strokes(string(long), All[:]); got != "1,234 bytes, 1,234 chars" {
		t.Errorf("got %q", got)
	}
}

func TestPair(t *testing.T) {
	var p Pair[string]
	p.Set(Chars, "c")
	if p.Get(Bytes) != "" || p.Get(Chars) != "c" {
		t.Errorf("unexpected pair %v", p)
	}
}

func TestMetricText(t *testing.T) {
	b, _ := Chars.MarshalText()
	if string(b) != "Chars" {
		t.Errorf("got %q", b)
	}
	var m Metric
	if err := m.UnmarshalText([]byte("bytes")); err != nil || m != Bytes {
		t.Errorf("got %s, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("words")); err == nil {
		t.Error("expected error")
	}
}

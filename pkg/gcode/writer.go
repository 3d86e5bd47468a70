package gcode

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// WriteTo renders the program as G-code text. Errors from w are returned
// unchanged.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	pw := &textWriter{w: bw, s: p.Settings}

	pw.preamble()
	for _, m := range p.Moves {
		pw.move(m)
	}
	pw.postamble()

	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// String returns the program text.
func (p *Program) String() string {
	var sb strings.Builder
	_, _ = p.WriteTo(&sb)
	return sb.String()
}

type textWriter struct {
	w *bufio.Writer
	s Settings
}

func (t *textWriter) line(words ...string) {
	for i, w := range words {
		if i > 0 {
			t.w.WriteByte(' ')
		}
		t.w.WriteString(w)
	}
	t.w.WriteByte('\n')
}

func (t *textWriter) comment(text string) {
	// Parentheses cannot nest in G-code comments.
	text = strings.NewReplacer("(", "[", ")", "]", "\n", " ").Replace(text)
	t.line("(" + text + ")")
}

func (t *textWriter) preamble() {
	for _, h := range t.s.Header {
		t.comment(h)
	}
	units, coords := "inches", "relative"
	if t.s.Metric {
		units = "millimeters"
	}
	if t.s.Absolute {
		coords = "absolute"
	}
	t.comment("units: " + units + ", coordinates: " + coords)

	if t.s.Metric {
		t.line("G21")
	} else {
		t.line("G20")
	}
	if t.s.Absolute {
		t.line("G90")
	} else {
		t.line("G91")
	}
	t.line("G17")
	if t.s.Absolute {
		t.line("G0", t.clearance())
	}
}

func (t *textWriter) postamble() {
	if t.s.Absolute {
		t.line("G0", t.clearance())
	}
	t.line("M5")
	t.line("M2")
}

func (t *textWriter) clearance() string {
	return word('Z', (t.s.ZCuttingHeight+t.s.ZClearance)*t.s.scale())
}

func (t *textWriter) move(m Move) {
	switch m.Kind {
	case Rapid:
		t.line("G0", word('X', m.X), word('Y', m.Y))
	case Retract:
		t.line("G0", word('Z', m.Z))
	case Plunge:
		t.line("G1", word('Z', m.Z), feed(m.Feed))
	case Cut:
		if m.SetsFeed {
			t.line("G1", word('X', m.X), word('Y', m.Y), feed(m.Feed))
		} else {
			t.line("G1", word('X', m.X), word('Y', m.Y))
		}
	}
}

// word formats an axis word with four decimals, never as negative zero.
func word(axis byte, v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	if s == "-0.0000" {
		s = "0.0000"
	}
	return string(axis) + s
}

func feed(f float64) string {
	return "F" + strconv.FormatFloat(f, 'f', -1, 64)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

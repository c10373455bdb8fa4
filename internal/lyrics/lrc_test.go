package lyrics

import (
	"testing"
	"time"
)

func TestParseLRC(t *testing.T) {
	raw := `[ar:Pinback]
[00:12.50]First line
[00:15]Second line
[01:02.1]Third line

no timestamp here`

	lines := ParseLRC(raw)
	if len(lines) != 3 {
		t.Fatalf("len = %d, want 3", len(lines))
	}

	if lines[0].At != 12*time.Second+500*time.Millisecond {
		t.Errorf("lines[0].At = %v", lines[0].At)
	}
	if lines[0].Text != "First line" {
		t.Errorf("lines[0].Text = %q", lines[0].Text)
	}
	if lines[1].At != 15*time.Second {
		t.Errorf("lines[1].At = %v", lines[1].At)
	}
	if lines[2].At != time.Minute+2*time.Second+100*time.Millisecond {
		t.Errorf("lines[2].At = %v", lines[2].At)
	}
}

func TestParseLRCSortsOutOfOrder(t *testing.T) {
	raw := `[00:30]Later
[00:10]Earlier`

	lines := ParseLRC(raw)
	if len(lines) != 2 || lines[0].Text != "Earlier" {
		t.Errorf("lines not sorted by time: %+v", lines)
	}
}

func TestParseLRCRepeatedTags(t *testing.T) {
	lines := ParseLRC("[00:10][01:10]Chorus")
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[0].Text != "Chorus" || lines[1].Text != "Chorus" {
		t.Errorf("lines = %+v", lines)
	}
	if lines[1].At != time.Minute+10*time.Second {
		t.Errorf("lines[1].At = %v", lines[1].At)
	}
}

func TestParseLRCEmpty(t *testing.T) {
	if got := ParseLRC(""); got != nil {
		t.Errorf("ParseLRC(\"\") = %+v, want nil", got)
	}
}

func TestCurrentLine(t *testing.T) {
	l := &Lyrics{Synced: []Line{
		{At: 10 * time.Second, Text: "one"},
		{At: 20 * time.Second, Text: "two"},
		{At: 30 * time.Second, Text: "three"},
	}}

	cases := []struct {
		progress time.Duration
		want     int
	}{
		{0, -1},
		{10 * time.Second, 0},
		{15 * time.Second, 0},
		{20 * time.Second, 1},
		{45 * time.Second, 2},
	}
	for _, c := range cases {
		if got := l.CurrentLine(c.progress); got != c.want {
			t.Errorf("CurrentLine(%v) = %d, want %d", c.progress, got, c.want)
		}
	}
}

package i18n

import "testing"

func TestTranslate(t *testing.T) {
	l := NewLocalizer("en")

	if got := l.T("autodj.enabled"); got != "Auto-DJ on" {
		t.Errorf("T(autodj.enabled) = %q", got)
	}
	if got := l.T("cmd.queued_many", 10); got != "Queued 10 tracks" {
		t.Errorf("T with args = %q", got)
	}
}

func TestUnknownKeyFallsBackToKey(t *testing.T) {
	l := NewLocalizer("en")
	if got := l.T("no.such.key"); got != "no.such.key" {
		t.Errorf("unknown key = %q", got)
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	l := NewLocalizer("xx")
	if got := l.T("autodj.disabled"); got != "Auto-DJ off" {
		t.Errorf("fallback = %q", got)
	}
}

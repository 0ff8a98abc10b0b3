package player

import "testing"

func TestParseKey(t *testing.T) {
	cases := map[string]struct {
		want Key
		ok   bool
	}{
		" ":          {KeySpace, true},
		"space":      {KeySpace, true},
		"ArrowLeft":  {KeyLeft, true},
		"right":      {KeyRight, true},
		"M":          {KeyM, true},
		"f":          {KeyF, true},
		"Esc":        {KeyEscape, true},
		"escape":     {KeyEscape, true},
		"q":          {"", false},
		"":           {"", false},
		"ArrowRight": {KeyRight, true},
	}

	for name, tc := range cases {
		got, ok := ParseKey(name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseKey(%q) = %q, %v want %q, %v", name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00",
		9.9:    "0:09",
		65:     "1:05",
		599:    "9:59",
		3600:   "1:00:00",
		3725.4: "1:02:05",
		-4:     "0:00",
	}

	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%v) = %q want %q", in, got, want)
		}
	}
}

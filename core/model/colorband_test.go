package model

import "testing"

func TestParseBandsDefaults(t *testing.T) {
	for _, raw := range []string{"", "abc", "10", "10,abc", "30,10", "1,2,3"} {
		low, high := ParseBands(raw)
		if low != DefaultBandLowMin || high != DefaultBandHighMin {
			t.Fatalf("ParseBands(%q) = %v,%v, want defaults", raw, low, high)
		}
	}
}

func TestParseBandsCustom(t *testing.T) {
	low, high := ParseBands(" 5 , 15 ")
	if low != 5 || high != 15 {
		t.Fatalf("ParseBands = %v,%v, want 5,15", low, high)
	}
}

func TestBandFromMinutes(t *testing.T) {
	cases := []struct {
		minutes float64
		want    ColorBand
	}{
		{0, BandGreen},
		{10, BandGreen},
		{10.01, BandAmber},
		{25, BandAmber},
		{25.01, BandRed},
		{120, BandRed},
	}
	for _, c := range cases {
		if got := BandFromMinutes(c.minutes, "10,25"); got != c.want {
			t.Fatalf("BandFromMinutes(%v) = %s, want %s", c.minutes, got, c.want)
		}
	}
}

func TestBandFromMinutesMalformedConfig(t *testing.T) {
	if got := BandFromMinutes(11, "not-a-config"); got != BandAmber {
		t.Fatalf("malformed bands should fall back to defaults, got %s", got)
	}
}

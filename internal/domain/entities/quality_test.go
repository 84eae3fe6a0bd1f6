package entities_test

import (
	"errors"
	"fmt"
	"testing"

	"filecompressor/internal/domain/entities"
)

func TestDPIForQuality(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{1, 72},
		{100, 300},
		{50, 184},
		{80, 253},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("Quality %d", tt.quality), func(t *testing.T) {
			if got := entities.DPIForQuality(tt.quality); got != tt.want {
				t.Errorf("DPIForQuality(%d) = %d, want %d", tt.quality, got, tt.want)
			}
		})
	}
}

func TestDPIForQualityIsMonotonic(t *testing.T) {
	prev := 0
	for q := 1; q <= 100; q++ {
		dpi := entities.DPIForQuality(q)
		if dpi < prev {
			t.Fatalf("DPI decreased at quality %d: %d < %d", q, dpi, prev)
		}
		prev = dpi
	}
}

func TestEffectivePaletteSize(t *testing.T) {
	tests := []struct {
		name       string
		quality    int
		colorCount int
		want       int
	}{
		{"Lowest quality", 1, 0, 2},
		{"Full quality without limit keeps truecolor", 100, 0, 0},
		{"Full quality with limit", 100, 128, 128},
		{"Caller limit is tighter", 70, 16, 16},
		{"Quality is tighter", 10, 128, 25},
		{"Caller default of the UI", 70, 128, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entities.EffectivePaletteSize(tt.quality, tt.colorCount); got != tt.want {
				t.Errorf("EffectivePaletteSize(%d, %d) = %d, want %d", tt.quality, tt.colorCount, got, tt.want)
			}
		})
	}
}

func TestValidateQuality(t *testing.T) {
	for _, q := range []int{0, 101, -5, 1000} {
		err := entities.ValidateQuality(q)
		if !errors.Is(err, entities.ErrValidation) {
			t.Errorf("ValidateQuality(%d) = %v, want ErrValidation", q, err)
		}
		if !errors.Is(err, entities.ErrInvalidQuality) {
			t.Errorf("ValidateQuality(%d) should wrap ErrInvalidQuality", q)
		}
	}

	for _, q := range []int{1, 50, 100} {
		if err := entities.ValidateQuality(q); err != nil {
			t.Errorf("ValidateQuality(%d) unexpected error: %v", q, err)
		}
	}
}

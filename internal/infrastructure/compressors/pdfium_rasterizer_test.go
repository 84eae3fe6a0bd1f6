package compressors_test

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/testutil"
)

func TestPDFium_PageCountAndText(t *testing.T) {
	ctx := context.Background()
	data := testutil.TextPDF(3)

	count, err := rasterizer.PageCount(ctx, data, "")
	if err != nil || count != 3 {
		t.Fatalf("PageCount() = %d, %v; want 3", count, err)
	}

	texts, err := rasterizer.ExtractText(ctx, data, "")
	if err != nil {
		t.Fatalf("ExtractText() error: %v", err)
	}
	for i, text := range texts {
		want := "Page " + string(rune('1'+i))
		if !strings.Contains(text, want) {
			t.Errorf("Page %d text = %q, want %q", i+1, text, want)
		}
	}
}

func TestPDFium_RenderPagesInOrder(t *testing.T) {
	var got []int
	err := rasterizer.RenderPages(context.Background(), testutil.TextPDF(3), "", 72,
		func(pageIndex, pageCount int, page image.Image) error {
			if pageCount != 3 {
				t.Errorf("pageCount = %d, want 3", pageCount)
			}
			// Страница 612x792 пунктов при 72 DPI
			if b := page.Bounds(); b.Dx() != 612 || b.Dy() != 792 {
				t.Errorf("Page %d bounds = %v", pageIndex, b)
			}
			got = append(got, pageIndex)
			return nil
		})
	if err != nil {
		t.Fatalf("RenderPages() error: %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("Pages rendered out of order: %v", got)
	}
}

func TestPDFium_RenderPagesFailFast(t *testing.T) {
	stop := errors.New("stop")
	calls := 0

	err := rasterizer.RenderPages(context.Background(), testutil.TextPDF(3), "", 72,
		func(pageIndex, _ int, _ image.Image) error {
			calls++
			if pageIndex == 1 {
				return stop
			}
			return nil
		})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected rendering to stop after page 2, got %d calls", calls)
	}
}

func TestPDFium_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := rasterizer.PageCount(ctx, []byte("not a pdf"), ""); !errors.Is(err, entities.ErrDecode) {
		t.Errorf("Expected ErrDecode for garbage, got %v", err)
	}

	_, err := rasterizer.PageCount(ctx, testutil.TextPDF(0), "")
	if !errors.Is(err, entities.ErrProcessing) && !errors.Is(err, entities.ErrDecode) {
		t.Errorf("Expected processing or decode error for empty document, got %v", err)
	}

	if _, err := rasterizer.PageCount(ctx, nil, ""); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty input, got %v", err)
	}
}

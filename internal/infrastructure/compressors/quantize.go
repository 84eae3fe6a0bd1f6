package compressors

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ericpauley/go-quantize/quantize"
)

// Quantize сокращает палитру изображения до maxColors цветов методом median cut.
// Пиксели сопоставляются ближайшему цвету палитры без дизеринга:
// дизеринг увеличивает размер PNG.
func Quantize(img image.Image, maxColors int) *image.Paletted {
	if maxColors < 2 {
		maxColors = 2
	}

	q := quantize.MedianCutQuantizer{}
	palette := q.Quantize(make(color.Palette, 0, maxColors), img)
	if len(palette) == 0 {
		palette = color.Palette{color.Black}
	}

	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

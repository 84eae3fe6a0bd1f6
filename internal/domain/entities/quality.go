package entities

// Границы разрешения растеризации страниц
const (
	MinRasterDPI = 72
	MaxRasterDPI = 300
)

// DPIForQuality переводит качество 1-100 в разрешение рендеринга страницы.
// 1 -> 72 DPI, 100 -> 300 DPI, линейно.
func DPIForQuality(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return MinRasterDPI + (quality-1)*(MaxRasterDPI-MinRasterDPI)/99
}

// PaletteSizeForQuality переводит качество в размер палитры PNG.
// PNG сжимает без потерь, поэтому единственный рычаг качества - число цветов:
// 1 -> 2 цвета, 100 -> 256 цветов.
func PaletteSizeForQuality(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return 2 + (quality-1)*(MaxPaletteColors-2)/99
}

// EffectivePaletteSize возвращает итоговый размер палитры PNG.
// 0 означает полноцветное изображение без квантизации.
func EffectivePaletteSize(quality, colorCount int) int {
	if quality >= 100 {
		return colorCount
	}

	size := PaletteSizeForQuality(quality)
	if colorCount > 0 && colorCount < size {
		size = colorCount
	}
	return size
}

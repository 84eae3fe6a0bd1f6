package compressors

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path/filepath"

	"github.com/disintegration/imageorient"
	"github.com/nfnt/resize"

	// Регистрация декодера WEBP для входных файлов
	_ "golang.org/x/image/webp"

	"filecompressor/internal/domain/entities"
)

// ImageCompressor интерфейс для сжатия изображений
type ImageCompressor interface {
	ProcessImage(ctx context.Context, req *entities.ImageRequest) ([]byte, error)
	EncodeImage(img image.Image, format entities.OutputFormat, quality, colorCount int) ([]byte, error)
}

// DefaultImageCompressor реализация компрессора изображений.
// Состояния между вызовами не хранит.
type DefaultImageCompressor struct{}

// NewImageCompressor создает новый компрессор изображений
func NewImageCompressor() *DefaultImageCompressor {
	return &DefaultImageCompressor{}
}

// ProcessImage декодирует, при необходимости масштабирует и квантует изображение
// и кодирует его в запрошенный формат. Файлы не пишет.
func (c *DefaultImageCompressor) ProcessImage(ctx context.Context, req *entities.ImageRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := req.Source.Bytes()
	if err != nil {
		return nil, err
	}

	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, entities.NewDecodeError("изображение "+req.Source.Name(), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("изображение", err)
	}

	// Точные размеры из запроса, пропорции не сохраняются
	if size := req.EffectiveResize(); size != nil {
		img = resize.Resize(uint(size.Width), uint(size.Height), img, resize.Lanczos3)
	}

	return c.EncodeImage(img, req.Format, req.Quality, req.ColorCount)
}

// EncodeImage общий шаг кодирования для изображений и страниц PDF
func (c *DefaultImageCompressor) EncodeImage(img image.Image, format entities.OutputFormat, quality, colorCount int) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}

	switch format {
	case entities.FormatJPEG:
		return EncodeJPEG(img, quality)
	case entities.FormatPNG:
		return EncodePNG(img, quality, colorCount)
	default:
		return nil, entities.NewValidationError("кодирование", fmt.Errorf("%w: %s", entities.ErrUnsupportedFormat, format))
	}
}

// DecodeImage декодирует JPEG, PNG или WEBP с учетом EXIF-ориентации.
// Размеры проверяются по заголовку до выделения памяти под пиксели.
func DecodeImage(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("не удалось прочитать заголовок изображения: %w", err)
	}
	if cfg.Width > entities.MaxDimension || cfg.Height > entities.MaxDimension {
		return nil, "", fmt.Errorf("%w: %dx%d", entities.ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := imageorient.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("не удалось декодировать изображение: %w", err)
	}
	return img, format, nil
}

// EncodeJPEG кодирует изображение в JPEG. Прозрачность сводится на белый фон.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattenAlpha(img), &jpeg.Options{Quality: quality}); err != nil {
		return nil, entities.NewEncodeError("jpeg", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG кодирует изображение в PNG с максимальным сжатием.
// Размер палитры определяется качеством и ограничением colorCount.
func EncodePNG(img image.Image, quality, colorCount int) ([]byte, error) {
	if colorCount > entities.MaxPaletteColors {
		return nil, entities.NewEncodeError("png", fmt.Errorf("%w: %d", entities.ErrPaletteTooLarge, colorCount))
	}

	if paletteSize := entities.EffectivePaletteSize(quality, colorCount); paletteSize > 0 {
		img = Quantize(img, paletteSize)
	}

	encoder := &png.Encoder{
		CompressionLevel: png.BestCompression,
	}

	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, entities.NewEncodeError("png", err)
	}
	return buf.Bytes(), nil
}

// flattenAlpha накладывает изображение с альфа-каналом на белый фон
func flattenAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)
	return flat
}

// IsImageFile проверяет, является ли файл изображением поддерживаемого формата
func IsImageFile(filename string) bool {
	switch GetImageFormat(filename) {
	case entities.FormatJPEG, entities.FormatPNG, entities.FormatWEBP:
		return true
	}
	return false
}

// GetImageFormat возвращает формат изображения по расширению файла
func GetImageFormat(filename string) entities.OutputFormat {
	f, err := entities.ParseOutputFormat(filepath.Ext(filename))
	if err != nil {
		return entities.FormatUnknown
	}
	return f
}

package entities

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxDimension верхняя граница ширины и высоты при декодировании и изменении размера
const MaxDimension = 20000

// MaxPaletteColors максимальный размер палитры PNG
const MaxPaletteColors = 256

// OutputFormat формат результата
type OutputFormat int

const (
	FormatUnknown OutputFormat = iota
	FormatJPEG
	FormatPNG
	FormatWEBP
	FormatPDF
)

// ParseOutputFormat разбирает название формата (jpg, jpeg, png, webp, pdf)
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWEBP, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return FormatUnknown, NewValidationError("формат", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s))
	}
}

func (f OutputFormat) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	case FormatWEBP:
		return "WEBP"
	case FormatPDF:
		return "PDF"
	default:
		return "UNKNOWN"
	}
}

// Extension возвращает расширение файла без точки
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatWEBP:
		return "webp"
	case FormatPDF:
		return "pdf"
	default:
		return ""
	}
}

// IsRasterOutput true для форматов, которые ядро умеет кодировать как изображение.
// WEBP распознается только на входе.
func (f OutputFormat) IsRasterOutput() bool {
	return f == FormatJPEG || f == FormatPNG
}

// Source исходные данные: путь к файлу или буфер в памяти
type Source struct {
	Path string
	Data []byte
}

// SourceFromPath создает источник из пути
func SourceFromPath(path string) Source { return Source{Path: path} }

// SourceFromBytes создает источник из буфера
func SourceFromBytes(data []byte) Source { return Source{Data: data} }

// IsEmpty проверяет, что источник не задан
func (s Source) IsEmpty() bool {
	return len(s.Data) == 0 && s.Path == ""
}

// Name возвращает имя источника для логов
func (s Source) Name() string {
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return fmt.Sprintf("<буфер %d байт>", len(s.Data))
}

// Bytes загружает содержимое источника
func (s Source) Bytes() ([]byte, error) {
	if len(s.Data) > 0 {
		return s.Data, nil
	}
	if s.Path == "" {
		return nil, NewValidationError("источник", ErrEmptySource)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, NewDecodeError("чтение "+s.Path, err)
	}
	return data, nil
}

// Size размеры изображения в пикселях
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ImageRequest запрос на обработку изображения
type ImageRequest struct {
	Source     Source
	Format     OutputFormat
	Quality    int
	Resize     *Size
	ColorCount int // 0 - без ограничения палитры
}

// EffectiveResize возвращает размеры для ресайза или nil, если ресайз не нужен.
// Пара с неположительным значением считается отсутствующей.
func (r *ImageRequest) EffectiveResize() *Size {
	if r.Resize == nil || r.Resize.Width <= 0 || r.Resize.Height <= 0 {
		return nil
	}
	return r.Resize
}

// Validate проверяет корректность запроса
func (r *ImageRequest) Validate() error {
	if r.Source.IsEmpty() {
		return NewValidationError("изображение", ErrEmptySource)
	}
	if err := ValidateQuality(r.Quality); err != nil {
		return err
	}
	if !r.Format.IsRasterOutput() {
		return NewValidationError("изображение", fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.Format))
	}
	if size := r.EffectiveResize(); size != nil {
		if size.Width > MaxDimension || size.Height > MaxDimension {
			return NewValidationError("изображение", fmt.Errorf("%w: %s", ErrInvalidResize, size))
		}
	}
	if r.ColorCount != 0 && r.ColorCount < 2 {
		return NewValidationError("изображение", fmt.Errorf("%w: %d", ErrInvalidColorCount, r.ColorCount))
	}
	return nil
}

// ValidateQuality проверяет диапазон качества без молчаливой коррекции
func ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return NewValidationError("качество", fmt.Errorf("%w: %d", ErrInvalidQuality, quality))
	}
	return nil
}

// PdfMode режим обработки PDF
type PdfMode int

const (
	ModeRecompress PdfMode = iota
	ModeRasterize
)

func (m PdfMode) String() string {
	switch m {
	case ModeRecompress:
		return "Сжатие PDF"
	case ModeRasterize:
		return "PDF в изображения"
	default:
		return "Неизвестно"
	}
}

// PdfJob задание на обработку PDF
type PdfJob struct {
	Source   Source
	Mode     PdfMode
	Format   OutputFormat
	Quality  int
	Password string
}

// Validate проверяет корректность задания и нормализует формат для режима сжатия
func (j *PdfJob) Validate() error {
	if j.Source.IsEmpty() {
		return NewValidationError("pdf", ErrEmptySource)
	}
	if err := ValidateQuality(j.Quality); err != nil {
		return err
	}
	switch j.Mode {
	case ModeRecompress:
		if j.Format == FormatUnknown {
			j.Format = FormatPDF
		}
		if j.Format != FormatPDF {
			return NewValidationError("pdf", fmt.Errorf("%w: сжатие PDF выдает только PDF, запрошен %s", ErrUnsupportedFormat, j.Format))
		}
	case ModeRasterize:
		if !j.Format.IsRasterOutput() {
			return NewValidationError("pdf", fmt.Errorf("%w: %s", ErrUnsupportedFormat, j.Format))
		}
	default:
		return NewValidationError("pdf", ErrUnsupportedMode)
	}
	return nil
}

// PageEntryName возвращает имя файла страницы в архиве (нумерация с 1)
func PageEntryName(pageIndex, pageCount int, format OutputFormat) string {
	width := len(fmt.Sprint(pageCount))
	if width < 3 {
		width = 3
	}
	return fmt.Sprintf("page_%0*d.%s", width, pageIndex+1, format.Extension())
}

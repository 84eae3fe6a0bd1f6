package entities

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CompressionResult представляет результат одной задачи
type CompressionResult struct {
	CurrentFile      string
	OutputFile       string
	OriginalSize     int64
	CompressedSize   int64
	CompressionRatio float64
	SavedSpace       int64
	Units            int // страниц или изображений
	Success          bool
	Error            error
}

// CalculateCompressionRatio вычисляет коэффициент сжатия
func (cr *CompressionResult) CalculateCompressionRatio() {
	if cr.OriginalSize > 0 {
		cr.CompressionRatio = ((float64(cr.OriginalSize) - float64(cr.CompressedSize)) / float64(cr.OriginalSize)) * 100
		cr.SavedSpace = cr.OriginalSize - cr.CompressedSize
	}
}

// IsEffective проверяет, было ли сжатие эффективным
func (cr *CompressionResult) IsEffective() bool {
	return cr.Success && cr.CompressionRatio > 0
}

// OutputKind вид результата для построения имени выходного файла
type OutputKind int

const (
	OutputCompressed OutputKind = iota
	OutputConverted
	OutputMergedPDF
)

// OutputPathFor строит путь результата рядом с исходным файлом:
// report.pdf -> report_compressed.pdf, report_converted_jpg.zip, report_images.pdf
func OutputPathFor(inputPath string, kind OutputKind, format OutputFormat) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)

	switch kind {
	case OutputConverted:
		return fmt.Sprintf("%s_converted_%s.zip", base, format.Extension())
	case OutputMergedPDF:
		return base + "_images.pdf"
	default:
		return fmt.Sprintf("%s_compressed.%s", base, format.Extension())
	}
}

// RecompressStats статистика пересжатия встроенных изображений документа
type RecompressStats struct {
	Images      int
	Replaced    int
	BytesBefore int64
	BytesAfter  int64
}

// SavedBytes сколько байт сэкономлено на потоках изображений
func (s RecompressStats) SavedBytes() int64 {
	return s.BytesBefore - s.BytesAfter
}

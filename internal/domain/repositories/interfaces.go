package repositories

import (
	"context"
	"image"

	"filecompressor/internal/domain/entities"
)

// PDFRecompressor интерфейс движка пересжатия встроенных изображений PDF
type PDFRecompressor interface {
	Recompress(ctx context.Context, data []byte, quality int, password string) ([]byte, error)
}

// StatsRecompressor движок, который сообщает статистику по изображениям
type StatsRecompressor interface {
	PDFRecompressor
	RecompressWithStats(ctx context.Context, data []byte, quality int, password string) ([]byte, entities.RecompressStats, error)
}

// PageRenderFunc получает отрисованную страницу (индекс с 0)
type PageRenderFunc func(pageIndex, pageCount int, page image.Image) error

// PageRasterizer интерфейс растеризации страниц PDF
type PageRasterizer interface {
	PageCount(ctx context.Context, data []byte, password string) (int, error)
	RenderPages(ctx context.Context, data []byte, password string, dpi int, fn PageRenderFunc) error
}

// ImageEncoder общий шаг кодирования изображения
type ImageEncoder interface {
	EncodeImage(img image.Image, format entities.OutputFormat, quality, colorCount int) ([]byte, error)
}

// PDFAssembler собирает PDF из готовых JPEG/PNG изображений
type PDFAssembler interface {
	ImagesToPDF(ctx context.Context, images [][]byte) ([]byte, error)
}

// FileRepository интерфейс для работы с файловой системой
type FileRepository interface {
	FileSize(path string) (int64, error)
	WriteFileAtomic(path string, data []byte) error
}

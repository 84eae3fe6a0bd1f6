package compressors

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"filecompressor/internal/domain/entities"
)

// ImagesToPDF собирает новый документ: одна страница на изображение, в порядке входа.
// Изображения должны быть уже закодированы в JPEG или PNG.
func (p *PDFCPUCompressor) ImagesToPDF(ctx context.Context, images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, entities.NewValidationError("сборка PDF", entities.ErrEmptySource)
	}
	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("сборка PDF", err)
	}

	readers := make([]io.Reader, 0, len(images))
	for i, img := range images {
		if len(img) == 0 {
			return nil, entities.NewValidationError("сборка PDF", fmt.Errorf("%w: изображение %d", entities.ErrEmptySource, i+1))
		}
		readers = append(readers, bytes.NewReader(img))
	}

	conf := model.NewDefaultConfiguration()
	imp := pdfcpu.DefaultImportConfig()

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, imp, conf); err != nil {
		return nil, entities.NewProcessingError("сборка PDF", err)
	}
	return out.Bytes(), nil
}

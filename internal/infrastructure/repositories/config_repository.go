package repositories

import (
	"filecompressor/internal/domain/entities"
)

// ConfigRepository строит запросы к ядру из параметров конфигурации
type ConfigRepository struct {
	config *entities.Config
}

// NewConfigRepository создает новый репозиторий параметров
func NewConfigRepository(config *entities.Config) *ConfigRepository {
	if config == nil {
		config = entities.DefaultConfig()
	}
	return &ConfigRepository{config: config}
}

// Config возвращает текущую конфигурацию
func (r *ConfigRepository) Config() *entities.Config {
	return r.config
}

// ImageRequest запрос на сжатие изображения с параметрами по умолчанию.
// Изменение размера включается только явно, через withResize.
func (r *ConfigRepository) ImageRequest(source entities.Source, withResize bool) *entities.ImageRequest {
	c := r.config.Compression
	req := &entities.ImageRequest{
		Source:     source,
		Format:     c.ImageOutputFormat(),
		Quality:    c.Quality,
		ColorCount: c.ColorCount,
	}
	if withResize {
		req.Resize = &entities.Size{Width: c.ResizeWidth, Height: c.ResizeHeight}
	}
	return req
}

// PdfJob задание на обработку PDF с параметрами по умолчанию
func (r *ConfigRepository) PdfJob(source entities.Source, mode entities.PdfMode) *entities.PdfJob {
	job := &entities.PdfJob{
		Source:  source,
		Mode:    mode,
		Quality: r.config.Compression.Quality,
	}
	if mode == entities.ModeRasterize {
		job.Format = r.config.Compression.RasterOutputFormat()
	} else {
		job.Format = entities.FormatPDF
	}
	return job
}


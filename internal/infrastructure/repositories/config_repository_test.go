package repositories_test

import (
	"testing"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/infrastructure/repositories"
)

func TestConfigRepository_Requests(t *testing.T) {
	cfg := entities.DefaultConfig()
	cfg.Compression.ImageFormat = "png"
	cfg.Compression.RasterFormat = "png"
	repo := repositories.NewConfigRepository(cfg)
	src := entities.SourceFromPath("photo.jpg")

	req := repo.ImageRequest(src, false)
	if req.Format != entities.FormatPNG || req.Quality != 70 || req.ColorCount != 128 || req.Resize != nil {
		t.Errorf("Unexpected image request: %+v", req)
	}

	req = repo.ImageRequest(src, true)
	if req.Resize == nil || *req.Resize != (entities.Size{Width: 800, Height: 600}) {
		t.Errorf("Expected default 800x600 resize, got %v", req.Resize)
	}

	job := repo.PdfJob(src, entities.ModeRasterize)
	if job.Format != entities.FormatPNG {
		t.Errorf("Rasterize job format = %v, want PNG", job.Format)
	}
	job = repo.PdfJob(src, entities.ModeRecompress)
	if job.Format != entities.FormatPDF {
		t.Errorf("Recompress job format = %v, want PDF", job.Format)
	}
}

func TestConfigRepository_NilConfigUsesDefaults(t *testing.T) {
	repo := repositories.NewConfigRepository(nil)
	if repo.Config().Compression.Quality != entities.DefaultConfig().Compression.Quality {
		t.Error("Expected default configuration")
	}
}

package main

import (
	"context"
	"fmt"
	"sync"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/infrastructure/compressors"
	infraRepos "filecompressor/internal/infrastructure/repositories"
	"filecompressor/internal/interface/controllers"
	"filecompressor/internal/presentation/tui"
	usecases "filecompressor/internal/usecase"
)

// ApplicationProcessor связывает сценарии ядра с CLI и TUI
type ApplicationProcessor struct {
	mu     sync.RWMutex
	config *entities.Config
	logger repositories.Logger

	imageCompressor *compressors.DefaultImageCompressor
	assembler       *compressors.PDFCPUCompressor
	rasterizer      *compressors.PDFiumRasterizer
	fileRepo        *infraRepos.FileSystemRepository
	locks           *usecases.PathLocks

	imageUseCase *usecases.CompressImageUseCase
	pdfUseCase   *usecases.PDFCompressor
	dispatcher   *usecases.Dispatcher
}

// NewApplicationProcessor создает процессор приложения
func NewApplicationProcessor(config *entities.Config, logger repositories.Logger) (*ApplicationProcessor, error) {
	if config == nil {
		config = entities.DefaultConfig()
	}

	dispatcher, err := usecases.NewDispatcher(config.Processing.Workers, config.Timeout(), logger)
	if err != nil {
		return nil, err
	}

	p := &ApplicationProcessor{
		logger:          logger,
		imageCompressor: compressors.NewImageCompressor(),
		assembler:       compressors.NewPDFCPUCompressor(),
		rasterizer:      compressors.NewPDFiumRasterizer(config.Processing.RendererInstances),
		fileRepo:        infraRepos.NewFileSystemRepository(),
		locks:           usecases.NewPathLocks(),
		dispatcher:      dispatcher,
	}
	p.imageUseCase = usecases.NewCompressImageUseCase(logger, p.imageCompressor, p.fileRepo, p.locks)
	p.applyConfig(config)

	return p, nil
}

// newApplication фабрика приложения для CLI контроллера
func newApplication(config *entities.Config, logger repositories.Logger) (controllers.Application, error) {
	return NewApplicationProcessor(config, logger)
}

// applyConfig пересобирает сценарий PDF под выбранный движок
func (p *ApplicationProcessor) applyConfig(config *entities.Config) {
	var recompressor repositories.PDFRecompressor
	switch config.Compression.PDFEngine {
	case entities.EngineUniPDF:
		recompressor = compressors.NewUniPDFCompressor(config.Compression.UniPDFLicenseKey)
	default:
		recompressor = p.assembler
	}

	pdfUseCase := usecases.NewPDFCompressor(
		recompressor,
		p.rasterizer,
		p.imageCompressor,
		p.assembler,
		p.fileRepo,
		p.logger,
		p.locks,
	)

	p.mu.Lock()
	p.config = config
	p.pdfUseCase = pdfUseCase
	p.mu.Unlock()
}

// SetConfig применяет сохраненную конфигурацию к следующим задачам.
// Число экземпляров PDFium меняется только после перезапуска.
func (p *ApplicationProcessor) SetConfig(config *entities.Config) {
	p.applyConfig(config)
	p.dispatcher.SetLimits(config.Processing.Workers, config.Timeout())
	if p.logger != nil {
		p.logger.Debug("Конфигурация применена: движок %s, воркеров %d, занято %d",
			config.Compression.PDFEngine, p.dispatcher.Cap(), p.dispatcher.Running())
	}
}

// Config возвращает текущую конфигурацию
func (p *ApplicationProcessor) Config() *entities.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

func (p *ApplicationProcessor) pdf() *usecases.PDFCompressor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pdfUseCase
}

// CompressImage сжимает одно изображение
func (p *ApplicationProcessor) CompressImage(ctx context.Context, req *entities.ImageRequest, outputPath string) (*entities.CompressionResult, error) {
	return p.imageUseCase.Execute(ctx, req, outputPath)
}

// ProcessPDF пересжимает или растеризует PDF, сообщая прогресс в progress
func (p *ApplicationProcessor) ProcessPDF(ctx context.Context, job *entities.PdfJob, outputPath string, progress func(entities.JobStatus)) (*entities.CompressionResult, error) {
	return p.pdf().WithProgressReporter(progress).Execute(ctx, job, outputPath)
}

// MergeImages собирает PDF из изображений
func (p *ApplicationProcessor) MergeImages(ctx context.Context, sources []entities.Source, quality int, outputPath string) (*entities.CompressionResult, error) {
	return p.pdf().MergeImages(ctx, sources, quality, outputPath)
}

// ExtractText возвращает текст страниц документа
func (p *ApplicationProcessor) ExtractText(ctx context.Context, src entities.Source, password string) ([]string, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	return p.rasterizer.ExtractText(ctx, data, password)
}

// PageCount возвращает количество страниц документа
func (p *ApplicationProcessor) PageCount(ctx context.Context, src entities.Source, password string) (int, error) {
	return p.pdf().PageCount(ctx, src, password)
}

// ListImages возвращает поддерживаемые изображения каталога
func (p *ApplicationProcessor) ListImages(directory string) ([]string, error) {
	return p.fileRepo.ListFiles(directory, compressors.IsImageFile)
}

// InFlight проверяет, выполняется ли задача владельца
func (p *ApplicationProcessor) InFlight(owner string) bool {
	return p.dispatcher.InFlight(owner)
}

// Submit отправляет задачу в диспетчер
func (p *ApplicationProcessor) Submit(owner string, job usecases.Job) (*usecases.JobHandle, error) {
	return p.dispatcher.Submit(owner, job)
}

// JobFromForm превращает форму TUI в задачу диспетчера.
// Ошибки параметров возвращаются сразу, до запуска.
func (p *ApplicationProcessor) JobFromForm(form tui.JobForm, progress func(entities.JobStatus)) (usecases.Job, error) {
	config := p.Config()

	switch form.Kind {
	case tui.JobImage:
		req, err := form.ImageRequest(config)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (*entities.CompressionResult, error) {
			return p.CompressImage(ctx, req, form.Output)
		}, nil

	case tui.JobPdfCompress, tui.JobPdfRasterize:
		job, err := form.PdfJob(config)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (*entities.CompressionResult, error) {
			return p.ProcessPDF(ctx, job, form.Output, progress)
		}, nil

	case tui.JobImagesToPDF:
		quality, err := form.QualityOr(config.Compression.Quality)
		if err != nil {
			return nil, err
		}
		paths, err := controllers.ExpandImageArgs(p, form.Paths())
		if err != nil {
			return nil, err
		}
		sources := make([]entities.Source, 0, len(paths))
		for _, path := range paths {
			sources = append(sources, entities.SourceFromPath(path))
		}
		return func(ctx context.Context) (*entities.CompressionResult, error) {
			return p.MergeImages(ctx, sources, quality, form.Output)
		}, nil
	}

	return nil, entities.NewValidationError("форма", fmt.Errorf("%w: %s", entities.ErrUnsupportedMode, form.Kind))
}

// Shutdown отменяет задачи и освобождает PDFium
func (p *ApplicationProcessor) Shutdown() {
	p.dispatcher.Shutdown()
	if err := p.rasterizer.Close(); err != nil && p.logger != nil {
		p.logger.Warning("Ошибка остановки PDFium: %v", err)
	}
}

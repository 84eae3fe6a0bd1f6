package usecases

import (
	"context"
	"fmt"
	"image"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/infrastructure/compressors"
)

// PDFCompressor сценарии обработки PDF: пересжатие, растеризация, сборка из изображений
type PDFCompressor struct {
	recompressor     repositories.PDFRecompressor
	rasterizer       repositories.PageRasterizer
	encoder          repositories.ImageEncoder
	assembler        repositories.PDFAssembler
	fileRepo         repositories.FileRepository
	logger           repositories.Logger
	locks            *PathLocks
	progressReporter func(entities.JobStatus)
}

// NewPDFCompressor создает сценарий обработки PDF
func NewPDFCompressor(
	recompressor repositories.PDFRecompressor,
	rasterizer repositories.PageRasterizer,
	encoder repositories.ImageEncoder,
	assembler repositories.PDFAssembler,
	fileRepo repositories.FileRepository,
	logger repositories.Logger,
	locks *PathLocks,
) *PDFCompressor {
	if locks == nil {
		locks = NewPathLocks()
	}
	return &PDFCompressor{
		recompressor: recompressor,
		rasterizer:   rasterizer,
		encoder:      encoder,
		assembler:    assembler,
		fileRepo:     fileRepo,
		logger:       logger,
		locks:        locks,
	}
}

// SetProgressReporter устанавливает функцию для отчета о прогрессе
func (uc *PDFCompressor) SetProgressReporter(reporter func(entities.JobStatus)) {
	uc.progressReporter = reporter
}

// WithProgressReporter возвращает копию сценария со своим получателем прогресса.
// Используется, когда одна копия обслуживает несколько задач.
func (uc *PDFCompressor) WithProgressReporter(reporter func(entities.JobStatus)) *PDFCompressor {
	c := *uc
	c.progressReporter = reporter
	return &c
}

// reportProgress отправляет обновление прогресса
func (uc *PDFCompressor) reportProgress(status *entities.JobStatus) {
	if uc.progressReporter != nil {
		uc.progressReporter(*status)
	}
}

// Recompress пересжимает встроенные изображения документа
func (uc *PDFCompressor) Recompress(ctx context.Context, src entities.Source, quality int, password string) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}
	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	engine, ok := uc.recompressor.(repositories.StatsRecompressor)
	if !ok {
		out, err := uc.recompressor.Recompress(ctx, data, quality, password)
		if err != nil {
			return nil, categorize("сжатие PDF", err)
		}
		return out, nil
	}

	out, stats, err := engine.RecompressWithStats(ctx, data, quality, password)
	if err != nil {
		return nil, categorize("сжатие PDF", err)
	}
	uc.logInfo("    └─ Изображений пересжато: %d из %d, потоки %.2f MB → %.2f MB (−%d байт)",
		stats.Replaced, stats.Images,
		float64(stats.BytesBefore)/1024/1024,
		float64(stats.BytesAfter)/1024/1024,
		stats.SavedBytes())
	return out, nil
}

// Rasterize отрисовывает каждую страницу, кодирует ее в format и собирает zip.
// Первая ошибка страницы прерывает задачу, архив не создается.
func (uc *PDFCompressor) Rasterize(ctx context.Context, src entities.Source, format entities.OutputFormat, quality int, password string) ([]byte, error) {
	return uc.rasterize(ctx, src, format, quality, password, entities.NewJobStatus("", src.Name()))
}

func (uc *PDFCompressor) rasterize(ctx context.Context, src entities.Source, format entities.OutputFormat, quality int, password string, status *entities.JobStatus) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}
	if !format.IsRasterOutput() {
		return nil, entities.NewValidationError("растеризация", fmt.Errorf("%w: %s", entities.ErrUnsupportedFormat, format))
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	dpi := entities.DPIForQuality(quality)
	archive := compressors.NewPageArchive()

	status.SetPhase(entities.PhaseProcessing, fmt.Sprintf("Растеризация при %d DPI", dpi))
	uc.reportProgress(status)

	err = uc.rasterizer.RenderPages(ctx, data, password, dpi, func(pageIndex, pageCount int, page image.Image) error {
		if pageIndex == 0 {
			status.SetTotal(pageCount)
		}

		encoded, err := uc.encoder.EncodeImage(page, format, quality, 0)
		if err != nil {
			return err
		}
		if err := archive.Add(entities.PageEntryName(pageIndex, pageCount, format), format, encoded); err != nil {
			return err
		}

		status.Advance()
		status.Message = fmt.Sprintf("Страница %d из %d", pageIndex+1, pageCount)
		uc.reportProgress(status)
		return nil
	})
	if err != nil {
		return nil, categorize("растеризация", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("растеризация", err)
	}
	if archive.Len() == 0 {
		return nil, entities.NewProcessingError("растеризация", entities.ErrNoPages)
	}

	return archive.Bytes()
}

// Process выполняет задание в зависимости от режима
func (uc *PDFCompressor) Process(ctx context.Context, job *entities.PdfJob) ([]byte, error) {
	return uc.process(ctx, job, entities.NewJobStatus("", job.Source.Name()))
}

func (uc *PDFCompressor) process(ctx context.Context, job *entities.PdfJob, status *entities.JobStatus) ([]byte, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	switch job.Mode {
	case entities.ModeRasterize:
		return uc.rasterize(ctx, job.Source, job.Format, job.Quality, job.Password, status)
	default:
		status.SetPhase(entities.PhaseProcessing, "Пересжатие изображений документа")
		uc.reportProgress(status)
		return uc.Recompress(ctx, job.Source, job.Quality, job.Password)
	}
}

// SaveOutput атомарно записывает результат. Запись в один путь сериализуется.
func (uc *PDFCompressor) SaveOutput(data []byte, path string) error {
	unlock := uc.locks.Lock(path)
	defer unlock()
	return uc.fileRepo.WriteFileAtomic(path, data)
}

// Execute выполняет задание и сохраняет результат.
// Пустой outputPath строится по имени исходного файла.
func (uc *PDFCompressor) Execute(ctx context.Context, job *entities.PdfJob, outputPath string) (*entities.CompressionResult, error) {
	status := entities.NewJobStatus("", job.Source.Name())
	status.OriginalSize = sourceSize(uc.fileRepo, job.Source)
	uc.reportProgress(status)

	result, err := uc.execute(ctx, job, outputPath, status)
	if err != nil {
		if isCancelled(err) {
			status.Cancel()
			uc.logWarning("Задача отменена: %s", job.Source.Name())
		} else {
			status.Fail(err)
			uc.logError("Ошибка обработки %s: %v", job.Source.Name(), err)
		}
		uc.reportProgress(status)
		return nil, err
	}

	status.Complete(result.CompressedSize)
	uc.reportProgress(status)

	uc.logSuccess("%s: %s → %s", job.Mode, result.CurrentFile, result.OutputFile)
	uc.logInfo("    └─ Размер: %.2f MB → %.2f MB (%.1f%%) за %s",
		float64(result.OriginalSize)/1024/1024,
		float64(result.CompressedSize)/1024/1024,
		result.CompressionRatio,
		status.FormatElapsedTime())

	return result, nil
}

func (uc *PDFCompressor) execute(ctx context.Context, job *entities.PdfJob, outputPath string, status *entities.JobStatus) (*entities.CompressionResult, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if outputPath == "" {
		if job.Source.Path == "" {
			return nil, entities.NewValidationError("pdf", entities.ErrEmptySource)
		}
		kind := entities.OutputCompressed
		if job.Mode == entities.ModeRasterize {
			kind = entities.OutputConverted
		}
		outputPath = entities.OutputPathFor(job.Source.Path, kind, job.Format)
	}

	uc.logInfo("%s: %s (%s, качество %d)", job.Mode, job.Source.Name(), job.Format, job.Quality)

	status.SetPhase(entities.PhaseDecoding, "Чтение документа")
	uc.reportProgress(status)

	data, err := uc.process(ctx, job, status)
	if err != nil {
		return nil, err
	}

	// Отмененная задача не пишет файл
	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("pdf", err)
	}

	status.SetPhase(entities.PhaseWriting, outputPath)
	uc.reportProgress(status)

	if err := uc.SaveOutput(data, outputPath); err != nil {
		return nil, err
	}

	result := &entities.CompressionResult{
		CurrentFile:    job.Source.Name(),
		OutputFile:     outputPath,
		OriginalSize:   status.OriginalSize,
		CompressedSize: int64(len(data)),
		Units:          status.TotalUnits,
		Success:        true,
	}
	result.CalculateCompressionRatio()
	return result, nil
}

// ImagesToPDF перекодирует изображения в JPEG с заданным качеством
// и собирает из них документ, по странице на изображение
func (uc *PDFCompressor) ImagesToPDF(ctx context.Context, sources []entities.Source, quality int) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, entities.NewValidationError("сборка PDF", entities.ErrEmptySource)
	}

	status := entities.NewJobStatus("", fmt.Sprintf("%d изображений", len(sources)))
	status.SetTotal(len(sources))
	status.SetPhase(entities.PhaseProcessing, "Подготовка изображений")
	uc.reportProgress(status)

	images := make([][]byte, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, entities.NewCancelledError("сборка PDF", err)
		}

		data, err := src.Bytes()
		if err != nil {
			return nil, err
		}
		img, _, err := compressors.DecodeImage(data)
		if err != nil {
			return nil, entities.NewDecodeError("изображение "+src.Name(), err)
		}
		encoded, err := uc.encoder.EncodeImage(img, entities.FormatJPEG, quality, 0)
		if err != nil {
			return nil, err
		}
		images = append(images, encoded)

		status.Advance()
		uc.reportProgress(status)
	}

	out, err := uc.assembler.ImagesToPDF(ctx, images)
	if err != nil {
		return nil, categorize("сборка PDF", err)
	}
	return out, nil
}

// MergeImages собирает PDF из изображений и сохраняет его в outputPath
func (uc *PDFCompressor) MergeImages(ctx context.Context, sources []entities.Source, quality int, outputPath string) (*entities.CompressionResult, error) {
	if outputPath == "" {
		if len(sources) == 0 || sources[0].Path == "" {
			return nil, entities.NewValidationError("сборка PDF", entities.ErrEmptySource)
		}
		outputPath = entities.OutputPathFor(sources[0].Path, entities.OutputMergedPDF, entities.FormatPDF)
	}

	data, err := uc.ImagesToPDF(ctx, sources, quality)
	if err != nil {
		uc.logError("Ошибка сборки PDF: %v", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("сборка PDF", err)
	}
	if err := uc.SaveOutput(data, outputPath); err != nil {
		return nil, err
	}

	var originalSize int64
	for _, src := range sources {
		originalSize += sourceSize(uc.fileRepo, src)
	}

	result := &entities.CompressionResult{
		CurrentFile:    fmt.Sprintf("%d изображений", len(sources)),
		OutputFile:     outputPath,
		OriginalSize:   originalSize,
		CompressedSize: int64(len(data)),
		Units:          len(sources),
		Success:        true,
	}
	result.CalculateCompressionRatio()

	uc.logSuccess("PDF собран: %s (%d стр.)", outputPath, len(sources))
	return result, nil
}

// PageCount возвращает количество страниц документа
func (uc *PDFCompressor) PageCount(ctx context.Context, src entities.Source, password string) (int, error) {
	data, err := src.Bytes()
	if err != nil {
		return 0, err
	}
	return uc.rasterizer.PageCount(ctx, data, password)
}

// Методы для логирования
func (uc *PDFCompressor) logInfo(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Info(format, args...)
	}
}

func (uc *PDFCompressor) logSuccess(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Success(format, args...)
	}
}

func (uc *PDFCompressor) logWarning(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Warning(format, args...)
	}
}

func (uc *PDFCompressor) logError(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Error(format, args...)
	}
}

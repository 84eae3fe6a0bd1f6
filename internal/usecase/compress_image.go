package usecases

import (
	"context"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/infrastructure/compressors"
)

// CompressImageUseCase обрабатывает сжатие изображений
type CompressImageUseCase struct {
	logger     repositories.Logger
	compressor compressors.ImageCompressor
	fileRepo   repositories.FileRepository
	locks      *PathLocks
}

// NewCompressImageUseCase создает новый UseCase для сжатия изображений.
// locks может быть nil, если запись не разделяется с другими сценариями.
func NewCompressImageUseCase(
	logger repositories.Logger,
	compressor compressors.ImageCompressor,
	fileRepo repositories.FileRepository,
	locks *PathLocks,
) *CompressImageUseCase {
	if locks == nil {
		locks = NewPathLocks()
	}
	return &CompressImageUseCase{
		logger:     logger,
		compressor: compressor,
		fileRepo:   fileRepo,
		locks:      locks,
	}
}

// Execute сжимает изображение и сохраняет результат.
// Пустой outputPath означает <имя>_compressed.<расширение> рядом с исходным файлом.
func (uc *CompressImageUseCase) Execute(ctx context.Context, req *entities.ImageRequest, outputPath string) (*entities.CompressionResult, error) {
	if outputPath == "" {
		if req.Source.Path == "" {
			return nil, entities.NewValidationError("изображение", entities.ErrEmptySource)
		}
		outputPath = entities.OutputPathFor(req.Source.Path, entities.OutputCompressed, req.Format)
	}

	uc.logInfo("Сжатие изображения: %s → %s (%s, качество %d)", req.Source.Name(), outputPath, req.Format, req.Quality)

	data, err := uc.compressor.ProcessImage(ctx, req)
	if err != nil {
		uc.logError("Ошибка сжатия изображения %s: %v", req.Source.Name(), err)
		return nil, err
	}

	// Отмененная задача не пишет файл
	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("изображение", err)
	}

	unlock := uc.locks.Lock(outputPath)
	err = uc.fileRepo.WriteFileAtomic(outputPath, data)
	unlock()
	if err != nil {
		uc.logError("Не удалось сохранить %s: %v", outputPath, err)
		return nil, err
	}

	result := &entities.CompressionResult{
		CurrentFile:    req.Source.Name(),
		OutputFile:     outputPath,
		OriginalSize:   sourceSize(uc.fileRepo, req.Source),
		CompressedSize: int64(len(data)),
		Units:          1,
		Success:        true,
	}
	result.CalculateCompressionRatio()

	uc.logSuccess("Изображение сохранено: %s (%.1f%%)", outputPath, result.CompressionRatio)
	return result, nil
}

// sourceSize возвращает размер исходных данных
func sourceSize(fileRepo repositories.FileRepository, src entities.Source) int64 {
	if len(src.Data) > 0 {
		return int64(len(src.Data))
	}
	size, err := fileRepo.FileSize(src.Path)
	if err != nil {
		return 0
	}
	return size
}

// Методы для логирования
func (uc *CompressImageUseCase) logInfo(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Info(format, args...)
	}
}

func (uc *CompressImageUseCase) logSuccess(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Success(format, args...)
	}
}

func (uc *CompressImageUseCase) logError(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Error(format, args...)
	}
}

package controllers

import (
	"context"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	usecases "filecompressor/internal/usecase"
)

// Application операции ядра, доступные слою представления
type Application interface {
	CompressImage(ctx context.Context, req *entities.ImageRequest, outputPath string) (*entities.CompressionResult, error)
	ProcessPDF(ctx context.Context, job *entities.PdfJob, outputPath string, progress func(entities.JobStatus)) (*entities.CompressionResult, error)
	MergeImages(ctx context.Context, sources []entities.Source, quality int, outputPath string) (*entities.CompressionResult, error)
	ExtractText(ctx context.Context, src entities.Source, password string) ([]string, error)
	PageCount(ctx context.Context, src entities.Source, password string) (int, error)
	ListImages(directory string) ([]string, error)
	Submit(owner string, job usecases.Job) (*usecases.JobHandle, error)
	Shutdown()
}

// AppFactory собирает приложение для конфигурации и логгера
type AppFactory func(config *entities.Config, logger repositories.Logger) (Application, error)

// RunJob выполняет задачу через диспетчер и ждет ее завершения.
// Завершение ctx (например, Ctrl+C) отменяет задачу.
func RunJob(ctx context.Context, app Application, owner string, job usecases.Job) (*entities.CompressionResult, error) {
	h, err := app.Submit(owner, job)
	if err != nil {
		return nil, err
	}

	select {
	case <-h.Done():
	case <-ctx.Done():
		h.Cancel()
		<-h.Done()
	}

	return h.Wait(context.Background())
}

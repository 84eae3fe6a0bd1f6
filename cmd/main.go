package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/infrastructure/config"
	"filecompressor/internal/infrastructure/logging"
	"filecompressor/internal/interface/controllers"
	"filecompressor/internal/presentation/tui"
	usecases "filecompressor/internal/usecase"
)

// tuiOwner владелец задач экрана TUI в диспетчере
const tuiOwner = "tui"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := controllers.NewCLIController(newApplication, newConsoleLogger, runTUI)
	if err := cli.RootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newConsoleLogger логгер консольных команд пишет в stderr, чтобы не смешиваться с результатом
func newConsoleLogger(cfg *entities.Config) repositories.Logger {
	return logging.NewWriterLogger(os.Stderr, cfg.Output.LogLevel)
}

// runTUI запускает интерфейс терминала
func runTUI(cfg *entities.Config, configPath string) error {
	// Консоль занята TUI, поэтому базовый логгер пишет только в файл
	var base repositories.Logger
	fileLogger, err := logging.NewFileLogger(cfg.Output.LogFileName, cfg.Output.LogLevel, cfg.Output.LogToFile)
	if err != nil {
		log.Printf("Предупреждение: не удалось инициализировать логгер: %v", err)
	} else {
		base = fileLogger
	}

	tuiManager := tui.NewManager(cfg)
	tuiManager.Initialize()

	logger := tui.NewUILogger(base, tuiManager)
	defer logger.Close()

	processor, err := NewApplicationProcessor(cfg, logger)
	if err != nil {
		tuiManager.Cleanup()
		return err
	}
	defer processor.Shutdown()

	var (
		mu      sync.Mutex
		current *usecases.JobHandle

		configRepo repositories.AppConfigRepository = config.NewRepository()
	)

	tuiManager.SetOnStartJob(func(form tui.JobForm) error {
		// Разбор формы и обход каталогов не нужны, пока идет предыдущая задача
		if processor.InFlight(tuiOwner) {
			return entities.NewValidationError(tuiOwner, entities.ErrJobInFlight)
		}

		job, err := processor.JobFromForm(form, tuiManager.SendStatusUpdate)
		if err != nil {
			return err
		}

		h, err := processor.Submit(tuiOwner, job)
		if err != nil {
			return err
		}

		mu.Lock()
		current = h
		mu.Unlock()

		logger.Info("Задача %s запущена: %s", h.ID, form.Kind)

		go func() {
			result, err := h.Wait(context.Background())
			tuiManager.FinishJob(result, err)
		}()
		return nil
	})

	tuiManager.SetOnCancelJob(func() {
		mu.Lock()
		defer mu.Unlock()
		if current != nil {
			current.Cancel()
		}
	})

	tuiManager.SetOnSaveConfig(func(newCfg *entities.Config) error {
		if err := configRepo.Save(configPath, newCfg); err != nil {
			return err
		}
		processor.SetConfig(newCfg)
		logger.Info("Конфигурация сохранена в %s", configPath)
		return nil
	})

	err = tuiManager.Run()

	// Cleanup до Shutdown: задачи, завершающиеся при остановке, не обращаются к экрану
	tuiManager.Cleanup()
	return err
}

package entities

import (
	"fmt"
	"time"
)

// Движки сжатия PDF
const (
	EnginePDFCPU = "pdfcpu"
	EngineUniPDF = "unipdf"
)

// Config представляет конфигурацию приложения
type Config struct {
	Compression AppCompressionConfig `yaml:"compression"`
	Processing  ProcessingConfig     `yaml:"processing"`
	Output      OutputConfig         `yaml:"output"`
}

// AppCompressionConfig параметры сжатия по умолчанию
type AppCompressionConfig struct {
	PDFEngine        string `yaml:"pdf_engine"`
	UniPDFLicenseKey string `yaml:"unipdf_license_key"`
	Quality          int    `yaml:"quality"`
	ColorCount       int    `yaml:"color_count"`
	ResizeWidth      int    `yaml:"resize_width"`
	ResizeHeight     int    `yaml:"resize_height"`
	ImageFormat      string `yaml:"image_format"`
	RasterFormat     string `yaml:"raster_format"`
}

// ProcessingConfig настройки обработки
type ProcessingConfig struct {
	Workers           int `yaml:"workers"`
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	RendererInstances int `yaml:"renderer_instances"`
}

// OutputConfig настройки вывода
type OutputConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogToFile   bool   `yaml:"log_to_file"`
	LogFileName string `yaml:"log_file_name"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Compression: AppCompressionConfig{
			PDFEngine:    EnginePDFCPU,
			Quality:      70,
			ColorCount:   128,
			ResizeWidth:  800,
			ResizeHeight: 600,
			ImageFormat:  "jpeg",
			RasterFormat: "jpeg",
		},
		Processing: ProcessingConfig{
			Workers:           2,
			TimeoutSeconds:    300,
			RendererInstances: 1,
		},
		Output: OutputConfig{
			LogLevel:    "info",
			LogToFile:   true,
			LogFileName: "compressor.log",
		},
	}
}

// Validate проверяет корректность конфигурации приложения
func (c *Config) Validate() error {
	if err := ValidateQuality(c.Compression.Quality); err != nil {
		return err
	}

	switch c.Compression.PDFEngine {
	case EnginePDFCPU, EngineUniPDF:
	default:
		return NewValidationError("конфигурация", fmt.Errorf("%w: %q", ErrUnknownEngine, c.Compression.PDFEngine))
	}

	if c.Compression.ColorCount != 0 && c.Compression.ColorCount < 2 {
		return NewValidationError("конфигурация", ErrInvalidColorCount)
	}

	for _, name := range []string{c.Compression.ImageFormat, c.Compression.RasterFormat} {
		format, err := ParseOutputFormat(name)
		if err != nil {
			return err
		}
		if !format.IsRasterOutput() {
			return NewValidationError("конфигурация", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format))
		}
	}

	if c.Processing.Workers < 0 || c.Processing.RendererInstances < 0 {
		return NewValidationError("конфигурация", fmt.Errorf("число воркеров не может быть отрицательным"))
	}

	return nil
}

// Timeout возвращает ограничение времени на одну задачу (0 - без ограничения)
func (c *Config) Timeout() time.Duration {
	if c.Processing.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Processing.TimeoutSeconds) * time.Second
}

// ImageOutputFormat формат сжатия изображений
func (c *AppCompressionConfig) ImageOutputFormat() OutputFormat {
	f, _ := ParseOutputFormat(c.ImageFormat)
	return f
}

// RasterOutputFormat формат страниц при растеризации
func (c *AppCompressionConfig) RasterOutputFormat() OutputFormat {
	f, _ := ParseOutputFormat(c.RasterFormat)
	return f
}

// JobStatus статус выполнения задачи
type JobStatus struct {
	JobID string

	// Текущая фаза обработки
	Phase ProcessingPhase

	CurrentFile string

	// Единицы работы: страницы или изображения
	TotalUnits     int
	ProcessedUnits int

	// Прогресс
	Progress float64

	OriginalSize int64
	OutputSize   int64

	StartTime   time.Time
	ElapsedTime time.Duration

	IsComplete bool
	Error      error

	// Сообщение для UI
	Message string
}

// ProcessingPhase фаза обработки
type ProcessingPhase int

const (
	PhaseInitializing ProcessingPhase = iota
	PhaseDecoding
	PhaseProcessing
	PhaseWriting
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
)

// UIScreen типы экранов UI
type UIScreen int

const (
	UIScreenMenu UIScreen = iota
	UIScreenJob
	UIScreenConfig
	UIScreenProcessing
)

// NewJobStatus создает новый статус задачи
func NewJobStatus(jobID, file string) *JobStatus {
	return &JobStatus{
		JobID:       jobID,
		Phase:       PhaseInitializing,
		CurrentFile: file,
		StartTime:   time.Now(),
	}
}

// SetPhase устанавливает фазу обработки
func (js *JobStatus) SetPhase(phase ProcessingPhase, message string) {
	js.Phase = phase
	js.Message = message
	js.ElapsedTime = time.Since(js.StartTime)
}

// SetTotal устанавливает общее число единиц работы
func (js *JobStatus) SetTotal(total int) {
	js.TotalUnits = total
	js.updateProgress()
}

// Advance отмечает завершение очередной единицы работы
func (js *JobStatus) Advance() {
	js.ProcessedUnits++
	js.updateProgress()
}

func (js *JobStatus) updateProgress() {
	if js.TotalUnits > 0 {
		js.Progress = float64(js.ProcessedUnits) / float64(js.TotalUnits) * 100
	}
	js.ElapsedTime = time.Since(js.StartTime)
}

// Complete завершает обработку
func (js *JobStatus) Complete(outputSize int64) {
	js.IsComplete = true
	js.Phase = PhaseCompleted
	js.Progress = 100
	js.OutputSize = outputSize
	js.ElapsedTime = time.Since(js.StartTime)
}

// Fail отмечает обработку как неудачную
func (js *JobStatus) Fail(err error) {
	js.IsComplete = true
	js.Phase = PhaseFailed
	js.Error = err
	js.ElapsedTime = time.Since(js.StartTime)
}

// Cancel отмечает задачу как отмененную
func (js *JobStatus) Cancel() {
	js.IsComplete = true
	js.Phase = PhaseCancelled
	js.Error = ErrCancelled
	js.ElapsedTime = time.Since(js.StartTime)
}

func (phase ProcessingPhase) String() string {
	switch phase {
	case PhaseInitializing:
		return "Инициализация"
	case PhaseDecoding:
		return "Чтение документа"
	case PhaseProcessing:
		return "Обработка"
	case PhaseWriting:
		return "Запись результата"
	case PhaseCompleted:
		return "Завершено"
	case PhaseFailed:
		return "Ошибка"
	case PhaseCancelled:
		return "Отменено"
	default:
		return "Неизвестно"
	}
}

// FormatElapsedTime форматирует время выполнения
func (js *JobStatus) FormatElapsedTime() string {
	if js.ElapsedTime < time.Second {
		return "< 1 сек"
	}
	return js.ElapsedTime.Round(time.Second).String()
}

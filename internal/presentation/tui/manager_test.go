package tui

import (
	"errors"
	"strings"
	"testing"

	"filecompressor/internal/domain/entities"
)

func TestCreateProgressBar(t *testing.T) {
	tests := []struct {
		progress   float64
		wantFilled int
		wantColor  string
	}{
		{-5, 0, "red"},
		{0, 0, "red"},
		{30, 3, "yellow"},
		{60, 6, "blue"},
		{100, 10, "green"},
		{150, 10, "green"},
	}

	for _, tt := range tests {
		bar := createProgressBar(tt.progress, 10)
		if !strings.HasPrefix(bar, "["+tt.wantColor+"]") {
			t.Errorf("createProgressBar(%v) = %q, want color %s", tt.progress, bar, tt.wantColor)
		}
		if got := strings.Count(bar, "█"); got != tt.wantFilled {
			t.Errorf("createProgressBar(%v) filled = %d, want %d", tt.progress, got, tt.wantFilled)
		}
		if got := strings.Count(bar, "░"); got != 10-tt.wantFilled {
			t.Errorf("createProgressBar(%v) empty = %d, want %d", tt.progress, got, 10-tt.wantFilled)
		}
	}
}

func TestTruncateFileName(t *testing.T) {
	if got := truncateFileName("отчет.pdf", 10, 7); got != "отчет.pdf" {
		t.Errorf("Short name changed: %q", got)
	}
	if got := truncateFileName("очень_длинное_имя.pdf", 10, 7); got != "очень_д..." {
		t.Errorf("truncateFileName() = %q", got)
	}
}

func TestRenderProgress(t *testing.T) {
	status := entities.NewJobStatus("1", "/tmp/docs/report.pdf")
	status.SetPhase(entities.PhaseProcessing, "")
	status.SetTotal(4)
	status.Advance()

	text := renderProgress(*status)
	for _, want := range []string{"report.pdf", "Обработка", "25.0%", "1[white] из [cyan]4", "X[white] - отменить"} {
		if !strings.Contains(text, want) {
			t.Errorf("Progress text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "/tmp/docs") {
		t.Error("Progress text should show only the file name")
	}

	status.Cancel()
	if text := renderProgress(*status); !strings.Contains(text, "отменена") {
		t.Errorf("Cancelled status not shown:\n%s", text)
	}

	failed := entities.NewJobStatus("2", "a.pdf")
	failed.Fail(errors.New("boom"))
	if text := renderProgress(*failed); !strings.Contains(text, "boom") {
		t.Errorf("Error not shown:\n%s", text)
	}
}

func TestRenderResult(t *testing.T) {
	result := &entities.CompressionResult{
		OutputFile:     "out.zip",
		OriginalSize:   2 * 1024 * 1024,
		CompressedSize: 1024 * 1024,
		Units:          3,
		Success:        true,
	}
	result.CalculateCompressionRatio()

	text := renderResult(result, nil)
	for _, want := range []string{"out.zip", "50.0%", "[cyan]3"} {
		if !strings.Contains(text, want) {
			t.Errorf("Result text missing %q:\n%s", want, text)
		}
	}

	cancelled := entities.NewCancelledError("задача", errors.New("context canceled"))
	if text := renderResult(nil, cancelled); !strings.Contains(text, "файл не записан") {
		t.Errorf("Cancelled result not shown:\n%s", text)
	}
	if text := renderResult(nil, errors.New("broken")); !strings.Contains(text, "broken") {
		t.Errorf("Error result not shown:\n%s", text)
	}
}

func TestOptionIndex(t *testing.T) {
	if got := optionIndex(formatOptions, "PNG"); got != 1 {
		t.Errorf("optionIndex(png) = %d", got)
	}
	if got := optionIndex(formatOptions, "jpg"); got != 0 {
		t.Errorf("optionIndex(jpg) = %d", got)
	}
	if got := optionIndex(logLevelOptions, "warn"); got != 2 {
		t.Errorf("optionIndex(warn) = %d", got)
	}
	if got := optionIndex(engineOptions, "unknown"); got != 0 {
		t.Errorf("optionIndex(unknown) = %d", got)
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(entities.DefaultConfig())
	m.Initialize()
	t.Cleanup(m.Cleanup)
	return m
}

func TestManager_StartJob(t *testing.T) {
	m := newTestManager(t)

	calls := 0
	m.SetOnStartJob(func(form JobForm) error {
		calls++
		if form.Source == "" {
			return entities.NewValidationError("форма", entities.ErrEmptySource)
		}
		return nil
	})

	m.startJob()
	if m.IsProcessing() {
		t.Error("Rejected job should not mark manager as processing")
	}
	if !strings.Contains(m.statusBar.GetText(false), "источник не задан") {
		t.Errorf("Status bar = %q", m.statusBar.GetText(false))
	}

	m.form.Source = "photo.jpg"
	m.startJob()
	if !m.IsProcessing() || m.currentScreen != entities.UIScreenProcessing {
		t.Fatal("Accepted job should switch to processing screen")
	}

	// Повторный запуск недоступен, пока задача выполняется
	m.startJob()
	if calls != 2 {
		t.Errorf("Start callback called %d times, want 2", calls)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	m := newTestManager(t)

	var saved *entities.Config
	m.SetOnSaveConfig(func(cfg *entities.Config) error {
		saved = cfg
		return nil
	})

	m.switchToScreen(entities.UIScreenConfig)
	m.draft.Compression.Quality = 0
	m.saveConfig()
	if saved != nil || m.Config().Compression.Quality != 70 {
		t.Fatal("Invalid config must not be saved")
	}

	m.draft.Compression.Quality = 45
	m.draft.Compression.PDFEngine = entities.EngineUniPDF
	m.saveConfig()
	if saved == nil || saved.Compression.Quality != 45 {
		t.Fatalf("Saved config = %+v", saved)
	}
	if got := m.Config(); got.Compression.Quality != 45 || got.Compression.PDFEngine != entities.EngineUniPDF {
		t.Errorf("Config() = %+v", got.Compression)
	}

	// Несохраненные правки сбрасываются при повторном входе
	m.switchToScreen(entities.UIScreenConfig)
	m.draft.Compression.Quality = 10
	m.switchToScreen(entities.UIScreenConfig)
	if m.draft.Compression.Quality != 45 {
		t.Errorf("Draft quality = %d, want 45", m.draft.Compression.Quality)
	}
}

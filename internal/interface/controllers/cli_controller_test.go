package controllers_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/interface/controllers"
	usecases "filecompressor/internal/usecase"
)

// fakeApp запоминает запросы вместо выполнения
type fakeApp struct {
	*usecases.Dispatcher

	imageReq  *entities.ImageRequest
	pdfJob    *entities.PdfJob
	merged    []entities.Source
	output    string
	quality   int
	listedDir string
}

// Shutdown не останавливает общий диспетчер между командами теста
func (a *fakeApp) Shutdown() {}

func (a *fakeApp) result() *entities.CompressionResult {
	return &entities.CompressionResult{OriginalSize: 200, CompressedSize: 100, CompressionRatio: 50, SavedSpace: 100, Success: true, OutputFile: "out"}
}

func (a *fakeApp) CompressImage(_ context.Context, req *entities.ImageRequest, out string) (*entities.CompressionResult, error) {
	a.imageReq, a.output = req, out
	return a.result(), nil
}

func (a *fakeApp) ProcessPDF(_ context.Context, job *entities.PdfJob, out string, progress func(entities.JobStatus)) (*entities.CompressionResult, error) {
	a.pdfJob, a.output = job, out
	if progress != nil {
		progress(entities.JobStatus{CurrentFile: "doc.pdf", TotalUnits: 1, ProcessedUnits: 1, Progress: 100})
	}
	return a.result(), nil
}

func (a *fakeApp) MergeImages(_ context.Context, sources []entities.Source, quality int, out string) (*entities.CompressionResult, error) {
	a.merged, a.quality, a.output = sources, quality, out
	return a.result(), nil
}

func (a *fakeApp) ExtractText(context.Context, entities.Source, string) ([]string, error) {
	return []string{"Page 1", "Page 2"}, nil
}

func (a *fakeApp) PageCount(context.Context, entities.Source, string) (int, error) {
	return 2, nil
}

func (a *fakeApp) ListImages(dir string) ([]string, error) {
	a.listedDir = dir
	return []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}, nil
}

type harness struct {
	app       *fakeApp
	tuiCalled bool
	stdout    bytes.Buffer
	config    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	d, err := usecases.NewDispatcher(1, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		app:    &fakeApp{Dispatcher: d},
		config: filepath.Join(t.TempDir(), "config.yaml"),
	}
	t.Cleanup(d.Shutdown)
	return h
}

func (h *harness) run(args ...string) error {
	ctrl := controllers.NewCLIController(
		func(*entities.Config, repositories.Logger) (controllers.Application, error) { return h.app, nil },
		nil,
		func(*entities.Config, string) error {
			h.tuiCalled = true
			return nil
		},
	)
	root := ctrl.RootCommand()
	root.SetOut(&h.stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", h.config}, args...))
	return root.Execute()
}

func TestCLI_DefaultRunsTUI(t *testing.T) {
	h := newHarness(t)
	if err := h.run(); err != nil {
		t.Fatal(err)
	}
	if !h.tuiCalled {
		t.Error("Root command without arguments should start the TUI")
	}
}

func TestCLI_ImageFlags(t *testing.T) {
	h := newHarness(t)
	err := h.run("image", "photo.webp", "-f", "png", "-q", "55", "--width", "800", "--height", "600", "--colors", "16", "-o", "out.png")
	if err != nil {
		t.Fatal(err)
	}

	req := h.app.imageReq
	if req.Format != entities.FormatPNG || req.Quality != 55 || req.ColorCount != 16 {
		t.Errorf("Unexpected request: %+v", req)
	}
	if req.Resize == nil || *req.Resize != (entities.Size{Width: 800, Height: 600}) {
		t.Errorf("Resize = %v, want 800x600", req.Resize)
	}
	if h.app.output != "out.png" || req.Source.Path != "photo.webp" {
		t.Errorf("Paths: source %s, output %s", req.Source.Path, h.app.output)
	}
	if !strings.Contains(h.stdout.String(), "Сохранено: out") {
		t.Errorf("Result not printed: %q", h.stdout.String())
	}
}

func TestCLI_ImageDefaultsFromConfig(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.config, []byte("compression:\n  quality: 33\n  color_count: 64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.run("image", "photo.jpg"); err != nil {
		t.Fatal(err)
	}

	req := h.app.imageReq
	if req.Quality != 33 || req.ColorCount != 64 || req.Format != entities.FormatJPEG || req.Resize != nil {
		t.Errorf("Defaults not applied: %+v", req)
	}
}

func TestCLI_PdfCommands(t *testing.T) {
	h := newHarness(t)

	if err := h.run("pdf", "rasterize", "doc.pdf", "-f", "png", "-q", "90", "-p", "secret"); err != nil {
		t.Fatal(err)
	}
	job := h.app.pdfJob
	if job.Mode != entities.ModeRasterize || job.Format != entities.FormatPNG || job.Quality != 90 || job.Password != "secret" {
		t.Errorf("Unexpected rasterize job: %+v", job)
	}

	if err := h.run("pdf", "compress", "doc.pdf"); err != nil {
		t.Fatal(err)
	}
	if h.app.pdfJob.Mode != entities.ModeRecompress || h.app.pdfJob.Format != entities.FormatPDF {
		t.Errorf("Unexpected compress job: %+v", h.app.pdfJob)
	}

	if err := h.run("pdf", "compress", "doc.pdf", "--engine", "ghostscript"); !errors.Is(err, entities.ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}
}

func TestCLI_PdfTextAndInfo(t *testing.T) {
	h := newHarness(t)
	if err := h.run("pdf", "text", "doc.pdf"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "--- Страница 2 ---\nPage 2") {
		t.Errorf("Text output: %q", h.stdout.String())
	}

	h.stdout.Reset()
	if err := h.run("pdf", "info", "doc.pdf"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "doc.pdf: 2 стр.") {
		t.Errorf("Info output: %q", h.stdout.String())
	}
}

func TestCLI_ToPDF(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	if err := h.run("topdf", dir, "-q", "40"); err != nil {
		t.Fatal(err)
	}
	if h.app.listedDir != dir || len(h.app.merged) != 2 || h.app.quality != 40 {
		t.Errorf("Directory not expanded: dir %q, %d sources, quality %d", h.app.listedDir, len(h.app.merged), h.app.quality)
	}

	if err := h.run("topdf", "a.jpg", "notes.txt"); !errors.Is(err, entities.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat for txt, got %v", err)
	}
}

func TestCLI_InvalidFormatFlag(t *testing.T) {
	h := newHarness(t)
	if err := h.run("image", "photo.jpg", "-f", "tiff"); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

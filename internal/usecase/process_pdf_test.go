package usecases_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/infrastructure/compressors"
	"filecompressor/internal/infrastructure/repositories"
	"filecompressor/internal/testutil"
	usecases "filecompressor/internal/usecase"
)

func newPDFCompressor(recompressor *fakeRecompressor, rasterizer *fakeRasterizer) *usecases.PDFCompressor {
	if recompressor == nil {
		recompressor = &fakeRecompressor{out: []byte("%PDF-1.4 out")}
	}
	if rasterizer == nil {
		rasterizer = &fakeRasterizer{pages: 3, failAt: -1}
	}
	return usecases.NewPDFCompressor(
		recompressor,
		rasterizer,
		compressors.NewImageCompressor(),
		compressors.NewPDFCPUCompressor(),
		repositories.NewFileSystemRepository(),
		&recordingLogger{},
		nil,
	)
}

func readZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Output is not a zip archive: %v", err)
	}
	return r
}

func TestRasterize_PageEntries(t *testing.T) {
	tests := []struct {
		format entities.OutputFormat
		names  []string
	}{
		{entities.FormatJPEG, []string{"page_001.jpg", "page_002.jpg", "page_003.jpg"}},
		{entities.FormatPNG, []string{"page_001.png", "page_002.png", "page_003.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			uc := newPDFCompressor(nil, nil)

			var updates []entities.JobStatus
			uc.SetProgressReporter(func(s entities.JobStatus) { updates = append(updates, s) })

			out, err := uc.Rasterize(context.Background(), entities.SourceFromBytes([]byte("%PDF")), tt.format, 80, "")
			if err != nil {
				t.Fatalf("Rasterize() error: %v", err)
			}

			r := readZip(t, out)
			if len(r.File) != len(tt.names) {
				t.Fatalf("Archive has %d entries, want %d", len(r.File), len(tt.names))
			}
			for i, f := range r.File {
				if f.Name != tt.names[i] {
					t.Errorf("Entry %d = %s, want %s", i, f.Name, tt.names[i])
				}
				rc, err := f.Open()
				if err != nil {
					t.Fatal(err)
				}
				if _, _, err := image.Decode(rc); err != nil {
					t.Errorf("Entry %s is not decodable: %v", f.Name, err)
				}
				rc.Close()
			}

			last := updates[len(updates)-1]
			if last.ProcessedUnits != 3 || last.TotalUnits != 3 || last.Progress != 100 {
				t.Errorf("Last progress update = %d/%d (%.0f%%)", last.ProcessedUnits, last.TotalUnits, last.Progress)
			}
		})
	}
}

func TestRasterize_FailFast(t *testing.T) {
	uc := newPDFCompressor(nil, &fakeRasterizer{pages: 3, failAt: 1})
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(input, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	job := &entities.PdfJob{Source: entities.SourceFromPath(input), Mode: entities.ModeRasterize, Format: entities.FormatJPEG, Quality: 50}
	if _, err := uc.Execute(context.Background(), job, ""); !errors.Is(err, entities.ErrProcessing) {
		t.Fatalf("Expected processing error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "doc_converted_jpg.zip")); !os.IsNotExist(err) {
		t.Error("No archive should be written when a page fails")
	}
}

func TestRasterize_NoRenderedPages(t *testing.T) {
	uc := newPDFCompressor(nil, &fakeRasterizer{pages: 2, failAt: -1, silent: true})

	out, err := uc.Rasterize(context.Background(), entities.SourceFromBytes([]byte("%PDF")), entities.FormatPNG, 50, "")
	if out != nil || !errors.Is(err, entities.ErrNoPages) {
		t.Errorf("Expected ErrNoPages for an empty archive, got %v", err)
	}
}

func TestRasterize_ValidationErrors(t *testing.T) {
	uc := newPDFCompressor(nil, nil)
	src := entities.SourceFromBytes([]byte("%PDF"))

	if _, err := uc.Rasterize(context.Background(), src, entities.FormatWEBP, 50, ""); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for WEBP, got %v", err)
	}
	if _, err := uc.Rasterize(context.Background(), src, entities.FormatJPEG, 0, ""); !errors.Is(err, entities.ErrInvalidQuality) {
		t.Errorf("Expected ErrInvalidQuality, got %v", err)
	}
	if _, err := uc.Rasterize(context.Background(), entities.Source{}, entities.FormatJPEG, 50, ""); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected validation error for empty source, got %v", err)
	}
}

func TestExecute_RecompressWritesDefaultPath(t *testing.T) {
	uc := newPDFCompressor(&fakeRecompressor{out: []byte("%PDF-small")}, nil)
	dir := t.TempDir()
	input := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(input, bytes.Repeat([]byte("x"), 100), 0644); err != nil {
		t.Fatal(err)
	}

	job := &entities.PdfJob{Source: entities.SourceFromPath(input), Mode: entities.ModeRecompress, Quality: 40}
	result, err := uc.Execute(context.Background(), job, "")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	want := filepath.Join(dir, "report_compressed.pdf")
	if result.OutputFile != want {
		t.Errorf("OutputFile = %s, want %s", result.OutputFile, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "%PDF-small" {
		t.Errorf("Output content = %q, %v", data, err)
	}
	if result.OriginalSize != 100 || result.CompressedSize != 10 || !result.IsEffective() {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestExecute_LogsRecompressStats(t *testing.T) {
	logger := &recordingLogger{}
	engine := &statsRecompressor{
		fakeRecompressor: fakeRecompressor{out: []byte("%PDF-small")},
		stats:            entities.RecompressStats{Images: 3, Replaced: 2, BytesBefore: 5000, BytesAfter: 1200},
	}
	uc := usecases.NewPDFCompressor(
		engine,
		&fakeRasterizer{pages: 1, failAt: -1},
		compressors.NewImageCompressor(),
		compressors.NewPDFCPUCompressor(),
		repositories.NewFileSystemRepository(),
		logger,
		nil,
	)

	job := &entities.PdfJob{Source: entities.SourceFromBytes([]byte("%PDF")), Mode: entities.ModeRecompress, Quality: 40}
	if _, err := uc.Execute(context.Background(), job, filepath.Join(t.TempDir(), "out.pdf")); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if !logger.contains("2 из 3") {
		t.Errorf("Replaced/images not logged: %q", logger.messages)
	}
	if !logger.contains("3800 байт") {
		t.Errorf("Saved bytes not logged: %q", logger.messages)
	}
}

func TestExecute_UncategorizedEngineError(t *testing.T) {
	uc := newPDFCompressor(&fakeRecompressor{err: errors.New("engine exploded")}, nil)

	job := &entities.PdfJob{Source: entities.SourceFromBytes([]byte("%PDF")), Mode: entities.ModeRecompress, Quality: 40}
	_, err := uc.Execute(context.Background(), job, filepath.Join(t.TempDir(), "out.pdf"))
	if !errors.Is(err, entities.ErrProcessing) {
		t.Errorf("Expected processing error, got %v", err)
	}
}

func TestExecute_CancelledBeforeWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	uc := newPDFCompressor(&fakeRecompressor{out: []byte("%PDF"), before: cancel}, nil)

	var final entities.JobStatus
	uc.SetProgressReporter(func(s entities.JobStatus) { final = s })

	output := filepath.Join(t.TempDir(), "out.pdf")
	job := &entities.PdfJob{Source: entities.SourceFromBytes([]byte("%PDF")), Mode: entities.ModeRecompress, Quality: 40}
	if _, err := uc.Execute(ctx, job, output); !errors.Is(err, entities.ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("Cancelled job must not write output")
	}
	if final.Phase != entities.PhaseCancelled {
		t.Errorf("Final phase = %v, want cancelled", final.Phase)
	}
}

func TestSaveOutput_MissingDirectory(t *testing.T) {
	uc := newPDFCompressor(nil, nil)
	dir := t.TempDir()

	err := uc.SaveOutput([]byte("data"), filepath.Join(dir, "missing", "out.pdf"))
	if !errors.Is(err, entities.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Temporary files left behind: %v", entries)
	}
}

func TestMergeImages(t *testing.T) {
	uc := newPDFCompressor(nil, nil)
	dir := t.TempDir()

	first := filepath.Join(dir, "scan.png")
	second := filepath.Join(dir, "scan2.jpg")
	if err := os.WriteFile(first, testutil.PNGBytes(testutil.GradientImage(50, 40)), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, testutil.JPEGBytes(testutil.GradientImage(40, 50), 90), 0644); err != nil {
		t.Fatal(err)
	}

	sources := []entities.Source{entities.SourceFromPath(first), entities.SourceFromPath(second)}
	result, err := uc.MergeImages(context.Background(), sources, 60, "")
	if err != nil {
		t.Fatalf("MergeImages() error: %v", err)
	}
	if result.OutputFile != filepath.Join(dir, "scan_images.pdf") || result.Units != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}

	data, err := os.ReadFile(result.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := compressors.NewPDFCPUCompressor().PageCount(data, "")
	if err != nil || pages != 2 {
		t.Errorf("PageCount() = %d, %v; want 2", pages, err)
	}

	if _, err := uc.ImagesToPDF(context.Background(), []entities.Source{entities.SourceFromBytes([]byte("junk"))}, 60); !errors.Is(err, entities.ErrDecode) {
		t.Errorf("Expected decode error for junk image, got %v", err)
	}
}

func TestRasterize_RealDocument(t *testing.T) {
	rasterizer := compressors.NewPDFiumRasterizer(1)
	defer rasterizer.Close()

	uc := usecases.NewPDFCompressor(
		compressors.NewPDFCPUCompressor(),
		rasterizer,
		compressors.NewImageCompressor(),
		compressors.NewPDFCPUCompressor(),
		repositories.NewFileSystemRepository(),
		nil,
		nil,
	)

	out, err := uc.Rasterize(context.Background(), entities.SourceFromBytes(testutil.TextPDF(3)), entities.FormatJPEG, 80, "")
	if err != nil {
		t.Fatalf("Rasterize() error: %v", err)
	}

	r := readZip(t, out)
	want := []string{"page_001.jpg", "page_002.jpg", "page_003.jpg"}
	if len(r.File) != len(want) {
		t.Fatalf("Archive has %d entries, want 3", len(r.File))
	}
	for i, f := range r.File {
		if f.Name != want[i] {
			t.Errorf("Entry %d = %s, want %s", i, f.Name, want[i])
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := image.Decode(rc); err != nil {
			t.Errorf("Entry %s is not decodable: %v", f.Name, err)
		}
		rc.Close()
	}

	for _, data := range [][]byte{testutil.CorruptPDF(), testutil.TextPDF(0)} {
		out, err := uc.Rasterize(context.Background(), entities.SourceFromBytes(data), entities.FormatJPEG, 80, "")
		if out != nil || !(errors.Is(err, entities.ErrDecode) || errors.Is(err, entities.ErrProcessing)) {
			t.Errorf("Expected decode or processing error without output, got %v", err)
		}
	}
}

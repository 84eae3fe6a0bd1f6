package usecases_test

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
)

// fakeRasterizer отдает заранее заданные страницы
type fakeRasterizer struct {
	pages  int
	failAt int // индекс страницы с ошибкой, -1 - без ошибок
	block  bool
	silent bool // завершается без отрисовки страниц
}

func (f *fakeRasterizer) PageCount(_ context.Context, _ []byte, _ string) (int, error) {
	return f.pages, nil
}

func (f *fakeRasterizer) RenderPages(ctx context.Context, _ []byte, _ string, _ int, fn repositories.PageRenderFunc) error {
	if f.pages == 0 {
		return entities.NewProcessingError("fake", entities.ErrNoPages)
	}
	if f.silent {
		return nil
	}
	for i := 0; i < f.pages; i++ {
		if f.block {
			<-ctx.Done()
		}
		if err := ctx.Err(); err != nil {
			return entities.NewCancelledError("fake", err)
		}
		if i == f.failAt {
			return entities.NewProcessingError("fake", entities.ErrDecode)
		}
		img := image.NewRGBA(image.Rect(0, 0, 20, 30))
		img.Set(1, 1, color.RGBA{R: uint8(i * 40), A: 0xff})
		if err := fn(i, f.pages, img); err != nil {
			return err
		}
	}
	return nil
}

// fakeRecompressor возвращает фиксированный результат
type fakeRecompressor struct {
	out    []byte
	err    error
	before func()
}

func (f *fakeRecompressor) Recompress(_ context.Context, _ []byte, _ int, _ string) ([]byte, error) {
	if f.before != nil {
		f.before()
	}
	return f.out, f.err
}

// statsRecompressor дополнительно отдает статистику по изображениям
type statsRecompressor struct {
	fakeRecompressor
	stats entities.RecompressStats
}

func (f *statsRecompressor) RecompressWithStats(ctx context.Context, data []byte, quality int, password string) ([]byte, entities.RecompressStats, error) {
	out, err := f.Recompress(ctx, data, quality, password)
	return out, f.stats, err
}

// recordingLogger собирает отформатированные сообщения
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) add(format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (l *recordingLogger) Debug(format string, args ...interface{})   { l.add(format, args) }
func (l *recordingLogger) Info(format string, args ...interface{})    { l.add(format, args) }
func (l *recordingLogger) Warning(format string, args ...interface{}) { l.add(format, args) }
func (l *recordingLogger) Error(format string, args ...interface{})   { l.add(format, args) }
func (l *recordingLogger) Success(format string, args ...interface{}) { l.add(format, args) }
func (l *recordingLogger) Close() error                               { return nil }

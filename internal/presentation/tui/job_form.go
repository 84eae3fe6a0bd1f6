package tui

import (
	"fmt"
	"strconv"
	"strings"

	"filecompressor/internal/domain/entities"
	infraRepos "filecompressor/internal/infrastructure/repositories"
)

// JobKind вид задачи в форме
type JobKind int

const (
	JobImage JobKind = iota
	JobPdfCompress
	JobPdfRasterize
	JobImagesToPDF
)

// JobKindNames подписи видов задач в выпадающем списке
var JobKindNames = []string{
	"Сжатие изображения",
	"Сжатие PDF",
	"PDF в изображения (zip)",
	"Изображения в PDF",
}

func (k JobKind) String() string {
	if int(k) < len(JobKindNames) {
		return JobKindNames[k]
	}
	return "Неизвестно"
}

// JobForm значения формы задачи в том виде, как их ввел пользователь
type JobForm struct {
	Kind     JobKind
	Source   string
	Output   string
	Format   string
	Quality  string
	Width    string
	Height   string
	Colors   string
	Password string
}

// NewJobForm заполняет форму значениями из конфигурации
func NewJobForm(cfg *entities.Config) JobForm {
	c := cfg.Compression
	return JobForm{
		Kind:    JobImage,
		Format:  c.ImageFormat,
		Quality: strconv.Itoa(c.Quality),
		Colors:  strconv.Itoa(c.ColorCount),
	}
}

// ImageRequest строит запрос на сжатие изображения.
// Пустые ширина и высота означают отсутствие ресайза.
func (f JobForm) ImageRequest(cfg *entities.Config) (*entities.ImageRequest, error) {
	source, err := f.source()
	if err != nil {
		return nil, err
	}

	req := infraRepos.NewConfigRepository(cfg).ImageRequest(source, false)

	if req.Format, err = f.format(req.Format); err != nil {
		return nil, err
	}
	if req.Quality, err = parseInt("качество", f.Quality, req.Quality); err != nil {
		return nil, err
	}
	if req.ColorCount, err = parseInt("цвета", f.Colors, req.ColorCount); err != nil {
		return nil, err
	}

	width, err := parseInt("ширина", f.Width, 0)
	if err != nil {
		return nil, err
	}
	height, err := parseInt("высота", f.Height, 0)
	if err != nil {
		return nil, err
	}
	if width != 0 || height != 0 {
		req.Resize = &entities.Size{Width: width, Height: height}
	}

	return req, req.Validate()
}

// PdfJob строит задание на обработку PDF
func (f JobForm) PdfJob(cfg *entities.Config) (*entities.PdfJob, error) {
	source, err := f.source()
	if err != nil {
		return nil, err
	}

	mode := entities.ModeRecompress
	if f.Kind == JobPdfRasterize {
		mode = entities.ModeRasterize
	}

	job := infraRepos.NewConfigRepository(cfg).PdfJob(source, mode)
	job.Password = f.Password

	if mode == entities.ModeRasterize {
		if job.Format, err = f.format(job.Format); err != nil {
			return nil, err
		}
	}
	if job.Quality, err = parseInt("качество", f.Quality, job.Quality); err != nil {
		return nil, err
	}

	return job, job.Validate()
}

// QualityOr возвращает качество из формы или def, если поле пустое
func (f JobForm) QualityOr(def int) (int, error) {
	q, err := parseInt("качество", f.Quality, def)
	if err != nil {
		return 0, err
	}
	return q, entities.ValidateQuality(q)
}

func (f JobForm) source() (entities.Source, error) {
	path := strings.TrimSpace(f.Source)
	if path == "" {
		return entities.Source{}, entities.NewValidationError("форма", entities.ErrEmptySource)
	}
	return entities.SourceFromPath(path), nil
}

func (f JobForm) format(def entities.OutputFormat) (entities.OutputFormat, error) {
	if strings.TrimSpace(f.Format) == "" {
		return def, nil
	}
	return entities.ParseOutputFormat(f.Format)
}

// parseInt разбирает число; пустая строка дает значение по умолчанию
func parseInt(field, value string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, entities.NewValidationError("форма", fmt.Errorf("%s: ожидается число, получено %q", field, value))
	}
	return n, nil
}

// Paths возвращает список путей источника; для сборки PDF пути разделяются запятой
func (f JobForm) Paths() []string {
	var paths []string
	for _, p := range strings.Split(f.Source, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
	"filecompressor/internal/infrastructure/compressors"
	"filecompressor/internal/infrastructure/config"
	infraRepos "filecompressor/internal/infrastructure/repositories"
)

// CLIController контроллер для командной строки
type CLIController struct {
	newApp    AppFactory
	runTUI    func(cfg *entities.Config, configPath string) error
	newLogger func(cfg *entities.Config) repositories.Logger

	configRepo repositories.AppConfigRepository
	configPath string
	config     *entities.Config
}

// NewCLIController создает новый CLI контроллер.
// newLogger строит логгер для консольных команд, runTUI запускает интерфейс терминала.
func NewCLIController(
	newApp AppFactory,
	newLogger func(cfg *entities.Config) repositories.Logger,
	runTUI func(cfg *entities.Config, configPath string) error,
) *CLIController {
	return &CLIController{
		newApp:     newApp,
		runTUI:     runTUI,
		newLogger:  newLogger,
		configRepo: config.NewRepository(),
	}
}

// RootCommand строит дерево команд. Без подкоманды запускается TUI.
func (c *CLIController) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "filecompressor",
		Short:         "Сжатие изображений и PDF",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.configRepo.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
			}
			c.config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTUI(c.config, c.configPath)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath, "путь к файлу конфигурации")

	root.AddCommand(
		c.imageCommand(),
		c.pdfCommand(),
		c.toPDFCommand(),
		&cobra.Command{
			Use:   "tui",
			Short: "Интерфейс терминала",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.runTUI(c.config, c.configPath)
			},
		},
	)

	return root
}

// withApp собирает приложение на время команды
func (c *CLIController) withApp(fn func(app Application) error) error {
	var logger repositories.Logger
	if c.newLogger != nil {
		logger = c.newLogger(c.config)
	}

	app, err := c.newApp(c.config, logger)
	if err != nil {
		return err
	}
	defer func() {
		app.Shutdown()
		if logger != nil {
			_ = logger.Close()
		}
	}()

	return fn(app)
}

func (c *CLIController) imageCommand() *cobra.Command {
	var (
		output        string
		format        string
		quality       int
		width, height int
		colors        int
	)

	cmd := &cobra.Command{
		Use:   "image <файл>",
		Short: "Сжать изображение (JPEG, PNG, WEBP на входе)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := infraRepos.NewConfigRepository(c.config).ImageRequest(entities.SourceFromPath(args[0]), false)

			flags := cmd.Flags()
			if flags.Changed("format") {
				f, err := entities.ParseOutputFormat(format)
				if err != nil {
					return err
				}
				req.Format = f
			}
			if flags.Changed("quality") {
				req.Quality = quality
			}
			if flags.Changed("colors") {
				req.ColorCount = colors
			}
			if flags.Changed("width") || flags.Changed("height") {
				req.Resize = &entities.Size{Width: width, Height: height}
			}

			return c.withApp(func(app Application) error {
				result, err := RunJob(cmd.Context(), app, "image", func(ctx context.Context) (*entities.CompressionResult, error) {
					return app.CompressImage(ctx, req, output)
				})
				if err != nil {
					return err
				}
				showCompressionResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "выходной файл (по умолчанию <имя>_compressed.<ext>)")
	f.StringVarP(&format, "format", "f", "", "формат результата: jpeg или png")
	f.IntVarP(&quality, "quality", "q", 0, "качество 1-100")
	f.IntVar(&width, "width", 0, "ширина (вместе с --height)")
	f.IntVar(&height, "height", 0, "высота (вместе с --width)")
	f.IntVar(&colors, "colors", 0, "максимум цветов палитры PNG")

	return cmd
}

func (c *CLIController) pdfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Операции с PDF",
	}
	cmd.AddCommand(
		c.pdfJobCommand(entities.ModeRecompress),
		c.pdfJobCommand(entities.ModeRasterize),
		c.pdfTextCommand(),
		c.pdfInfoCommand(),
	)
	return cmd
}

func (c *CLIController) pdfJobCommand(mode entities.PdfMode) *cobra.Command {
	var (
		output   string
		format   string
		quality  int
		password string
		engine   string
	)

	use, short := "compress <файл.pdf>", "Пересжать встроенные изображения PDF"
	if mode == entities.ModeRasterize {
		use, short = "rasterize <файл.pdf>", "Преобразовать страницы PDF в zip с изображениями"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := infraRepos.NewConfigRepository(c.config).PdfJob(entities.SourceFromPath(args[0]), mode)
			job.Password = password

			flags := cmd.Flags()
			if flags.Changed("quality") {
				job.Quality = quality
			}
			if flags.Changed("format") {
				f, err := entities.ParseOutputFormat(format)
				if err != nil {
					return err
				}
				job.Format = f
			}
			if flags.Changed("engine") {
				c.config.Compression.PDFEngine = engine
				if err := c.config.Validate(); err != nil {
					return err
				}
			}

			return c.withApp(func(app Application) error {
				progress := progressPrinter(cmd.ErrOrStderr())
				result, err := RunJob(cmd.Context(), app, "pdf", func(ctx context.Context) (*entities.CompressionResult, error) {
					return app.ProcessPDF(ctx, job, output, progress)
				})
				if err != nil {
					return err
				}
				showCompressionResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "выходной файл")
	f.IntVarP(&quality, "quality", "q", 0, "качество 1-100")
	f.StringVarP(&password, "password", "p", "", "пароль документа")
	if mode == entities.ModeRasterize {
		f.StringVarP(&format, "format", "f", "", "формат страниц: jpeg или png")
	} else {
		f.StringVar(&engine, "engine", "", "движок: pdfcpu или unipdf")
	}

	return cmd
}

func (c *CLIController) pdfTextCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "text <файл.pdf>",
		Short: "Извлечь текст страниц",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(app Application) error {
				pages, err := app.ExtractText(cmd.Context(), entities.SourceFromPath(args[0]), password)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for i, text := range pages {
					fmt.Fprintf(out, "--- Страница %d ---\n%s\n", i+1, strings.TrimRight(text, "\n"))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "пароль документа")
	return cmd
}

func (c *CLIController) pdfInfoCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "info <файл.pdf>",
		Short: "Показать количество страниц",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(app Application) error {
				src := entities.SourceFromPath(args[0])
				pages, err := app.PageCount(cmd.Context(), src, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d стр.\n", src.Name(), pages)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "пароль документа")
	return cmd
}

func (c *CLIController) toPDFCommand() *cobra.Command {
	var (
		output  string
		quality int
	)

	cmd := &cobra.Command{
		Use:   "topdf <изображения...|каталог>",
		Short: "Собрать PDF из изображений",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("quality") {
				quality = c.config.Compression.Quality
			}

			return c.withApp(func(app Application) error {
				paths, err := ExpandImageArgs(app, args)
				if err != nil {
					return err
				}

				sources := make([]entities.Source, 0, len(paths))
				for _, p := range paths {
					sources = append(sources, entities.SourceFromPath(p))
				}

				result, err := RunJob(cmd.Context(), app, "topdf", func(ctx context.Context) (*entities.CompressionResult, error) {
					return app.MergeImages(ctx, sources, quality, output)
				})
				if err != nil {
					return err
				}
				showCompressionResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "выходной PDF (по умолчанию <первый>_images.pdf)")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "качество JPEG страниц 1-100")
	return cmd
}

// ExpandImageArgs раскрывает единственный аргумент-каталог в список изображений
func ExpandImageArgs(app Application, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, entities.NewValidationError("изображения", entities.ErrEmptySource)
	}
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			files, err := app.ListImages(args[0])
			if err != nil {
				return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
			}
			if len(files) == 0 {
				return nil, entities.NewValidationError(args[0], errors.New("в каталоге нет изображений"))
			}
			return files, nil
		}
	}

	for _, arg := range args {
		if !compressors.IsImageFile(arg) {
			return nil, entities.NewValidationError(arg, entities.ErrUnsupportedFormat)
		}
	}
	return args, nil
}

// progressPrinter выводит постраничный прогресс
func progressPrinter(w io.Writer) func(entities.JobStatus) {
	last := -1
	return func(s entities.JobStatus) {
		if s.TotalUnits == 0 || s.ProcessedUnits == last {
			return
		}
		last = s.ProcessedUnits
		fmt.Fprintf(w, "\r%s: %d/%d (%.0f%%)", s.CurrentFile, s.ProcessedUnits, s.TotalUnits, s.Progress)
		if s.ProcessedUnits == s.TotalUnits {
			fmt.Fprintln(w)
		}
	}
}

// showCompressionResult показывает результат сжатия файла
func showCompressionResult(w io.Writer, result *entities.CompressionResult) {
	fmt.Fprintln(w, "📊 Результаты:")
	fmt.Fprintf(w, "Исходный размер: %.2f MB\n", float64(result.OriginalSize)/1024/1024)
	fmt.Fprintf(w, "Итоговый размер: %.2f MB\n", float64(result.CompressedSize)/1024/1024)
	fmt.Fprintf(w, "Сжатие: %.1f%%\n", result.CompressionRatio)

	if result.IsEffective() {
		fmt.Fprintf(w, "Сэкономлено: %.2f MB\n", float64(result.SavedSpace)/1024/1024)
	} else {
		fmt.Fprintln(w, "⚠️ Результат не меньше исходного файла")
	}

	fmt.Fprintf(w, "✅ Сохранено: %s\n", result.OutputFile)
}

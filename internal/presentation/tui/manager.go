package tui

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"filecompressor/internal/domain/entities"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// UI Configuration constants
const (
	MaxLogBufferSize     = 1000
	LogFlushInterval     = 50 * time.Millisecond
	ProgressBarWidth     = 40
	MaxFileNameLength    = 60
	MaxFileNameDisplay   = 57
	ProgressViewHeight   = 12
	FormItemLicenseIndex = 1
)

var (
	engineOptions   = []string{entities.EnginePDFCPU, entities.EngineUniPDF}
	formatOptions   = []string{"jpeg", "png"}
	logLevelOptions = []string{"debug", "info", "warning", "error"}
)

// Manager управляет TUI интерфейсом
type Manager struct {
	app           *tview.Application
	pages         *tview.Pages
	currentScreen entities.UIScreen

	// UI компоненты
	mainMenu     *tview.List
	jobForm      *tview.Form
	configForm   *tview.Form
	progressView *tview.TextView
	logView      *tview.TextView
	statusBar    *tview.TextView

	// Callbacks
	onStartJob   func(form JobForm) error
	onCancelJob  func()
	onSaveConfig func(cfg *entities.Config) error

	// Состояние
	config       entities.Config
	draft        entities.Config
	form         JobForm
	logBuffer    []string
	statusMutex  sync.RWMutex
	isProcessing bool

	// Батчинг логов через канал
	logChan  chan string
	logDone  chan struct{}
	logMutex sync.Mutex
}

// NewManager создает новый менеджер TUI для текущей конфигурации
func NewManager(cfg *entities.Config) *Manager {
	if cfg == nil {
		cfg = entities.DefaultConfig()
	}
	m := &Manager{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		config:    *cfg,
		draft:     *cfg,
		form:      NewJobForm(cfg),
		logBuffer: make([]string, 0, MaxLogBufferSize),
		logChan:   make(chan string, 100),
		logDone:   make(chan struct{}),
	}
	go m.logProcessor()
	return m
}

// Initialize инициализирует TUI
func (m *Manager) Initialize() {
	m.createUI()
	m.setupKeyBindings()
}

// Run запускает TUI
func (m *Manager) Run() error {
	return m.app.SetRoot(m.pages, true).EnableMouse(true).Run()
}

// SetOnStartJob устанавливает callback запуска задачи.
// Ошибка callback показывается в строке статуса, задача не считается запущенной.
func (m *Manager) SetOnStartJob(callback func(form JobForm) error) {
	m.onStartJob = callback
}

// SetOnCancelJob устанавливает callback отмены текущей задачи
func (m *Manager) SetOnCancelJob(callback func()) {
	m.onCancelJob = callback
}

// SetOnSaveConfig устанавливает callback сохранения конфигурации
func (m *Manager) SetOnSaveConfig(callback func(cfg *entities.Config) error) {
	m.onSaveConfig = callback
}

// Config возвращает сохраненную конфигурацию
func (m *Manager) Config() *entities.Config {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()
	cfg := m.config
	return &cfg
}

// IsProcessing true, пока задача выполняется
func (m *Manager) IsProcessing() bool {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()
	return m.isProcessing
}

// SendStatusUpdate отправляет обновление статуса. Вызывается из рабочих горутин.
func (m *Manager) SendStatusUpdate(status entities.JobStatus) {
	if m.progressView == nil || m.stopped() {
		return
	}
	text := renderProgress(status)
	m.app.QueueUpdateDraw(func() {
		m.progressView.SetText(text)
	})
}

// FinishJob показывает итог задачи и снова разрешает запуск
func (m *Manager) FinishJob(result *entities.CompressionResult, err error) {
	m.statusMutex.Lock()
	m.isProcessing = false
	m.statusMutex.Unlock()

	if m.progressView == nil || m.stopped() {
		return
	}
	text := renderResult(result, err)
	m.app.QueueUpdateDraw(func() {
		m.progressView.SetText(text)
		m.setStatus("")
	})
}

// createUI создает пользовательский интерфейс
func (m *Manager) createUI() {
	m.createMainMenu()
	m.createJobScreen()
	m.createConfigScreen()
	m.createProcessingScreen()

	m.statusBar = tview.NewTextView().SetDynamicColors(true)

	menuLayout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(m.mainMenu, 0, 1, true).
		AddItem(m.statusBar, 1, 0, false)

	m.pages.AddPage("menu", menuLayout, true, true)
	m.pages.AddPage("job", m.jobForm, true, false)
	m.pages.AddPage("config", m.configForm, true, false)
	m.pages.AddPage("processing", m.createProcessingLayout(), true, false)

	m.currentScreen = entities.UIScreenMenu
}

// createMainMenu создает главное меню
func (m *Manager) createMainMenu() {
	m.mainMenu = tview.NewList().
		AddItem("🚀 Новая задача", "Сжать изображение или PDF, растеризовать PDF, собрать PDF", '1', func() {
			m.switchToScreen(entities.UIScreenJob)
		}).
		AddItem("⚙️ Конфигурация", "Параметры сжатия и обработки", '2', func() {
			m.switchToScreen(entities.UIScreenConfig)
		}).
		AddItem("❌ Выход", "Закрыть приложение", 'q', func() {
			m.quit()
		})

	m.mainMenu.SetBorder(true).
		SetTitle("🔥 File Compressor - Главное меню").
		SetTitleAlign(tview.AlignCenter)

	m.mainMenu.SetSelectedBackgroundColor(tcell.ColorDarkBlue).
		SetSelectedTextColor(tcell.ColorWhite).
		SetMainTextColor(tcell.ColorWhite).
		SetSecondaryTextColor(tcell.ColorGray)
}

// createJobScreen создает форму задачи
func (m *Manager) createJobScreen() {
	m.jobForm = tview.NewForm().
		AddDropDown("Задача", JobKindNames, int(m.form.Kind), func(_ string, index int) {
			m.form.Kind = JobKind(index)
		}).
		AddInputField("Источник (для сборки PDF - файлы через запятую или каталог)", m.form.Source, 60, nil, func(text string) {
			m.form.Source = text
		}).
		AddInputField("Результат (пусто - рядом с источником)", m.form.Output, 60, nil, func(text string) {
			m.form.Output = text
		}).
		AddDropDown("Формат изображений", formatOptions, optionIndex(formatOptions, m.form.Format), func(option string, _ int) {
			m.form.Format = option
		}).
		AddInputField("Качество (1-100)", m.form.Quality, 5, tview.InputFieldInteger, func(text string) {
			m.form.Quality = text
		}).
		AddInputField("Ширина", m.form.Width, 7, tview.InputFieldInteger, func(text string) {
			m.form.Width = text
		}).
		AddInputField("Высота", m.form.Height, 7, tview.InputFieldInteger, func(text string) {
			m.form.Height = text
		}).
		AddInputField("Цвета PNG", m.form.Colors, 5, tview.InputFieldInteger, func(text string) {
			m.form.Colors = text
		}).
		AddPasswordField("Пароль PDF", m.form.Password, 30, '*', func(text string) {
			m.form.Password = text
		}).
		AddButton("Запустить", func() {
			m.startJob()
		}).
		AddButton("Назад", func() {
			m.switchToScreen(entities.UIScreenMenu)
		})

	m.jobForm.SetBorder(true).
		SetTitle("🔥 File Compressor - Новая задача (ESC - назад)").
		SetTitleAlign(tview.AlignCenter)
}

// createConfigScreen создает экран конфигурации
func (m *Manager) createConfigScreen() {
	m.configForm = tview.NewForm().
		AddDropDown("Движок PDF", engineOptions, optionIndex(engineOptions, m.draft.Compression.PDFEngine), func(option string, _ int) {
			m.draft.Compression.PDFEngine = option
			m.updateLicenseFieldVisibility()
		}).
		AddInputField("Лицензия UniPDF (UNIDOC_LICENSE_API_KEY)", m.draft.Compression.UniPDFLicenseKey, 60, nil, func(text string) {
			m.draft.Compression.UniPDFLicenseKey = text
		}).
		AddInputField("Качество по умолчанию (1-100)", strconv.Itoa(m.draft.Compression.Quality), 5, tview.InputFieldInteger, func(text string) {
			m.draft.Compression.Quality, _ = strconv.Atoi(text)
		}).
		AddInputField("Цвета PNG", strconv.Itoa(m.draft.Compression.ColorCount), 5, tview.InputFieldInteger, func(text string) {
			m.draft.Compression.ColorCount, _ = strconv.Atoi(text)
		}).
		AddDropDown("Формат изображений", formatOptions, optionIndex(formatOptions, m.draft.Compression.ImageFormat), func(option string, _ int) {
			m.draft.Compression.ImageFormat = option
		}).
		AddDropDown("Формат страниц PDF", formatOptions, optionIndex(formatOptions, m.draft.Compression.RasterFormat), func(option string, _ int) {
			m.draft.Compression.RasterFormat = option
		}).
		AddInputField("Параллельных задач", strconv.Itoa(m.draft.Processing.Workers), 5, tview.InputFieldInteger, func(text string) {
			m.draft.Processing.Workers, _ = strconv.Atoi(text)
		}).
		AddDropDown("Уровень логов", logLevelOptions, optionIndex(logLevelOptions, m.draft.Output.LogLevel), func(option string, _ int) {
			m.draft.Output.LogLevel = option
		}).
		AddButton("Сохранить", func() {
			m.saveConfig()
		})

	m.updateLicenseFieldVisibility()

	m.configForm.SetBorder(true).
		SetTitle("🔥 File Compressor - Конфигурация (ESC - выйти без сохранения)").
		SetTitleAlign(tview.AlignCenter)

	m.configForm.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			m.switchToScreen(entities.UIScreenMenu)
			return nil
		}
		return event
	})
}

// createProcessingScreen создает экран обработки
func (m *Manager) createProcessingScreen() {
	m.progressView = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true)

	m.progressView.SetBorder(true).
		SetTitle("📊 Прогресс обработки (X - отменить)").
		SetTitleAlign(tview.AlignCenter)

	m.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(MaxLogBufferSize)

	m.logView.SetBorder(true).
		SetTitle("📋 Журнал событий").
		SetTitleAlign(tview.AlignCenter)
}

// createProcessingLayout создает layout для экрана обработки
func (m *Manager) createProcessingLayout() *tview.Flex {
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(m.logView, 0, 1, false).
		AddItem(m.progressView, ProgressViewHeight, 0, false)
}

// setupKeyBindings настраивает горячие клавиши
func (m *Manager) setupKeyBindings() {
	m.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			m.switchToScreen(entities.UIScreenMenu)
			return nil
		case tcell.KeyF2:
			m.switchToScreen(entities.UIScreenConfig)
			return nil
		case tcell.KeyF3:
			m.switchToScreen(entities.UIScreenProcessing)
			return nil
		case tcell.KeyEscape:
			// В конфигурации ESC обрабатывается формой
			if m.currentScreen == entities.UIScreenConfig {
				return event
			}
			if m.currentScreen != entities.UIScreenMenu {
				m.switchToScreen(entities.UIScreenMenu)
				return nil
			}
		}

		switch m.currentScreen {
		case entities.UIScreenMenu:
			switch event.Rune() {
			case '1':
				m.switchToScreen(entities.UIScreenJob)
				return nil
			case '2':
				m.switchToScreen(entities.UIScreenConfig)
				return nil
			case 'q', 'Q':
				m.quit()
				return nil
			}
		case entities.UIScreenProcessing:
			switch event.Rune() {
			case 'x', 'X':
				m.cancelJob()
				return nil
			}
		}

		return event
	})
}

// switchToScreen переключает на указанный экран
func (m *Manager) switchToScreen(screen entities.UIScreen) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()

	m.currentScreen = screen

	switch screen {
	case entities.UIScreenMenu:
		m.pages.SwitchToPage("menu")
	case entities.UIScreenJob:
		m.pages.SwitchToPage("job")
	case entities.UIScreenConfig:
		// Несохраненные правки сбрасываются при каждом входе
		m.draft = m.config
		m.refreshConfigForm()
		m.pages.SwitchToPage("config")
	case entities.UIScreenProcessing:
		m.pages.SwitchToPage("processing")
	}
}

// startJob запускает задачу из формы. Пока задача выполняется, новый запуск недоступен.
func (m *Manager) startJob() {
	if m.IsProcessing() {
		m.setStatus("[yellow]⚠️ Задача уже выполняется (F3 - прогресс)")
		m.switchToScreen(entities.UIScreenMenu)
		return
	}
	if m.onStartJob == nil {
		return
	}

	m.statusMutex.Lock()
	m.isProcessing = true
	m.statusMutex.Unlock()

	if err := m.onStartJob(m.form); err != nil {
		m.statusMutex.Lock()
		m.isProcessing = false
		m.statusMutex.Unlock()
		m.setStatus(fmt.Sprintf("[red]❌ %v", err))
		m.switchToScreen(entities.UIScreenMenu)
		return
	}

	m.progressView.SetText(renderProgress(*entities.NewJobStatus("", m.form.Source)))
	m.switchToScreen(entities.UIScreenProcessing)
}

// cancelJob отменяет текущую задачу
func (m *Manager) cancelJob() {
	if !m.IsProcessing() || m.onCancelJob == nil {
		return
	}
	m.onCancelJob()
	m.AddLog("warning", "Запрошена отмена задачи")
}

// saveConfig проверяет и сохраняет черновик конфигурации
func (m *Manager) saveConfig() {
	draft := m.draft
	if err := draft.Validate(); err != nil {
		m.configForm.SetTitle(fmt.Sprintf("❌ %v", err))
		return
	}
	if m.onSaveConfig != nil {
		if err := m.onSaveConfig(&draft); err != nil {
			m.configForm.SetTitle(fmt.Sprintf("❌ %v", err))
			return
		}
	}

	m.statusMutex.Lock()
	m.config = draft
	m.statusMutex.Unlock()

	m.configForm.SetTitle("🔥 File Compressor - Конфигурация (ESC - выйти без сохранения)")
	m.setStatus("[green]✅ Конфигурация сохранена")
	m.switchToScreen(entities.UIScreenMenu)
	m.mainMenu.SetCurrentItem(1)
}

func (m *Manager) setStatus(text string) {
	if m.statusBar != nil {
		m.statusBar.SetText(text)
	}
}

func (m *Manager) quit() {
	if m.IsProcessing() && m.onCancelJob != nil {
		m.onCancelJob()
	}
	m.Cleanup()
	m.app.Stop()
}

// renderProgress формирует текст экрана прогресса
func renderProgress(status entities.JobStatus) string {
	displayFile := truncateFileName(filepath.Base(status.CurrentFile), MaxFileNameLength, MaxFileNameDisplay)

	phaseText := status.Phase.String()
	if status.Message != "" {
		phaseText = status.Message
	}

	text := fmt.Sprintf(
		"[yellow]⚙️  Фаза:[white] %s\n"+
			"[yellow]📁 Файл:[white] %s\n",
		phaseText,
		displayFile,
	)

	if status.OriginalSize > 0 {
		text += fmt.Sprintf("[gray]   Размер: %.2f MB[white]\n", float64(status.OriginalSize)/1024/1024)
	}

	text += fmt.Sprintf(
		"\n[cyan]📊 Прогресс:[white] %s [cyan]%.1f%%[white]\n",
		createProgressBar(status.Progress, ProgressBarWidth),
		status.Progress,
	)

	if status.TotalUnits > 0 {
		text += fmt.Sprintf("  • Обработано: [cyan]%d[white] из [cyan]%d[white]\n", status.ProcessedUnits, status.TotalUnits)
	}

	text += fmt.Sprintf("\n[yellow]⏱️  Прошло:[white] %s\n", status.FormatElapsedTime())

	switch {
	case status.Phase == entities.PhaseCancelled:
		text += "\n[yellow]⏹ Задача отменена[white]\n"
	case status.Error != nil:
		text += fmt.Sprintf("\n[red]❌ Ошибка: %v[white]\n", status.Error)
	case !status.IsComplete:
		text += "\n[yellow]X[white] - отменить  [yellow]ESC[white] - главное меню\n"
	}

	return text
}

// renderResult формирует итог задачи
func renderResult(result *entities.CompressionResult, err error) string {
	switch {
	case errors.Is(err, entities.ErrCancelled):
		return "[yellow]⏹ Задача отменена, файл не записан[white]\n\n[yellow]ESC[white] - главное меню\n"
	case err != nil:
		return fmt.Sprintf("[red]❌ Обработка завершена с ошибкой![white]\n[red]%v[white]\n\n[yellow]ESC[white] - главное меню\n", err)
	case result == nil:
		return "[green]✅ Обработка завершена[white]\n"
	}

	text := fmt.Sprintf(
		"[green]💾 Результат:[white]\n"+
			"  • Исходный размер: [cyan]%.2f MB[white]\n"+
			"  • Итоговый размер: [cyan]%.2f MB[white]\n"+
			"  • Сжатие: [green]%.1f%%[white]\n",
		float64(result.OriginalSize)/1024/1024,
		float64(result.CompressedSize)/1024/1024,
		result.CompressionRatio,
	)
	if result.Units > 0 {
		text += fmt.Sprintf("  • Страниц/изображений: [cyan]%d[white]\n", result.Units)
	}
	if !result.IsEffective() {
		text += "[yellow]⚠️ Результат не меньше исходного файла[white]\n"
	}
	text += fmt.Sprintf("\n[green]✅ Сохранено:[white] %s\n\n[yellow]ESC[white] - главное меню\n",
		truncateFileName(result.OutputFile, MaxFileNameLength, MaxFileNameDisplay))

	return text
}

// truncateFileName корректно усекает имя файла с учетом UTF-8
func truncateFileName(fileName string, maxLength, truncateAt int) string {
	runes := []rune(fileName)
	if len(runes) <= maxLength {
		return fileName
	}
	return string(runes[:truncateAt]) + "..."
}

// createProgressBar создает цветной прогресс-бар
func createProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	filled := int(math.Round(progress * float64(width) / 100))
	if filled > width {
		filled = width
	}

	const filledChar = "█"
	const emptyChar = "░"

	var color string
	switch {
	case progress < 25:
		color = "red"
	case progress < 50:
		color = "yellow"
	case progress < 75:
		color = "blue"
	default:
		color = "green"
	}

	return fmt.Sprintf("[%s]%s[gray]%s", color, strings.Repeat(filledChar, filled), strings.Repeat(emptyChar, width-filled))
}

// optionIndex индекс значения в списке вариантов, 0 если не найдено
func optionIndex(options []string, value string) int {
	value = strings.ToLower(value)
	if value == "jpg" {
		value = "jpeg"
	}
	if value == "warn" {
		value = "warning"
	}
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return 0
}

// AddLog добавляет запись в лог через канал (неблокирующе)
func (m *Manager) AddLog(level, message string) {
	var color string
	switch strings.ToLower(level) {
	case "error":
		color = "red"
	case "warning":
		color = "yellow"
	case "success":
		color = "green"
	case "debug":
		color = "gray"
	default:
		color = "white"
	}

	logLine := fmt.Sprintf("[%s]%s %s:[white] %s", color, time.Now().Format("15:04:05"), strings.ToUpper(level), tview.Escape(message))

	// При переполненном канале запись пропускается
	select {
	case m.logChan <- logLine:
	default:
	}
}

// logProcessor обрабатывает логи в отдельной горутине с батчингом
func (m *Manager) logProcessor() {
	ticker := time.NewTicker(LogFlushInterval)
	defer ticker.Stop()

	batch := make([]string, 0, 50)

	for {
		select {
		case logLine := <-m.logChan:
			batch = append(batch, logLine)
			if len(batch) >= 20 {
				m.flushLogBatch(batch)
				batch = make([]string, 0, 50)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				m.flushLogBatch(batch)
				batch = make([]string, 0, 50)
			}

		case <-m.logDone:
			return
		}
	}
}

// flushLogBatch сбрасывает батч логов в UI
func (m *Manager) flushLogBatch(batch []string) {
	m.statusMutex.Lock()
	m.logBuffer = append(m.logBuffer, batch...)
	if len(m.logBuffer) > MaxLogBufferSize {
		m.logBuffer = m.logBuffer[len(m.logBuffer)-MaxLogBufferSize:]
	}
	logText := strings.Join(m.logBuffer, "\n")
	m.statusMutex.Unlock()

	if m.logView != nil && !m.stopped() {
		m.app.QueueUpdateDraw(func() {
			m.logView.SetText(logText)
			m.logView.ScrollToEnd()
		})
	}
}

// Cleanup освобождает ресурсы менеджера (идемпотентный)
func (m *Manager) Cleanup() {
	m.logMutex.Lock()
	defer m.logMutex.Unlock()

	select {
	case <-m.logDone:
		return
	default:
		close(m.logDone)
	}
}

// stopped true после Cleanup: обновления экрана больше не ставятся в очередь
func (m *Manager) stopped() bool {
	select {
	case <-m.logDone:
		return true
	default:
		return false
	}
}

// updateLicenseFieldVisibility подсвечивает поле лицензии, когда выбран UniPDF
func (m *Manager) updateLicenseFieldVisibility() {
	if m.configForm == nil || m.configForm.GetFormItemCount() <= FormItemLicenseIndex {
		return
	}

	licenseField, ok := m.configForm.GetFormItem(FormItemLicenseIndex).(*tview.InputField)
	if !ok {
		return
	}

	if m.draft.Compression.PDFEngine == entities.EngineUniPDF {
		licenseField.SetLabel("🔑 Лицензия UniPDF (UNIDOC_LICENSE_API_KEY) - ОБЯЗАТЕЛЬНО")
		licenseField.SetFieldBackgroundColor(tcell.ColorDarkBlue)
	} else {
		licenseField.SetLabel("Лицензия UniPDF (не требуется для pdfcpu)")
		licenseField.SetFieldBackgroundColor(tcell.ColorDarkGray)
	}
}

// refreshConfigForm синхронизирует значения формы с черновиком конфигурации
func (m *Manager) refreshConfigForm() {
	if m.configForm == nil {
		return
	}

	c := m.draft
	setDropDown := func(index int, options []string, value string) {
		if dd, ok := m.configForm.GetFormItem(index).(*tview.DropDown); ok {
			dd.SetCurrentOption(optionIndex(options, value))
		}
	}
	setInput := func(index int, value string) {
		if in, ok := m.configForm.GetFormItem(index).(*tview.InputField); ok {
			in.SetText(value)
		}
	}

	setDropDown(0, engineOptions, c.Compression.PDFEngine)
	setInput(1, c.Compression.UniPDFLicenseKey)
	setInput(2, strconv.Itoa(c.Compression.Quality))
	setInput(3, strconv.Itoa(c.Compression.ColorCount))
	setDropDown(4, formatOptions, c.Compression.ImageFormat)
	setDropDown(5, formatOptions, c.Compression.RasterFormat)
	setInput(6, strconv.Itoa(c.Processing.Workers))
	setDropDown(7, logLevelOptions, c.Output.LogLevel)

	// SetCurrentOption вызывает обработчики и меняет черновик, восстанавливаем его
	m.draft = c
	m.updateLicenseFieldVisibility()
}

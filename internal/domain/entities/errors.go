package entities

import (
	"errors"
	"fmt"
)

// Категории ошибок ядра сжатия. Проверяются через errors.Is.
var (
	ErrValidation = errors.New("ошибка валидации параметров")
	ErrDecode     = errors.New("ошибка чтения исходных данных")
	ErrEncode     = errors.New("ошибка кодирования результата")
	ErrProcessing = errors.New("ошибка обработки")
	ErrIO         = errors.New("ошибка ввода-вывода")
	ErrCancelled  = errors.New("задача отменена")
)

// Доменные ошибки
var (
	ErrInvalidQuality    = errors.New("качество должно быть от 1 до 100")
	ErrInvalidResize     = errors.New("некорректные размеры изображения")
	ErrImageTooLarge     = errors.New("размеры изображения превышают допустимые")
	ErrInvalidColorCount = errors.New("количество цветов должно быть не меньше 2")
	ErrPaletteTooLarge   = errors.New("палитра PNG не может содержать больше 256 цветов")
	ErrUnsupportedFormat = errors.New("неподдерживаемый формат")
	ErrUnsupportedMode   = errors.New("неподдерживаемый режим обработки PDF")
	ErrEmptySource       = errors.New("источник не задан")
	ErrNoPages           = errors.New("в документе нет страниц")
	ErrEncrypted         = errors.New("документ зашифрован, требуется пароль")
	ErrLicenseRequired   = errors.New("UniPDF требует лицензионный ключ")
	ErrJobInFlight       = errors.New("задача для этого представления уже выполняется")
	ErrUnknownEngine     = errors.New("неизвестный движок сжатия PDF")
)

// CompressionError ошибка ядра с указанием категории и операции
type CompressionError struct {
	Kind error
	Op   string
	Err  error
}

func (e *CompressionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap позволяет errors.Is находить и категорию, и исходную причину
func (e *CompressionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) error {
	return &CompressionError{Kind: kind, Op: op, Err: err}
}

// NewValidationError создает ошибку валидации параметров
func NewValidationError(op string, err error) error { return newError(ErrValidation, op, err) }

// NewDecodeError создает ошибку разбора исходных данных
func NewDecodeError(op string, err error) error { return newError(ErrDecode, op, err) }

// NewEncodeError создает ошибку кодирования
func NewEncodeError(op string, err error) error { return newError(ErrEncode, op, err) }

// NewProcessingError создает ошибку обработки
func NewProcessingError(op string, err error) error { return newError(ErrProcessing, op, err) }

// NewIOError создает ошибку записи результата
func NewIOError(op string, err error) error { return newError(ErrIO, op, err) }

// NewCancelledError создает ошибку отмены задачи
func NewCancelledError(op string, err error) error { return newError(ErrCancelled, op, err) }

// IsCategorized проверяет, что ошибка уже несет категорию ядра
func IsCategorized(err error) bool {
	var ce *CompressionError
	return errors.As(err, &ce)
}

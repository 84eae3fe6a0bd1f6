package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
)

// Job задача, выполняемая в фоне. Должна проверять ctx между единицами работы.
type Job func(ctx context.Context) (*entities.CompressionResult, error)

// JobHandle описатель запущенной задачи
type JobHandle struct {
	ID    uuid.UUID
	Owner string

	cancel context.CancelFunc
	done   chan struct{}

	result *entities.CompressionResult
	err    error
}

// Done закрывается после завершения задачи
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel запрашивает отмену. Задача завершится на ближайшей проверке.
func (h *JobHandle) Cancel() {
	h.cancel()
}

// Wait ожидает завершения задачи и возвращает ее результат.
// Если ctx завершится раньше, возвращается ошибка ctx, а задача продолжает работу.
func (h *JobHandle) Wait(ctx context.Context) (*entities.CompressionResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatcher выполняет задачи пользователя в пуле горутин.
// Для каждого владельца (экрана UI) одновременно выполняется не больше одной задачи.
type Dispatcher struct {
	pool    *ants.Pool
	logger  repositories.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]*JobHandle
}

// NewDispatcher создает диспетчер с workers горутинами.
// timeout ограничивает время одной задачи (0 - без ограничения).
func NewDispatcher(workers int, timeout time.Duration, logger repositories.Logger) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 1
	}

	d := &Dispatcher{
		logger:   logger,
		timeout:  timeout,
		inFlight: make(map[string]*JobHandle),
	}

	// Пул блокирующий: при занятых воркерах Submit ждет освобождения
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула воркеров: %w", err)
	}
	d.pool = pool
	d.ctx, d.cancel = context.WithCancel(context.Background())

	return d, nil
}

// Submit запускает задачу владельца owner.
// Если у владельца уже есть незавершенная задача, возвращается ErrJobInFlight.
func (d *Dispatcher) Submit(owner string, job Job) (*JobHandle, error) {
	d.mu.Lock()
	if err := d.ctx.Err(); err != nil {
		d.mu.Unlock()
		return nil, entities.NewCancelledError("диспетчер остановлен", err)
	}
	if running, ok := d.inFlight[owner]; ok {
		d.mu.Unlock()
		return nil, entities.NewValidationError(owner, fmt.Errorf("%w (%s)", entities.ErrJobInFlight, running.ID))
	}

	ctx, cancel := d.jobContext()
	h := &JobHandle{
		ID:     uuid.New(),
		Owner:  owner,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	d.inFlight[owner] = h
	d.wg.Add(1)
	d.mu.Unlock()

	err := d.pool.Submit(func() {
		defer d.finish(h)
		defer func() {
			if r := recover(); r != nil {
				h.err = entities.NewProcessingError("задача", fmt.Errorf("паника: %v", r))
			}
		}()

		d.logDebug("Задача %s (%s) запущена", h.ID, owner)
		h.result, h.err = job(ctx)
		h.err = categorize("задача", h.err)
	})
	if err != nil {
		d.mu.Lock()
		delete(d.inFlight, owner)
		d.mu.Unlock()
		d.wg.Done()
		cancel()
		return nil, entities.NewProcessingError("запуск задачи", err)
	}

	return h, nil
}

func (d *Dispatcher) jobContext() (context.Context, context.CancelFunc) {
	if d.timeout > 0 {
		return context.WithTimeout(d.ctx, d.timeout)
	}
	return context.WithCancel(d.ctx)
}

// finish освобождает владельца до закрытия Done, чтобы следующая задача
// могла быть отправлена сразу после ожидания
func (d *Dispatcher) finish(h *JobHandle) {
	h.cancel()

	d.mu.Lock()
	if d.inFlight[h.Owner] == h {
		delete(d.inFlight, h.Owner)
	}
	d.mu.Unlock()

	if h.err != nil {
		d.logDebug("Задача %s завершилась с ошибкой: %v", h.ID, h.err)
	}

	close(h.done)
	d.wg.Done()
}

// SetLimits меняет число воркеров и ограничение времени для новых задач
func (d *Dispatcher) SetLimits(workers int, timeout time.Duration) {
	if workers <= 0 {
		workers = 1
	}

	d.mu.Lock()
	d.timeout = timeout
	d.mu.Unlock()

	d.pool.Tune(workers)
}

// Cap возвращает число воркеров пула
func (d *Dispatcher) Cap() int {
	return d.pool.Cap()
}

// InFlight проверяет, выполняется ли задача владельца
func (d *Dispatcher) InFlight(owner string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[owner]
	return ok
}

// Running возвращает число выполняющихся задач
func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

// Shutdown отменяет все задачи и ожидает их завершения
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.Release()
}

func (d *Dispatcher) logDebug(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(format, args...)
	}
}

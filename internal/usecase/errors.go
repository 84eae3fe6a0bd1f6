package usecases

import (
	"context"
	"errors"

	"filecompressor/internal/domain/entities"
)

// categorize гарантирует, что ошибка несет категорию ядра
func categorize(op string, err error) error {
	if err == nil || entities.IsCategorized(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return entities.NewCancelledError(op, err)
	}
	return entities.NewProcessingError(op, err)
}

func isCancelled(err error) bool {
	return errors.Is(err, entities.ErrCancelled) || errors.Is(err, context.Canceled)
}

package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/purchase-requisition/internal/application/workflow"
)

// classify keeps known error kinds and wraps everything else as a
// retryable persistence failure
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrValidation,
		ErrForbidden,
		ErrDuplicate,
		workflow.ErrNotFound,
		workflow.ErrInvalidTransition,
		workflow.ErrPersistenceFailure,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", workflow.ErrPersistenceFailure, err)
}

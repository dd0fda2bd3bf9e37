package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/camden-git/signabackend/metrics"
)

// useCase holds what every use case method shares: a logger and the
// optional metrics sink.
type useCase struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newUseCase(logger *slog.Logger, m *metrics.Metrics) useCase {
	if logger == nil {
		logger = slog.Default()
	}
	return useCase{logger: logger, metrics: m}
}

// run executes fn as the named use case. Whatever fn returns or panics with
// leaves as nil or an *Error; internal causes are logged and never returned
// in the detail.
func (u useCase) run(name string, fn func() error) error {
	start := time.Now()
	e := call(fn)
	if e == nil {
		u.metrics.ObserveUseCase(name, start, "")
		return nil
	}

	u.metrics.ObserveUseCase(name, start, e.Kind.String())
	if e.Kind == KindInternal {
		u.logger.Error("use case failed", "usecase", name, "error", e.cause)
	} else {
		u.logger.Debug("use case rejected", "usecase", name, "kind", e.Kind.String(), "detail", e.Detail)
	}
	return e
}

func call(fn func() error) (e *Error) {
	defer func() {
		if r := recover(); r != nil {
			e = internalError(fmt.Errorf("panic: %v", r))
		}
	}()
	return normalize(fn())
}

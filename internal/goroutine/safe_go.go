package goroutine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/logger"
)

// RecoveryHandler запускает фоновые задачи и перехватывает panic.
type RecoveryHandler struct {
	log func() *logrus.Logger
	wg  sync.WaitGroup
}

// NewRecoveryHandler создаёт обработчик с заданным источником логгера.
func NewRecoveryHandler(log func() *logrus.Logger) *RecoveryHandler {
	return &RecoveryHandler{log: log}
}

// SafeGo запускает горутину с обработкой panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recover("")
		fn()
	}()
}

// SafeGoWithContext то же, но задача получает контекст.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, task string, fn func(context.Context)) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recover(task)
		fn(ctx)
	}()
}

// Wait ждёт завершения запущенных задач (graceful shutdown и тесты).
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

func (rh *RecoveryHandler) recover(task string) {
	if r := recover(); r != nil {
		rh.log().WithFields(logrus.Fields{
			"task":  task,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("panic в фоновой задаче")
	}
}

// DefaultRecoveryHandler глобальный обработчик, пишет в logger.L().
var DefaultRecoveryHandler = NewRecoveryHandler(logger.L)

// SafeGo упрощённый запуск через глобальный обработчик.
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext упрощённый запуск задачи с контекстом.
func SafeGoWithContext(ctx context.Context, task string, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, task, fn)
}

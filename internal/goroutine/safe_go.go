package goroutine

import (
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/logger"
)

// RecoveryHandler перехватывает panic в фоновых горутинах и пишет её в лог.
type RecoveryHandler struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func NewRecoveryHandler(log logrus.FieldLogger) *RecoveryHandler {
	return &RecoveryHandler{log: log}
}

// SafeGo запускает горутину с обработкой panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	rh.wg.Add(1)
	go func() {
		defer rh.wg.Done()
		defer rh.recover()
		fn()
	}()
}

// Wait ждёт завершения всех запущенных горутин. Используется при остановке сервера и в тестах.
func (rh *RecoveryHandler) Wait() {
	rh.wg.Wait()
}

func (rh *RecoveryHandler) recover() {
	if r := recover(); r != nil {
		rh.log.WithField("panic", r).Errorf("panic in goroutine\n%s", debug.Stack())
	}
}

var DefaultRecoveryHandler = NewRecoveryHandler(logger.Component("goroutine"))

// SetLogger переключает обработчик по умолчанию на инициализированный логгер.
func SetLogger(log logrus.FieldLogger) {
	DefaultRecoveryHandler.log = log
}

func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

package sequencer

import "errors"

// Ошибки секвенсора.
var (
	// ErrRunFailed — run прерван ошибкой фазы или отменой.
	ErrRunFailed = errors.New("purification run failed")

	// ErrAlreadyRunning — секвенсор уже выполняет run.
	ErrAlreadyRunning = errors.New("sequencer already running")

	// ErrNoRobot — не задан драйвер робота.
	ErrNoRobot = errors.New("robot driver not configured")
)

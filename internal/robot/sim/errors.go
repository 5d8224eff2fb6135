package sim

import "errors"

// Ошибки симулятора. Соответствуют отказам, которые выдаёт реальный драйвер.
var (
	// ErrUnknownLabware — точка ссылается на незагруженную посуду.
	ErrUnknownLabware = errors.New("unknown labware")

	// ErrUnknownInstrument — неизвестная модель пипетки.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrUnknownModule — неизвестный модуль.
	ErrUnknownModule = errors.New("unknown module")

	// ErrSlotOccupied — слот деки уже занят.
	ErrSlotOccupied = errors.New("deck slot occupied")

	// ErrNoTip — операция требует надетого наконечника.
	ErrNoTip = errors.New("no tip attached")

	// ErrTipAttached — наконечник уже надет.
	ErrTipAttached = errors.New("tip already attached")

	// ErrOutOfTips — в штативах пипетки не осталось свободных наконечников.
	ErrOutOfTips = errors.New("out of tips")

	// ErrTipUnavailable — позиция штатива пуста.
	ErrTipUnavailable = errors.New("tip unavailable")

	// ErrOverCapacity — набор превышает объём наконечника.
	ErrOverCapacity = errors.New("volume exceeds tip capacity")

	// ErrInsufficientVolume — в наконечнике меньше жидкости, чем требуется.
	ErrInsufficientVolume = errors.New("insufficient volume in tip")

	// ErrInvalidVolume — неположительный объём.
	ErrInvalidVolume = errors.New("invalid volume")
)

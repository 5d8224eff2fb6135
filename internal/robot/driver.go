package robot

import (
	"context"
	"time"
)

// Protocol — контекст протокола, предоставляемый драйвером робота.
type Protocol interface {
	// LoadModule загружает модуль по имени в слот деки.
	LoadModule(ctx context.Context, name string, slot int) (MagneticModule, error)

	// LoadLabware загружает посуду в слот деки.
	LoadLabware(ctx context.Context, loadName string, slot int) (Labware, error)

	// LoadInstrument устанавливает пипетку на mount с указанными штативами
	// наконечников. Наконечники берутся из штативов в порядке перечисления.
	LoadInstrument(ctx context.Context, name string, mount Mount, tipRacks []Labware) (Pipette, error)

	// Delay приостанавливает выполнение протокола на d.
	Delay(ctx context.Context, d time.Duration) error

	// DoorClosed возвращает состояние двери робота.
	DoorClosed(ctx context.Context) (bool, error)

	// Pause приостанавливает выполнение протокола.
	Pause(ctx context.Context, msg string) error

	// Resume возобновляет выполнение протокола.
	Resume(ctx context.Context) error

	// SetRailLights включает или выключает подсветку.
	SetRailLights(ctx context.Context, on bool) error

	// Comment выводит сообщение в журнал робота.
	Comment(ctx context.Context, msg string) error
}

// MagneticModule — магнитный модуль.
type MagneticModule interface {
	// LoadLabware устанавливает посуду на модуль.
	LoadLabware(ctx context.Context, loadName string) (Labware, error)

	// Engage поднимает магниты.
	Engage(ctx context.Context) error

	// Disengage опускает магниты.
	Disengage(ctx context.Context) error
}

// Pipette — многоканальная пипетка.
type Pipette interface {
	// Name возвращает имя модели ("p300_multi").
	Name() string

	// MaxVolume возвращает максимальный объём наконечника, мкл.
	MaxVolume() float64

	// SetFlowRate задаёт скорости потока.
	SetFlowRate(r FlowRate)

	// FlowRate возвращает текущие скорости потока.
	FlowRate() FlowRate

	// SetClearance задаёт высоту по умолчанию над дном лунки.
	SetClearance(c Clearance)

	// Clearance возвращает текущую высоту по умолчанию.
	Clearance() Clearance

	// PickUpTip берёт следующий свободный наконечник из штативов пипетки.
	PickUpTip(ctx context.Context) error

	// PickUpTipFrom берёт наконечник из конкретной позиции штатива.
	PickUpTipFrom(ctx context.Context, tip Well) error

	// DropTip сбрасывает наконечник в отходы.
	DropTip(ctx context.Context) error

	// ReturnTip возвращает наконечник туда, откуда он был взят.
	ReturnTip(ctx context.Context) error

	// Aspirate набирает volume мкл в точке loc.
	// rate — множитель скорости набора (0 означает 1).
	Aspirate(ctx context.Context, volume float64, loc Location, rate float64) error

	// Dispense дозирует volume мкл в точке loc.
	Dispense(ctx context.Context, volume float64, loc Location, rate float64) error

	// BlowOut выдувает остаток. Пустая loc — в текущем положении.
	BlowOut(ctx context.Context, loc Location) error

	// Transfer переносит volume мкл из src в dst.
	// Объём больше MaxVolume делится на равные части.
	Transfer(ctx context.Context, volume float64, src, dst Location, opts TransferOptions) error

	// Home отводит пипетку в исходное положение.
	Home(ctx context.Context) error
}

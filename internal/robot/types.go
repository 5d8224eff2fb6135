package robot

import "fmt"

// Point — смещение в мм относительно точки лунки.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add складывает смещения.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Labware — загруженная на деку посуда.
type Labware struct {
	// ID — идентификатор, выданный драйвером при загрузке.
	ID string `json:"id"`

	// LoadName — имя определения посуды ("biorad_96_wellplate_200ul_pcr").
	LoadName string `json:"load_name"`

	// Slot — номер слота деки (0, если посуда стоит на модуле).
	Slot int `json:"slot"`
}

// Well возвращает ссылку на лунку.
func (l Labware) Well(name string) Well {
	return Well{Labware: l.ID, Name: name}
}

// Well — ссылка на лунку: пара (посуда, имя лунки).
type Well struct {
	Labware string `json:"labware"`
	Name    string `json:"name"`
}

// IsZero сообщает, что ссылка пустая.
func (w Well) IsZero() bool {
	return w.Labware == "" && w.Name == ""
}

// String возвращает "labware/A1".
func (w Well) String() string {
	return w.Labware + "/" + w.Name
}

// Bottom возвращает точку на высоте z мм над дном лунки.
func (w Well) Bottom(z float64) Location {
	return Location{Well: w, Point: Point{Z: z}}
}

// AtClearance возвращает точку на высоте, заданной BottomClearance пипетки.
func (w Well) AtClearance() Location {
	return Location{Well: w, FromClearance: true}
}

// Location — точка внутри лунки.
//
// Point.Z отсчитывается от дна лунки. Если FromClearance установлен,
// высоту выбирает драйвер по текущему BottomClearance пипетки,
// а Point задаёт только горизонтальное смещение.
// Пустая Location означает текущее положение пипетки.
type Location struct {
	Well          Well  `json:"well"`
	Point         Point `json:"point"`
	FromClearance bool  `json:"from_clearance,omitempty"`
}

// Move возвращает точку, сдвинутую на d.
func (l Location) Move(d Point) Location {
	l.Point = l.Point.Add(d)
	return l
}

// IsZero сообщает, что точка не задана (текущее положение пипетки).
func (l Location) IsZero() bool {
	return l.Well.IsZero()
}

// String возвращает человекочитаемое описание точки.
func (l Location) String() string {
	if l.IsZero() {
		return "current"
	}
	if l.FromClearance {
		return fmt.Sprintf("%s@clearance", l.Well)
	}
	if l.Point.X != 0 || l.Point.Y != 0 {
		return fmt.Sprintf("%s(%+.1f,%+.1f)@%.2fmm", l.Well, l.Point.X, l.Point.Y, l.Point.Z)
	}
	return fmt.Sprintf("%s@%.2fmm", l.Well, l.Point.Z)
}

// Mount — посадочное место пипетки.
type Mount string

const (
	MountLeft  Mount = "left"
	MountRight Mount = "right"
)

// FlowRate — скорости потока пипетки, мкл/с.
type FlowRate struct {
	Aspirate float64 `json:"aspirate"`
	Dispense float64 `json:"dispense"`
}

// Clearance — высота над дном лунки по умолчанию, мм.
type Clearance struct {
	Aspirate float64 `json:"aspirate"`
	Dispense float64 `json:"dispense"`
}

// DefaultClearance — значение по умолчанию (1 мм для обеих операций).
var DefaultClearance = Clearance{Aspirate: 1, Dispense: 1}

// TransferOptions — настройки переноса жидкости.
type TransferOptions struct {
	// NewTip — брать новый наконечник. Протокол всегда работает с уже
	// надетым наконечником ("never"), поэтому по умолчанию false.
	NewTip bool `json:"new_tip"`

	// BlowOut — выдуть остаток после дозирования.
	BlowOut bool `json:"blow_out"`

	// BlowOutAtDestination — выдувать в лунке назначения, а не в отходы.
	BlowOutAtDestination bool `json:"blow_out_at_destination"`
}

package sim

import (
	"fmt"
	"time"

	"github.com/shaiso/beadprep/internal/robot"
)

// Kind — тип аппаратной команды.
type Kind string

// Типы команд.
const (
	KindLoadModule     Kind = "load_module"
	KindLoadLabware    Kind = "load_labware"
	KindLoadInstrument Kind = "load_instrument"
	KindPickUpTip      Kind = "pick_up_tip"
	KindDropTip        Kind = "drop_tip"
	KindReturnTip      Kind = "return_tip"
	KindAspirate       Kind = "aspirate"
	KindDispense       Kind = "dispense"
	KindBlowOut        Kind = "blow_out"
	KindHome           Kind = "home"
	KindEngage         Kind = "engage"
	KindDisengage      Kind = "disengage"
	KindDelay          Kind = "delay"
	KindPause          Kind = "pause"
	KindResume         Kind = "resume"
	KindRailLights     Kind = "rail_lights"
	KindComment        Kind = "comment"
)

// Command — выполненная симулятором команда.
//
// Для aspirate/dispense Location содержит уже вычисленную высоту:
// если точка задавалась через AtClearance, в Location.Point.Z лежит
// текущий clearance пипетки.
type Command struct {
	Seq      int            `json:"seq"`
	Kind     Kind           `json:"kind"`
	Pipette  string         `json:"pipette,omitempty"`
	Volume   float64        `json:"volume,omitempty"`
	Location robot.Location `json:"location"`
	Rate     float64        `json:"rate,omitempty"`
	FlowRate robot.FlowRate `json:"flow_rate"`
	Tip      robot.Well     `json:"tip"`
	Duration time.Duration  `json:"duration,omitempty"`
	Message  string         `json:"message,omitempty"`

	// At — виртуальное время начала команды от старта протокола.
	At time.Duration `json:"at"`
}

// String возвращает однострочное описание команды.
func (c Command) String() string {
	switch c.Kind {
	case KindAspirate, KindDispense:
		return fmt.Sprintf("%s %s %.2f µl at %s (%.0f µl/s)", c.Pipette, c.Kind, c.Volume, c.Location, c.flow())
	case KindBlowOut:
		return fmt.Sprintf("%s blow_out at %s", c.Pipette, c.Location)
	case KindPickUpTip, KindReturnTip:
		return fmt.Sprintf("%s %s %s", c.Pipette, c.Kind, c.Tip)
	case KindDropTip, KindHome:
		return fmt.Sprintf("%s %s", c.Pipette, c.Kind)
	case KindDelay:
		return fmt.Sprintf("delay %s", c.Duration)
	default:
		if c.Message != "" {
			return fmt.Sprintf("%s %s", c.Kind, c.Message)
		}
		return string(c.Kind)
	}
}

func (c Command) flow() float64 {
	if c.Kind == KindAspirate {
		return c.FlowRate.Aspirate
	}
	return c.FlowRate.Dispense
}

// IsLiquid сообщает, что команда перемещает жидкость.
func (c Command) IsLiquid() bool {
	return c.Kind == KindAspirate || c.Kind == KindDispense
}

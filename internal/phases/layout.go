package phases

import (
	"errors"
	"fmt"

	"github.com/shaiso/beadprep/internal/robot"
)

// ErrInvalidLayout — некорректная раскладка деки.
var ErrInvalidLayout = errors.New("invalid deck layout")

// Размер деки OT-2; слот 12 занят лотком для сброса.
const (
	minSlot = 1
	maxSlot = 11
)

// DeckLayout — раскладка оборудования на деке.
//
// Значения по умолчанию (DefaultLayout) соответствуют протоколу v1.2;
// любое поле можно переопределить в файле параметров.
type DeckLayout struct {
	// MagModule — имя магнитного модуля для драйвера.
	MagModule string `json:"mag_module" yaml:"mag_module"`
	MagSlot   int    `json:"mag_slot" yaml:"mag_slot"`

	// SamplePlate — планшет с образцами, стоит на магнитном модуле.
	SamplePlate string `json:"sample_plate" yaml:"sample_plate"`

	// Reservoir — резервуар с бусинами (BeadWell) и элюирующим буфером (ElutionWell).
	Reservoir     string `json:"reservoir" yaml:"reservoir"`
	ReservoirSlot int    `json:"reservoir_slot" yaml:"reservoir_slot"`
	BeadWell      string `json:"bead_well" yaml:"bead_well"`
	ElutionWell   string `json:"elution_well" yaml:"elution_well"`

	// EthanolSlot — резервуар с этанолом в тех же колонках, что и образцы.
	EthanolSlot int `json:"ethanol_slot" yaml:"ethanol_slot"`

	// TrashSlot — пустой резервуар для отработанного этанола.
	TrashSlot int `json:"trash_slot" yaml:"trash_slot"`

	// CleanPlateSlot — чистый планшет для очищенных образцов.
	CleanPlateSlot int `json:"clean_plate_slot" yaml:"clean_plate_slot"`

	// TipRack — штатив для большой пипетки.
	TipRack string `json:"tip_rack" yaml:"tip_rack"`

	// TipRackSlots — штативы с общими наконечниками в порядке расхода.
	TipRackSlots []int `json:"tip_rack_slots" yaml:"tip_rack_slots"`

	// WashTipSlot — штатив наконечников промывки.
	WashTipSlot int `json:"wash_tip_slot" yaml:"wash_tip_slot"`

	// SmallTipRack — штатив для малой пипетки.
	SmallTipRack     string `json:"small_tip_rack" yaml:"small_tip_rack"`
	SmallTipRackSlot int    `json:"small_tip_rack_slot" yaml:"small_tip_rack_slot"`

	LargePipette string      `json:"large_pipette" yaml:"large_pipette"`
	LargeMount   robot.Mount `json:"large_mount" yaml:"large_mount"`
	SmallPipette string      `json:"small_pipette" yaml:"small_pipette"`
	SmallMount   robot.Mount `json:"small_mount" yaml:"small_mount"`
}

// DefaultLayout возвращает раскладку по умолчанию.
func DefaultLayout() DeckLayout {
	return DeckLayout{
		MagModule:        "magnetic module",
		MagSlot:          1,
		SamplePlate:      "biorad_96_wellplate_200ul_pcr",
		Reservoir:        "usascientific_96_wellplate_2.4ml_deep",
		ReservoirSlot:    2,
		BeadWell:         "A1",
		ElutionWell:      "A3",
		EthanolSlot:      5,
		TrashSlot:        6,
		CleanPlateSlot:   3,
		TipRack:          "opentrons_96_tiprack_300ul",
		TipRackSlots:     []int{8, 9, 10},
		WashTipSlot:      7,
		SmallTipRack:     "opentrons_96_tiprack_10ul",
		SmallTipRackSlot: 11,
		LargePipette:     "p300_multi",
		LargeMount:       robot.MountRight,
		SmallPipette:     "p10_multi",
		SmallMount:       robot.MountLeft,
	}
}

// WithDefaults возвращает раскладку, в которой пустые поля заполнены
// значениями по умолчанию.
func (l DeckLayout) WithDefaults() DeckLayout {
	d := DefaultLayout()

	str := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	num := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}

	str(&l.MagModule, d.MagModule)
	num(&l.MagSlot, d.MagSlot)
	str(&l.SamplePlate, d.SamplePlate)
	str(&l.Reservoir, d.Reservoir)
	num(&l.ReservoirSlot, d.ReservoirSlot)
	str(&l.BeadWell, d.BeadWell)
	str(&l.ElutionWell, d.ElutionWell)
	num(&l.EthanolSlot, d.EthanolSlot)
	num(&l.TrashSlot, d.TrashSlot)
	num(&l.CleanPlateSlot, d.CleanPlateSlot)
	str(&l.TipRack, d.TipRack)
	if len(l.TipRackSlots) == 0 {
		l.TipRackSlots = d.TipRackSlots
	}
	num(&l.WashTipSlot, d.WashTipSlot)
	str(&l.SmallTipRack, d.SmallTipRack)
	num(&l.SmallTipRackSlot, d.SmallTipRackSlot)
	str(&l.LargePipette, d.LargePipette)
	if l.LargeMount == "" {
		l.LargeMount = d.LargeMount
	}
	str(&l.SmallPipette, d.SmallPipette)
	if l.SmallMount == "" {
		l.SmallMount = d.SmallMount
	}
	return l
}

// Validate проверяет, что слоты лежат в пределах деки и не повторяются,
// а пипетки стоят на разных посадочных местах.
func (l DeckLayout) Validate() error {
	slots := map[string]int{
		"mag_slot":            l.MagSlot,
		"reservoir_slot":      l.ReservoirSlot,
		"ethanol_slot":        l.EthanolSlot,
		"trash_slot":          l.TrashSlot,
		"clean_plate_slot":    l.CleanPlateSlot,
		"wash_tip_slot":       l.WashTipSlot,
		"small_tip_rack_slot": l.SmallTipRackSlot,
	}
	for i, s := range l.TipRackSlots {
		slots[fmt.Sprintf("tip_rack_slots[%d]", i)] = s
	}

	used := make(map[int]string, len(slots))
	for name, s := range slots {
		if s < minSlot || s > maxSlot {
			return fmt.Errorf("%w: %s: slot %d out of range %d..%d", ErrInvalidLayout, name, s, minSlot, maxSlot)
		}
		if other, ok := used[s]; ok {
			return fmt.Errorf("%w: slot %d used by both %s and %s", ErrInvalidLayout, s, other, name)
		}
		used[s] = name
	}

	if len(l.TipRackSlots) == 0 {
		return fmt.Errorf("%w: at least one tip rack slot required", ErrInvalidLayout)
	}
	if l.LargeMount == l.SmallMount {
		return fmt.Errorf("%w: both pipettes on %s mount", ErrInvalidLayout, l.LargeMount)
	}
	return nil
}

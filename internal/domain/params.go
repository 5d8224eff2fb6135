package domain

import (
	"fmt"
	"math"
)

// Ограничения планшета и пипеток, от которых зависят допустимые параметры.
const (
	// WellsPerColumn — число лунок в колонке (8-канальная пипетка).
	WellsPerColumn = 8

	// MaxSamples — вместимость 96-луночного планшета.
	MaxSamples = 96

	// MaxColumns — число колонок на планшете.
	MaxColumns = MaxSamples / WellsPerColumn

	// WellCapacity — рабочий объём лунки образцов, мкл.
	WellCapacity = 200.0

	// BeadExcess — избыток бусин, который набирается сверх дозы и
	// возвращается в резервуар.
	BeadExcess = 10.0

	// ElutionLoss — объём элюата, который остаётся в лунке при перемешивании
	// и переносе.
	ElutionLoss = 3.0
)

// Значения параметров по умолчанию (протокол v1.2).
const (
	DefaultSampleCount    = 20
	DefaultSampleVolume   = 20.0
	DefaultBeadRatio      = 0.8
	DefaultWashCycleCount = 1
	DefaultElutionVolume  = 15.0
)

// Params — параметры запуска очистки.
//
// Задаются один раз перед стартом и не меняются во время выполнения.
type Params struct {
	// SampleCount — число образцов (1..96).
	SampleCount int `json:"sample_count" yaml:"sample_count"`

	// SampleVolume — объём образца в лунке, мкл.
	SampleVolume float64 `json:"sample_volume" yaml:"sample_volume"`

	// BeadRatio — отношение объёма бусин к объёму образца.
	BeadRatio float64 `json:"bead_ratio" yaml:"bead_ratio"`

	// WashCycleCount — число циклов промывки этанолом.
	WashCycleCount int `json:"wash_cycle_count" yaml:"wash_cycle_count"`

	// ElutionVolume — объём элюирующего буфера, мкл.
	ElutionVolume float64 `json:"elution_volume" yaml:"elution_volume"`
}

// DefaultParams возвращает параметры по умолчанию.
func DefaultParams() Params {
	return Params{
		SampleCount:    DefaultSampleCount,
		SampleVolume:   DefaultSampleVolume,
		BeadRatio:      DefaultBeadRatio,
		WashCycleCount: DefaultWashCycleCount,
		ElutionVolume:  DefaultElutionVolume,
	}
}

// Columns возвращает число заполненных колонок: ceil(SampleCount / 8).
func (p Params) Columns() int {
	if p.SampleCount <= 0 {
		return 0
	}
	return (p.SampleCount + WellsPerColumn - 1) / WellsPerColumn
}

// BeadVolume возвращает объём бусин на колонку.
func (p Params) BeadVolume() float64 {
	return p.SampleVolume * p.BeadRatio
}

// TotalVolume возвращает объём смеси образец + бусины.
func (p Params) TotalVolume() float64 {
	return p.BeadVolume() + p.SampleVolume
}

// BindingMixVolume — объём одного цикла перемешивания при связывании.
func (p Params) BindingMixVolume() float64 {
	return p.TotalVolume() - BeadExcess
}

// ElutionMixVolume — объём перемешивания и переноса элюата.
func (p Params) ElutionMixVolume() float64 {
	return p.ElutionVolume - ElutionLoss
}

// Validate проверяет параметры.
//
// Кроме диапазонов входных значений проверяются производные объёмы:
// каждый из них должен быть положительным, а смесь должна помещаться в лунку.
func (p Params) Validate() error {
	if p.SampleCount < 1 || p.SampleCount > MaxSamples {
		return NewValidationError("sample_count",
			fmt.Sprintf("must be in 1..%d, got %d", MaxSamples, p.SampleCount), ErrInvalidParams)
	}
	if !positive(p.SampleVolume) {
		return NewValidationError("sample_volume", "must be > 0", ErrInvalidParams)
	}
	if !positive(p.BeadRatio) {
		return NewValidationError("bead_ratio", "must be > 0", ErrInvalidParams)
	}
	if p.WashCycleCount < 1 {
		return NewValidationError("wash_cycle_count",
			fmt.Sprintf("must be >= 1, got %d", p.WashCycleCount), ErrInvalidParams)
	}
	if !positive(p.ElutionVolume) {
		return NewValidationError("elution_volume", "must be > 0", ErrInvalidParams)
	}

	if p.BindingMixVolume() <= 0 {
		return NewValidationError("sample_volume",
			fmt.Sprintf("sample + bead volume must exceed %.0f µl, got %.2f", BeadExcess, p.TotalVolume()),
			ErrInvalidParams)
	}
	if p.TotalVolume() > WellCapacity {
		return NewValidationError("sample_volume",
			fmt.Sprintf("sample + bead volume %.2f µl exceeds well capacity %.0f µl", p.TotalVolume(), WellCapacity),
			ErrInvalidParams)
	}
	if p.ElutionMixVolume() <= 0 {
		return NewValidationError("elution_volume",
			fmt.Sprintf("must exceed %.0f µl, got %.2f", ElutionLoss, p.ElutionVolume), ErrInvalidParams)
	}
	if p.ElutionVolume > WellCapacity {
		return NewValidationError("elution_volume",
			fmt.Sprintf("exceeds well capacity %.0f µl", WellCapacity), ErrInvalidParams)
	}

	return nil
}

// ColumnWell возвращает имя верхней лунки колонки (1 → "A1").
// Многоканальная пипетка адресуется по лунке ряда A.
func ColumnWell(column int) string {
	return fmt.Sprintf("A%d", column)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

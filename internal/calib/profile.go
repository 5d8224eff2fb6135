package calib

import (
	"errors"
	"fmt"
	"math"
)

// Ошибки калибровки.
var (
	// ErrProfileNotFound — профиль не зарегистрирован.
	ErrProfileNotFound = errors.New("calibration profile not found")

	// ErrInvalidProfile — коэффициенты профиля некорректны.
	ErrInvalidProfile = errors.New("invalid calibration profile")
)

// DefaultProfileName — профиль 200 мкл ПЦР-планшета Bio-Rad.
const DefaultProfileName = "biorad_96_wellplate_200ul_pcr"

// Profile — коэффициенты модели высоты жидкости для одного типа планшета.
type Profile struct {
	Name   string  `json:"name" yaml:"name"`
	A      float64 `json:"a" yaml:"a"`
	B      float64 `json:"b" yaml:"b"`
	C      float64 `json:"c" yaml:"c"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// Biorad200 возвращает профиль планшета biorad_96_wellplate_200ul_pcr.
func Biorad200() Profile {
	return Profile{
		Name:   DefaultProfileName,
		A:      2.5,
		B:      4.9,
		C:      1.42,
		Margin: 1,
	}
}

// Height возвращает высоту дозирования (мм над дном лунки) для суммарного
// объёма v (мкл), уже находящегося в лунке.
func Height(p Profile, v float64) float64 {
	if v < 0 {
		v = 0
	}
	return (-p.A + math.Sqrt(p.A*p.A+p.B+p.C*v)) + p.Margin
}

// Height — то же, что calib.Height(p, v).
func (p Profile) Height(v float64) float64 {
	return Height(p, v)
}

// Validate проверяет, что модель определена для всех V >= 0
// и высота не убывает с ростом объёма.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	if p.A*p.A+p.B < 0 {
		return fmt.Errorf("%w: %s: negative radicand at zero volume", ErrInvalidProfile, p.Name)
	}
	if p.C <= 0 {
		return fmt.Errorf("%w: %s: c must be > 0", ErrInvalidProfile, p.Name)
	}
	if p.Margin < 0 {
		return fmt.Errorf("%w: %s: margin must be >= 0", ErrInvalidProfile, p.Name)
	}
	return nil
}

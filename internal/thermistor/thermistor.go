// Package thermistor converts oversampled ADC values from an NTC thermistor
// voltage divider into resistance and temperature using the B-parameter form
// of the Steinhart-Hart equation.
package thermistor

import "math"

const (
	// AdcMax is the full-scale reading of the 10-bit ADC.
	AdcMax = 1023.0
	// KelvinOffset is 0 °C in Kelvin.
	KelvinOffset = 273.15
)

// Calibration holds the constants of the divider and the thermistor.
type Calibration struct {
	SeriesResistorOhms      float64 `json:"series_resistor_ohms"`      // fixed upper leg of the divider
	ReferenceResistanceOhms float64 `json:"reference_resistance_ohms"` // R0, thermistor resistance at T0
	ReferenceTemperatureC   float64 `json:"reference_temperature_c"`   // T0 in °C
	BCoefficient            float64 `json:"b_coefficient"`
}

// Reading is one channel's conversion result. Values are never mutated.
type Reading struct {
	RawAdc         float64 `json:"raw_adc"`
	ResistanceOhms float64 `json:"resistance_ohms"`
	TemperatureC   float64 `json:"temperature_c"`
}

// TemperatureF is the reading in Fahrenheit, for display.
func (r Reading) TemperatureF() float64 {
	return CtoF(r.TemperatureC)
}

// Model evaluates a Calibration. T0 is kept in Kelvin, converted once in NewModel.
type Model struct {
	rs  float64
	r0  float64
	t0K float64
	b   float64
}

// NewModel prepares a model from calibration constants.
func NewModel(c Calibration) Model {
	return Model{
		rs:  c.SeriesResistorOhms,
		r0:  c.ReferenceResistanceOhms,
		t0K: c.ReferenceTemperatureC + KelvinOffset,
		b:   c.BCoefficient,
	}
}

// Calibration returns the constants the model was built from.
func (m Model) Calibration() Calibration {
	return Calibration{
		SeriesResistorOhms:      m.rs,
		ReferenceResistanceOhms: m.r0,
		ReferenceTemperatureC:   m.t0K - KelvinOffset,
		BCoefficient:            m.b,
	}
}

// Resistance solves the divider for the thermistor (lower leg).
// raw must be inside (0, AdcMax); the rails are not guarded here.
func (m Model) Resistance(raw float64) float64 {
	return m.rs / ((AdcMax / raw) - 1.0)
}

// Celsius applies 1/T = 1/T0 + ln(R/R0)/B.
func (m Model) Celsius(resistance float64) float64 {
	inv := 1.0/m.t0K + math.Log(resistance/m.r0)/m.b
	return 1.0/inv - KelvinOffset
}

// ToReading maps a raw ADC value to resistance and temperature.
func (m Model) ToReading(raw float64) Reading {
	r := m.Resistance(raw)
	return Reading{
		RawAdc:         raw,
		ResistanceOhms: r,
		TemperatureC:   m.Celsius(r),
	}
}

// ResistanceFor is the inverse of Celsius: R = R0 * exp(B * (1/T - 1/T0)).
func (m Model) ResistanceFor(tempC float64) float64 {
	return m.r0 * math.Exp(m.b*(1.0/(tempC+KelvinOffset)-1.0/m.t0K))
}

// RawFor is the ADC value the divider produces at tempC.
func (m Model) RawFor(tempC float64) float64 {
	r := m.ResistanceFor(tempC)
	return AdcMax * r / (r + m.rs)
}

// InRange reports whether raw is strictly between the ADC rails, the domain
// where Resistance is finite and positive.
func InRange(raw float64) bool {
	return raw > 0 && raw < AdcMax
}

// CtoF converts Celsius to Fahrenheit.
func CtoF(c float64) float64 {
	return c*1.8 + 32
}

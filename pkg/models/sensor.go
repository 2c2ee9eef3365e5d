package models

import "time"

// FeatureCount is the length of the model input vector.
const FeatureCount = 9

// FeatureVector is the fixed-order model input:
// water_level, flow_rate, voltage, current, temperature,
// inflow_rate, outflow_rate, is_special_day, has_inflow.
type FeatureVector [FeatureCount]float64

// SensorSnapshot is one reading of the tank and pump sensors.
type SensorSnapshot struct {
	WaterLevel   float64   `json:"water_level"`
	FlowRate     float64   `json:"flow_rate"`
	Voltage      float64   `json:"voltage"`
	Current      float64   `json:"current"`
	Temperature  float64   `json:"temperature"`
	InflowRate   float64   `json:"inflow_rate"`
	OutflowRate  float64   `json:"outflow_rate"`
	IsSpecialDay bool      `json:"is_special_day"`
	HasInflow    bool      `json:"has_inflow"`
	ReadAt       time.Time `json:"read_at"`
}

func (s SensorSnapshot) Features() FeatureVector {
	return FeatureVector{
		s.WaterLevel,
		s.FlowRate,
		s.Voltage,
		s.Current,
		s.Temperature,
		s.InflowRate,
		s.OutflowRate,
		boolToFloat(s.IsSpecialDay),
		boolToFloat(s.HasInflow),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

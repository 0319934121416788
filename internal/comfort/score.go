package comfort

import "math"

// Params are the six tunables of the discomfort score.
type Params struct {
	ComfortTemperature   float64 `json:"comfort_temperature"`
	ComfortHumidity      float64 `json:"comfort_humidity"`
	TemperatureWeight    float64 `json:"temperature_weight"`
	HumidityWeight       float64 `json:"humidity_weight"`
	TemperatureThreshold float64 `json:"temperature_threshold"`
	HumidityThreshold    float64 `json:"humidity_threshold"`
}

const (
	muggyHumidity = 75.0
	dryHumidity   = 40.0
	dryRelief     = 0.3
)

// Score turns a reading into a single discomfort number. Higher is worse.
// The result is truncated (not rounded) to two decimals.
func Score(temperature, humidity float64, p Params) float64 {
	feelsLike := HeatIndex(temperature, humidity)

	s := p.TemperatureWeight * (feelsLike - p.ComfortTemperature)
	if feelsLike > p.TemperatureThreshold {
		d := feelsLike - p.TemperatureThreshold
		s += d * d
	}

	s += p.HumidityWeight * (humidity - p.ComfortHumidity)
	if humidity > p.HumidityThreshold {
		s += math.Pow(humidity-p.HumidityThreshold, 1.5)
	}

	if humidity > muggyHumidity && temperature > p.ComfortTemperature {
		s += (temperature - p.ComfortTemperature) * (humidity - muggyHumidity) / 25
	}
	if humidity < dryHumidity && temperature > p.ComfortTemperature {
		s *= 1 - dryRelief*(dryHumidity-humidity)/dryHumidity
	}

	return math.Trunc(s*100) / 100
}

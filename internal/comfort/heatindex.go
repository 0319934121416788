package comfort

import "math"

const (
	linearRegimeLimit   = 26.0
	humidCorrectionFrom = 70.0
	humidCorrectionRate = 0.04
)

// HeatIndex returns the apparent ("feels like") temperature in °C.
// Below 26 °C it stays close to the dry-bulb reading; from 26 °C up it follows
// the NWS Rothfusz regression, never dropping below the low regime value.
func HeatIndex(temperature, humidity float64) float64 {
	linear := temperature
	if humidity > humidCorrectionFrom {
		linear += (humidity - humidCorrectionFrom) * humidCorrectionRate
	}
	if temperature < linearRegimeLimit {
		return linear
	}

	tf := temperature*9/5 + 32
	hi := rothfusz(tf, humidity)
	return math.Max(linear, (hi-32)*5/9)
}

func rothfusz(t, rh float64) float64 {
	hi := -42.379 +
		2.04901523*t +
		10.14333127*rh -
		0.22475541*t*rh -
		0.00683783*t*t -
		0.05481717*rh*rh +
		0.00122874*t*t*rh +
		0.00085282*t*rh*rh -
		0.00000199*t*t*rh*rh

	if rh < 13 && math.Abs(t-95) <= 17 {
		hi -= ((13 - rh) / 4) * math.Sqrt((17-math.Abs(t-95))/17)
	}
	if rh > 85 && t >= 80 && t <= 87 {
		hi += ((rh - 85) / 10) * ((87 - t) / 5)
	}
	return hi
}

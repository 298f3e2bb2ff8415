// Package exposure turns a target exposure value (ISO x seconds) into concrete camera settings
package exposure

// Setting is a concrete camera setting
type Setting struct {
	Exposure float64 // seconds
	ISO      float64
}

// Product returns ISO x exposure seconds
func (s Setting) Product() float64 { return s.ISO * s.Exposure }

// Solve maps a target product to (exposure, iso) under the device cap maxExposure.
// It stays at minISO while the cap allows and otherwise holds the exposure at the cap
// and raises ISO by the minimum needed. minISO and maxExposure must be positive.
func Solve(minISO, maxExposure, target float64) Setting {
	iso := minISO
	if target > minISO*maxExposure {
		iso = target / maxExposure
	}
	return Setting{Exposure: target / iso, ISO: iso}
}

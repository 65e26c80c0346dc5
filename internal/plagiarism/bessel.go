package plagiarism

import "math"

// besselI is the modified Bessel function of the first kind I_n(x) for integer
// order n >= 0, evaluated by its power series. Arguments used by the spectral
// filter are small, so the series converges in a handful of terms.
func besselI(n int, x float64) float64 {
	if n < 0 {
		n = -n
	}
	half := x / 2
	if half == 0 {
		if n == 0 {
			return 1
		}
		return 0
	}
	lgamma, _ := math.Lgamma(float64(n) + 1)
	term := math.Exp(float64(n)*math.Log(math.Abs(half)) - lgamma)
	if half < 0 && n%2 == 1 {
		term = -term
	}

	sum := term
	q := half * half
	for k := 1; k < 200; k++ {
		term *= q / (float64(k) * float64(k+n))
		sum += term
		if math.Abs(term) <= 1e-17*math.Abs(sum) {
			break
		}
	}
	return sum
}

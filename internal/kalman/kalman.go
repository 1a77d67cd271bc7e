// Package kalman implements the per-axis three-state attitude filter.
//
// State is [angle, rate, drift]; the angle integrates (rate - drift) over a
// fixed step. Two measurements are fused each step: an absolute angle and a
// rate. All arithmetic is float32.
package kalman

// Fixed filter constants.
const (
	DT  float32 = 0.01
	Q00 float32 = 0.1
	Q11 float32 = 10.0
	Q22 float32 = 0.001
	R00 float32 = 1000.0
	R11 float32 = 1000.0
)

// Filter holds one axis of state. The zero value is not ready; use New or Reset.
//
// Not safe for concurrent use.
type Filter struct {
	X [3]float32
	P [3][3]float32
}

func New() *Filter {
	f := &Filter{}
	f.Reset()
	return f
}

// Reset restores x = 0 and P = diag(1000, 1000, 1000).
func (f *Filter) Reset() {
	f.X = [3]float32{}
	f.P = [3][3]float32{
		{1000, 0, 0},
		{0, 1000, 0},
		{0, 0, 1000},
	}
}

// Angle is the current angle estimate.
func (f *Filter) Angle() float32 { return f.X[0] }

// Predict returns the propagated state and covariance without mutating f.
func (f *Filter) Predict() (x [3]float32, p [3][3]float32) {
	P := &f.P

	x[0] = f.X[0] + (f.X[1]-f.X[2])*DT
	x[1] = f.X[1]
	x[2] = f.X[2]

	ap0 := P[0][0] + DT*(P[1][0]-P[2][0])
	ap1 := P[0][1] + DT*(P[1][1]-P[2][1])
	ap2 := P[0][2] + DT*(P[1][2]-P[2][2])

	p[0][0] = ap0 + DT*(ap1-ap2) + Q00
	p[0][1] = ap1
	p[0][2] = ap2
	p[1][0] = P[1][0] + DT*(P[1][1]-P[1][2])
	p[1][1] = P[1][1] + Q11
	p[1][2] = P[1][2]
	p[2][0] = P[2][0] + DT*(P[2][1]-P[2][2])
	p[2][1] = P[2][1]
	p[2][2] = P[2][2] + Q22
	return x, p
}

// Correct fuses the angle measurement z1 and rate measurement z2 into the
// predicted state and stores the result in f.
//
// The P[1][*] row is updated with gain K11 in both terms; the gains R and Q
// were tuned against that update. The textbook form uses K10 in the first term.
func (f *Filter) Correct(x [3]float32, p [3][3]float32, z1, z2 float32) {
	s00 := p[0][0] + R00
	s01 := p[0][1]
	s10 := p[1][0]
	s11 := p[1][1] + R11
	det := s00*s11 - s01*s10

	k00 := (p[0][0]*s11 - p[0][1]*s10) / det
	k01 := (p[0][1]*s00 - p[0][0]*s01) / det
	k10 := (p[1][0]*s11 - p[1][1]*s10) / det
	k11 := (p[1][1]*s00 - p[1][0]*s01) / det
	k20 := (p[2][0]*s11 - p[2][1]*s10) / det
	k21 := (p[2][1]*s00 - p[2][0]*s01) / det

	y0 := z1 - x[0]
	y1 := z2 - x[1]
	f.X[0] = x[0] + k00*y0 + k01*y1
	f.X[1] = x[1] + k10*y0 + k11*y1
	f.X[2] = x[2] + k20*y0 + k21*y1

	f.P[0][0] = (1-k00)*p[0][0] - k01*p[1][0]
	f.P[0][1] = (1-k00)*p[0][1] - k01*p[1][1]
	f.P[0][2] = (1-k00)*p[0][2] - k01*p[1][2]
	f.P[1][0] = (1-k11)*p[1][0] - k11*p[0][0]
	f.P[1][1] = (1-k11)*p[1][1] - k11*p[0][1]
	f.P[1][2] = (1-k11)*p[1][2] - k11*p[0][2]
	f.P[2][0] = p[2][0] - k20*p[0][0] - k21*p[1][0]
	f.P[2][1] = p[2][1] - k20*p[0][1] - k21*p[1][1]
	f.P[2][2] = p[2][2] - k20*p[0][2] - k21*p[1][2]
}

// Step runs one predict/correct cycle and returns the new angle.
func (f *Filter) Step(z1, z2 float32) float32 {
	x, p := f.Predict()
	f.Correct(x, p, z1, z2)
	return f.X[0]
}

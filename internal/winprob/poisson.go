package winprob

import (
	"math"
	"math/rand/v2"
)

// Below this rate the multiplication method is cheaper than rejection.
const ptrsThreshold = 10.0

// poisson draws one Poisson(lam) variate.
func poisson(rnd *rand.Rand, lam float64) int {
	if lam <= 0 {
		return 0
	}
	if lam >= ptrsThreshold {
		return poissonPTRS(rnd, lam)
	}
	return poissonMult(rnd, lam)
}

// fillPoisson writes len(dst) independent Poisson(lam) variates into dst.
func fillPoisson(rnd *rand.Rand, lam float64, dst []int) {
	if lam <= 0 {
		clear(dst)
		return
	}
	if lam >= ptrsThreshold {
		p := newPTRS(lam)
		for i := range dst {
			dst[i] = p.draw(rnd)
		}
		return
	}
	limit := math.Exp(-lam)
	for i := range dst {
		dst[i] = multDraw(rnd, limit)
	}
}

func poissonMult(rnd *rand.Rand, lam float64) int {
	return multDraw(rnd, math.Exp(-lam))
}

func multDraw(rnd *rand.Rand, limit float64) int {
	k := 0
	prod := 1.0
	for {
		prod *= rnd.Float64()
		if prod <= limit {
			return k
		}
		k++
	}
}

// ptrs holds the constants of Hörmann's transformed rejection sampler.
type ptrs struct {
	lam      float64
	logLam   float64
	a        float64
	b        float64
	invAlpha float64
	vr       float64
}

func newPTRS(lam float64) ptrs {
	slam := math.Sqrt(lam)
	b := 0.931 + 2.53*slam
	return ptrs{
		lam:      lam,
		logLam:   math.Log(lam),
		a:        -0.059 + 0.02483*b,
		b:        b,
		invAlpha: 1.1239 + 1.1328/(b-3.4),
		vr:       0.9277 - 3.6224/(b-2),
	}
}

func poissonPTRS(rnd *rand.Rand, lam float64) int {
	p := newPTRS(lam)
	return p.draw(rnd)
}

func (p ptrs) draw(rnd *rand.Rand) int {
	for {
		u := rnd.Float64() - 0.5
		v := rnd.Float64()
		us := 0.5 - math.Abs(u)
		if us <= 0 {
			continue
		}
		k := math.Floor((2*p.a/us+p.b)*u + p.lam + 0.43)
		if us >= 0.07 && v <= p.vr {
			return int(k)
		}
		if k < 0 || (us < 0.013 && v > us) {
			continue
		}
		lg, _ := math.Lgamma(k + 1)
		if math.Log(v)+math.Log(p.invAlpha)-math.Log(p.a/(us*us)+p.b) <= -p.lam+k*p.logLam-lg {
			return int(k)
		}
	}
}

package volatility

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"CropVol/internal/domain/models"
)

const (
	// lnSigmaMax caps ln(sigma^2) so exp never overflows.
	lnSigmaMax = 709.782712893384

	varianceFloor  = 1e-12
	varianceBound  = 1e6
	backcastDecay  = 0.94
	backcastLags   = 75
	numParams      = 5
	penaltyNegLogL = 1e12
)

var (
	absNormalMean = math.Sqrt(2 / math.Pi)
	logTwoPi      = math.Log(2 * math.Pi)
	omegaSpan     = math.Log(1e4)
)

// Starting-value grid searched before the simplex run.
var (
	startAlphas = []float64{0.01, 0.05, 0.1, 0.2}
	startGammas = []float64{-0.1, 0, 0.1}
	startBetas  = []float64{0.5, 0.7, 0.9, 0.98}
)

// problem holds one region's returns plus the quantities fixed for the whole fit:
// the variance scale, the variance clamp and the backcast of ln(sigma^2).
type problem struct {
	returns    []float64
	mean       float64
	lnv        float64
	lower      float64
	upper      float64
	lnBackcast float64

	resid  []float64
	sigma2 []float64
}

func newProblem(returns []float64) *problem {
	n := len(returns)
	p := &problem{
		returns: returns,
		mean:    stat.Mean(returns, nil),
		resid:   make([]float64, n),
		sigma2:  make([]float64, n),
	}

	sq := make([]float64, n)
	for i, r := range returns {
		e := r - p.mean
		sq[i] = e * e
	}
	v := math.Max(stat.Mean(sq, nil), varianceFloor)
	p.lnv = math.Log(v)
	p.lower = v / varianceBound
	p.upper = v * varianceBound

	tau := n
	if tau > backcastLags {
		tau = backcastLags
	}
	w := make([]float64, tau)
	for i := range w {
		w[i] = math.Pow(backcastDecay, float64(i))
	}
	floats.Scale(1/floats.Sum(w), w)
	bc := floats.Dot(w, sq[:tau])
	p.lnBackcast = math.Log(math.Max(bc, varianceFloor))
	return p
}

// variance runs the EGARCH(1,1,1) recursion for par and returns sigma^2 in p.sigma2.
//
//	ln s2_t = omega + alpha(|z_{t-1}| - sqrt(2/pi)) + gamma z_{t-1} + beta ln s2_{t-1}
//
// At t = 0 the lagged log variance is the backcast and the shock terms are absent.
func (p *problem) variance(par models.EGARCHParams) []float64 {
	var prevLn, prevZ float64
	for t, r := range p.returns {
		e := r - par.Mu
		p.resid[t] = e

		ln := par.Omega
		if t == 0 {
			ln += par.Beta * p.lnBackcast
		} else {
			ln += par.Alpha*(math.Abs(prevZ)-absNormalMean) + par.Gamma*prevZ + par.Beta*prevLn
		}
		if ln > lnSigmaMax {
			ln = lnSigmaMax
		}

		s2 := math.Exp(ln)
		switch {
		case s2 < p.lower:
			s2 = p.lower
		case s2 > p.upper:
			s2 = p.upper + math.Log(s2/p.upper)
		}
		p.sigma2[t] = s2
		prevLn = math.Log(s2)
		prevZ = e / math.Sqrt(s2)
	}
	return p.sigma2
}

// logLikelihood is the Gaussian log-likelihood of the returns under par.
func (p *problem) logLikelihood(par models.EGARCHParams) float64 {
	s2 := p.variance(par)
	ll := 0.0
	for t, e := range p.resid {
		ll += logTwoPi + math.Log(s2[t]) + e*e/s2[t]
	}
	return -0.5 * ll
}

// decode maps the unconstrained optimizer vector onto bounded parameters:
// omega stays within ln(v) +/- ln(1e4) and beta within (0, 1).
func (p *problem) decode(x []float64) models.EGARCHParams {
	return models.EGARCHParams{
		Mu:    x[0],
		Omega: p.lnv + omegaSpan*math.Tanh(x[1]),
		Alpha: x[2],
		Gamma: x[3],
		Beta:  1 / (1 + math.Exp(-x[4])),
	}
}

func (p *problem) encode(par models.EGARCHParams) []float64 {
	const edge = 1 - 1e-9
	u := (par.Omega - p.lnv) / omegaSpan
	u = math.Max(-edge, math.Min(edge, u))
	b := math.Max(1e-9, math.Min(edge, par.Beta))
	return []float64{par.Mu, math.Atanh(u), par.Alpha, par.Gamma, math.Log(b / (1 - b))}
}

// startingValues searches the fixed grid and returns the encoded best point
// together with its log-likelihood.
func (p *problem) startingValues() ([]float64, float64) {
	var best []float64
	bestLL := math.Inf(-1)
	for _, a := range startAlphas {
		for _, g := range startGammas {
			for _, b := range startBetas {
				x := p.encode(models.EGARCHParams{
					Mu:    p.mean,
					Omega: p.lnv * (1 - b),
					Alpha: a,
					Gamma: g,
					Beta:  b,
				})
				ll := p.logLikelihood(p.decode(x))
				if math.IsNaN(ll) {
					ll = math.Inf(-1)
				}
				if best == nil || ll > bestLL {
					best, bestLL = x, ll
				}
			}
		}
	}
	return best, bestLL
}

// best decodes the optimizer result and falls back to the starting point when
// the result is not at least as likely. keptStart reports the fallback.
func (p *problem) best(x, x0 []float64, startLL float64) (par models.EGARCHParams, ll float64, keptStart bool) {
	par = p.decode(x)
	ll = p.logLikelihood(par)
	if ll >= startLL {
		return par, ll, false
	}
	return p.decode(x0), startLL, true
}

// objective is the negative log-likelihood with non-finite values replaced by a penalty.
func (p *problem) objective(x []float64) float64 {
	ll := p.logLikelihood(p.decode(x))
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return penaltyNegLogL
	}
	return -ll
}

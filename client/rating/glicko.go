package rating

import "math"

const (
	glickoScale = 173.7178
	tau         = 0.5
	epsilon     = 1e-6
)

// Glicko is a Glicko-2 rating on the public 1500 scale.
type Glicko struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
	Games      int     `json:"games"`
}

func NewGlicko() Glicko { return Glicko{Rating: 1500, RD: 350, Volatility: 0.06} }

func (p Glicko) mu() float64  { return (p.Rating - 1500) / glickoScale }
func (p Glicko) phi() float64 { return p.RD / glickoScale }

func gFactor(phi float64) float64 { return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi)) }

func expected(mu, muOpp, phiOpp float64) float64 {
	return 1 / (1 + math.Exp(-gFactor(phiOpp)*(mu-muOpp)))
}

// Update rates one game against opp, who is read as of before the game.
// s is the score in [0,1].
func (p *Glicko) Update(opp Glicko, s float64) {
	mu, phi, sigma := p.mu(), p.phi(), p.Volatility
	g := gFactor(opp.phi())
	e := expected(mu, opp.mu(), opp.phi())

	v := 1 / (g * g * e * (1 - e))
	delta := v * g * (s - e)

	sigma = newVolatility(phi, sigma, v, delta)
	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiNew := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muNew := mu + phiNew*phiNew*g*(s-e)

	p.Rating = muNew*glickoScale + 1500
	p.RD = phiNew * glickoScale
	p.Volatility = sigma
	p.Games++
}

// newVolatility solves the volatility equation with the Illinois method.
func newVolatility(phi, sigma, v, delta float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex
		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/(tau*tau)
	}

	lo := a
	var hi float64
	if delta*delta > phi*phi+v {
		hi = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 && k < 1e6 {
			k++
		}
		hi = a - k*tau
	}
	fLo, fHi := f(lo), f(hi)
	for i := 0; i < 100 && math.Abs(hi-lo) > epsilon; i++ {
		c := lo + (lo-hi)*fLo/(fHi-fLo)
		fc := f(c)
		if math.IsNaN(fc) || math.IsInf(fc, 0) {
			break
		}
		if fc*fHi <= 0 {
			lo, fLo = hi, fHi
		} else {
			fLo /= 2
		}
		hi, fHi = c, fc
	}
	return math.Exp(lo / 2)
}

package search

// The three sigmas differ in magnitude by orders of magnitude (a typical
// sigma_vel is 0.6, a typical sigma_div is 3000), so the optimizer works in
// a rescaled "problem space" where one unit means roughly the same amount
// of change along every axis.
const (
	velScale = 1000.0
	divScale = 1.0
	accScale = 10000.0
)

// penaltyCost is returned for candidates with non-positive velocity or
// divergence sigmas. Legitimate costs are negated normalized correlations
// in [-1, 1], so any large finite value keeps the simplex away.
const penaltyCost = 100.0

// Sigma is a hyperparameter vector in physical units. Acc <= 0 means the
// acceleration prior is disabled.
type Sigma struct {
	Vel float64
	Div float64
	Acc float64
}

func motionToProblem2(sigVel, sigDiv float64) []float64 {
	return []float64{sigVel * velScale, sigDiv * divScale}
}

func problemToMotion2(x []float64) (sigVel, sigDiv float64) {
	return x[0] / velScale, x[1] / divScale
}

func motionToProblem3(s Sigma) []float64 {
	return []float64{s.Vel * velScale, s.Div * divScale, s.Acc * accScale}
}

func problemToMotion3(x []float64) Sigma {
	return Sigma{Vel: x[0] / velScale, Div: x[1] / divScale, Acc: x[2] / accScale}
}

// twoParamProblem evaluates (sigma_vel, sigma_div) candidates with the
// acceleration sigma held fixed. Cost is the negated cross-validated score:
// the optimizer minimizes, the score is better when higher.
type twoParamProblem struct {
	coord  *Coordinator
	sigAcc float64
}

func (p *twoParamProblem) cost(x []float64) float64 {
	sigVel, sigDiv := problemToMotion2(x)
	if sigVel <= 0 || sigDiv <= 0 {
		return penaltyCost
	}

	scores, err := p.coord.EvaluateParams([]Sigma{{Vel: sigVel, Div: sigDiv, Acc: p.sigAcc}})
	if err != nil {
		return penaltyCost
	}

	p.coord.logEvaluation(Sigma{Vel: sigVel, Div: sigDiv, Acc: p.sigAcc}, scores[0])

	return -scores[0]
}

// threeParamProblem evaluates full (sigma_vel, sigma_div, sigma_acc)
// candidates. A non-positive acceleration sigma is a valid point meaning
// "no acceleration prior", so only the other two axes are penalized.
type threeParamProblem struct {
	coord *Coordinator
}

func (p *threeParamProblem) cost(x []float64) float64 {
	s := problemToMotion3(x)
	if s.Vel <= 0 || s.Div <= 0 {
		return penaltyCost
	}

	scores, err := p.coord.EvaluateParams([]Sigma{s})
	if err != nil {
		return penaltyCost
	}

	p.coord.logEvaluation(s, scores[0])

	return -scores[0]
}

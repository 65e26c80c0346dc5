package plagiarism

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ProNE default parameters
const (
	DefaultProNEStep     = 10
	DefaultProNEMu       = 0.2
	DefaultProNETheta    = 0.5
	DefaultProNEExponent = 0.75
)

var errSVDNotConverged = errors.New("svd did not converge")

// ProNE is a fast proximity embedding: a sparse matrix factorization of the
// adjacency followed by spectral propagation with a Chebyshev-expanded
// band-pass filter. Output width is bounded by the spectral rank, i.e.
// min(nodes, dim).
type ProNE struct {
	Step     int     // Chebyshev expansion order
	Mu       float64 // spectral shift
	Theta    float64 // Bessel coefficient argument
	Exponent float64 // negative-sampling exponent
}

func NewProNE() *ProNE {
	return &ProNE{
		Step:     DefaultProNEStep,
		Mu:       DefaultProNEMu,
		Theta:    DefaultProNETheta,
		Exponent: DefaultProNEExponent,
	}
}

// Fit implements Algorithm
func (p *ProNE) Fit(g *TokenGraph, dim int) ([][]float64, error) {
	if g.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}

	adj := adjacencyMatrix(g)

	features, err := p.factorize(adj, dim)
	if err != nil {
		return nil, err
	}

	emb, err := p.propagate(adj, features)
	if err != nil {
		return nil, err
	}

	return denseRows(emb), nil
}

// adjacencyMatrix builds the binary n×n adjacency in node order
func adjacencyMatrix(g *TokenGraph) *mat.Dense {
	n := g.NodeCount()
	adj := mat.NewDense(n, n, nil)
	g.forEachEdge(func(src, dst int) {
		adj.Set(src, dst, 1)
	})
	return adj
}

// factorize builds the shifted log-proximity matrix and returns its truncated SVD features
func (p *ProNE) factorize(adj *mat.Dense, dim int) (*mat.Dense, error) {
	n, _ := adj.Dims()
	c1 := rowNormalizeL1(adj)

	// Negative sampling distribution from column mass of the transition matrix
	neg := make([]float64, n)
	total := 0.0
	for j := 0; j < n; j++ {
		colSum := 0.0
		for i := 0; i < n; i++ {
			colSum += c1.At(i, j)
		}
		neg[j] = math.Pow(colSum, p.Exponent)
		total += neg[j]
	}

	proximity := mat.NewDense(n, n, nil)
	if total > 0 {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a := adj.At(i, j)
				if a == 0 {
					continue
				}
				proximity.Set(i, j, safeLog(c1.At(i, j))-safeLog(a*neg[j]/total))
			}
		}
	}

	return truncatedSVD(proximity, dim)
}

// propagate smooths the features with the spectral filter and re-factorizes
func (p *ProNE) propagate(adj, features *mat.Dense) (*mat.Dense, error) {
	if p.Step <= 1 {
		return features, nil
	}

	n, k := features.Dims()
	identity := identityMatrix(n)

	var selfLoops mat.Dense
	selfLoops.Add(identity, adj)

	// M = (I - D^-1 (I + A)) - mu*I
	m := sub(sub(identity, rowNormalizeL1(&selfLoops)), scale(p.Mu, identity))

	prev := mat.DenseCopyOf(features)
	cur := sub(scale(0.5, mul(m, mul(m, features))), features)

	conv := sub(scale(besselI(0, p.Theta), prev), scale(2*besselI(1, p.Theta), cur))
	for i := 2; i < p.Step; i++ {
		next := sub(sub(mul(m, mul(m, cur)), scale(2, cur)), prev)
		term := scale(2*besselI(i, p.Theta), next)
		if i%2 == 0 {
			conv = add(conv, term)
		} else {
			conv = sub(conv, term)
		}
		prev, cur = cur, next
	}

	filtered := mul(&selfLoops, sub(features, conv))
	return truncatedSVD(filtered, k)
}

// truncatedSVD returns U·sqrt(Σ) restricted to the top dim singular triplets, rows l2-normalized
func truncatedSVD(m *mat.Dense, dim int) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, errSVDNotConverged
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	rows, cols := u.Dims()
	k := dim
	if k > cols {
		k = cols
	}

	out := mat.NewDense(rows, k, nil)
	for j := 0; j < k; j++ {
		s := math.Sqrt(values[j])
		for i := 0; i < rows; i++ {
			out.Set(i, j, u.At(i, j)*s)
		}
	}

	rowNormalizeL2(out)
	return out, nil
}

func rowNormalizeL1(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	rows, cols := out.Dims()
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += math.Abs(out.At(i, j))
		}
		if sum == 0 {
			continue
		}
		for j := 0; j < cols; j++ {
			out.Set(i, j, out.At(i, j)/sum)
		}
	}
	return out
}

func rowNormalizeL2(m *mat.Dense) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		norm := 0.0
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			norm += v * v
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for j := 0; j < cols; j++ {
			m.Set(i, j, m.At(i, j)/norm)
		}
	}
}

func identityMatrix(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

func mul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func add(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

func sub(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Sub(a, b)
	return &out
}

func scale(f float64, a mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, a)
	return &out
}

// safeLog maps non-positive entries to 0
func safeLog(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log(v)
}

func denseRows(m *mat.Dense) [][]float64 {
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

package srs

import (
	"errors"
	"fmt"
	"math"

	"nflsrs/ratings/internal/metrics"
	"nflsrs/ratings/internal/models"

	"gonum.org/v1/gonum/mat"
)

// Singular values at or below this fraction of the largest are treated as zero
// by the least squares fallback
const rcond = 1e-10

// Systems with a larger condition number are solved by least squares
const maxCondition = 1e12

// system is the games-played normalized SRS system coef * rating = consts
type system struct {
	coef   *mat.Dense
	consts *mat.VecDense
	games  []float64
}

// buildSystem accumulates every regular season game with a result for rating.
// Rows are divided by the team's games played; a team without games keeps a
// zero row.
func buildSystem(teams *models.TeamIndex, games []*models.SnapshotGame) (*system, error) {
	n := teams.Len()
	s := &system{
		coef:   mat.NewDense(n, n, nil),
		consts: mat.NewVecDense(n, nil),
		games:  make([]float64, n),
	}

	for _, g := range games {
		if !g.IsRegularSeason() || !g.ResultForRating.Valid {
			continue
		}
		h, err := teams.ID(g.HomeTeam)
		if err != nil {
			return nil, err
		}
		a, err := teams.ID(g.AwayTeam)
		if err != nil {
			return nil, err
		}

		m := g.AdjustedMargin()
		s.coef.Set(h, h, s.coef.At(h, h)+1)
		s.coef.Set(a, a, s.coef.At(a, a)+1)
		s.coef.Set(h, a, s.coef.At(h, a)-1)
		s.coef.Set(a, h, s.coef.At(a, h)-1)
		s.consts.SetVec(h, s.consts.AtVec(h)+m)
		s.consts.SetVec(a, s.consts.AtVec(a)-m)
		s.games[h]++
		s.games[a]++
	}

	for i := 0; i < n; i++ {
		if s.games[i] == 0 {
			continue
		}
		row := s.coef.RawRowView(i)
		for j := range row {
			row[j] /= s.games[i]
		}
		s.consts.SetVec(i, s.consts.AtVec(i)/s.games[i])
	}

	return s, nil
}

// solve tries an exact LU solve and falls back to the minimum norm least
// squares solution when the system is singular or ill conditioned. The
// Laplacian form means most real schedules take the fallback. reason is empty
// when the exact solve succeeded.
func (s *system) solve() (ratings []float64, reason string, err error) {
	n, _ := s.coef.Dims()

	var lu mat.LU
	lu.Factorize(s.coef)
	switch cond := lu.Cond(); {
	case math.IsInf(cond, 1) || math.IsNaN(cond):
		reason = "singular"
	case cond > maxCondition:
		reason = "ill_conditioned"
	default:
		var x mat.VecDense
		lerr := lu.SolveVecTo(&x, false, s.consts)
		if lerr == nil {
			return vecToSlice(&x), "", nil
		}
		reason = "error"
		if errors.Is(lerr, mat.ErrSingular) {
			reason = "singular"
		}
	}
	metrics.RecordSolverFallback(reason)

	var svd mat.SVD
	if ok := svd.Factorize(s.coef, mat.SVDThin); !ok {
		return nil, reason, fmt.Errorf("failed to factorize %dx%d system", n, n)
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return make([]float64, n), reason, nil
	}

	ls := mat.NewVecDense(n, nil)
	svd.SolveVecTo(ls, s.consts, rank)
	return vecToSlice(ls), reason, nil
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

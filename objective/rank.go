package objective

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"github.com/YuminosukeSato/gbobjective/core/parallel"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

// lambdaKind selects the pair weight of a ranking objective.
type lambdaKind int

const (
	lambdaPairwise lambdaKind = iota
	lambdaNDCG
	lambdaMAP
)

// lambdaRank samples (higher label, lower label) pairs inside each query
// group and applies the pairwise logistic loss to their margin difference,
// weighted by the change in the list metric when the pair is swapped. Groups
// never exchange rows.
type lambdaRank struct {
	base
	lambda        lambdaKind
	numPairsample int
	fixListWeight float64
	seed          int64
}

func rankFactory(kind lambdaKind) func(name string, ctx *Context) Objective {
	return func(name string, ctx *Context) Objective {
		r := &lambdaRank{base: newBase(name, ctx), lambda: kind, numPairsample: 1}
		if ctx != nil {
			r.seed = ctx.Seed
		}
		return r
	}
}

func (r *lambdaRank) Configure(args Args) error {
	p := newParamParser(r.op("Configure"), args)
	r.numPairsample = p.Int("num_pairsample", 1, atLeast(1))
	r.fixListWeight = p.Float("fix_list_weight", 0, atLeast(0))
	r.seed = p.Int64("seed", r.seed)
	return r.finish(p, r.Config())
}

func (r *lambdaRank) Config() Args {
	return Args{
		"num_pairsample":  strconv.Itoa(r.numPairsample),
		"fix_list_weight": formatFloat(r.fixListWeight),
		"seed":            strconv.FormatInt(r.seed, 10),
	}
}

func (r *lambdaRank) Task() Task { return Task{Kind: TaskRanking} }

func (r *lambdaRank) Targets(info *MetaInfo) (int, error) { return r.singleTarget(info) }

func (r *lambdaRank) PredTransform(preds []float64) []float64 { return preds }
func (r *lambdaRank) EvalTransform(preds []float64) []float64 { return preds }

func (r *lambdaRank) ProbToMargin(base float64) (float64, error) {
	return identityLink.toMargin(r.op("ProbToMargin"), base)
}

func (r *lambdaRank) DefaultEvalMetric() string {
	if r.lambda == lambdaNDCG {
		return "ndcg"
	}
	return "map"
}

func (r *lambdaRank) GetGradient(preds []float64, info *MetaInfo, iteration int, out []GradientPair) error {
	if err := r.ready("GetGradient"); err != nil {
		return err
	}
	op := r.op("GetGradient")
	if _, err := r.Targets(info); err != nil {
		return err
	}
	if err := r.checkShapes("GetGradient", preds, info, 1, out); err != nil {
		return err
	}
	rows := info.NumRows()
	if err := validateGroups(op, info.GroupPtr, rows); err != nil {
		return err
	}
	gptr := info.Groups()
	ngroup := len(gptr) - 1
	if err := validate(op, info, nonNegativeLabels, ngroup, r.ctx); err != nil {
		return err
	}

	start := time.Now()
	err := parallel.Parallelize(ngroup, r.ctx.threads(), func(lo, hi int) error {
		for k := lo; k < hi; k++ {
			if err := r.group(preds, info, gptr[k], gptr[k+1], k, iteration, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if r.log.Enabled(context.Background(), log.LevelDebug) {
		r.log.Debug("gradient computed",
			log.OperationKey, log.OperationGetGradient,
			log.RowsKey, rows,
			log.GroupsKey, ngroup,
			log.IterationKey, iteration,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return nil
}

// listEntry is one row of a group in descending-prediction order.
type listEntry struct {
	pred  float64
	label float64
	row   int
}

// rankPair holds indices into the prediction-sorted list; pos has the
// higher label.
type rankPair struct {
	pos, neg int
	weight   float64
}

// group fills out[begin:end] from the rows of group k alone.
func (r *lambdaRank) group(preds []float64, info *MetaInfo, begin, end, k, iteration int, out []GradientPair) error {
	rows := out[begin:end]
	clear(rows)
	n := end - begin
	w := info.Weight(k)
	if n == 0 || w == 0 {
		return nil
	}

	lst := make([]listEntry, n)
	for j := range lst {
		lst[j] = listEntry{pred: preds[begin+j], label: info.Label(begin+j, 0), row: begin + j}
	}
	sort.SliceStable(lst, func(a, b int) bool { return lst[a].pred > lst[b].pred })

	// rec orders list positions by label, highest first.
	rec := make([]int, n)
	for j := range rec {
		rec[j] = j
	}
	sort.SliceStable(rec, func(a, b int) bool { return lst[rec[a]].label > lst[rec[b]].label })

	rng := rand.New(rand.NewPCG(uint64(r.seed), uint64(iteration)<<32|uint64(uint32(k))))
	var pairs []rankPair
	for j, i := 0, 0; j < n; j = i {
		for i = j; i < n && lst[rec[i]].label == lst[rec[j]].label; i++ {
		}
		nleft, nright := j, n-i
		if nleft+nright == 0 {
			continue
		}
		for s := 0; s < r.numPairsample; s++ {
			for pid := j; pid < i; pid++ {
				ridx := rng.IntN(nleft + nright)
				if ridx < nleft {
					pairs = append(pairs, rankPair{pos: rec[ridx], neg: rec[pid], weight: 1})
				} else {
					pairs = append(pairs, rankPair{pos: rec[pid], neg: rec[ridx+i-j], weight: 1})
				}
			}
		}
	}

	switch r.lambda {
	case lambdaNDCG:
		ndcgWeights(lst, pairs)
	case lambdaMAP:
		mapWeights(lst, pairs)
	}

	scale := w / float64(r.numPairsample)
	if r.fixListWeight != 0 {
		scale *= r.fixListWeight / float64(n)
	}
	for _, pr := range pairs {
		pos, neg := lst[pr.pos], lst[pr.neg]
		pw := pr.weight * scale
		p := sigmoid(pos.pred - neg.pred)
		g := p - 1
		h := errors.ClampHessian(p * (1 - p))
		rows[pos.row-begin].Add(GradientPair{Grad: g * pw, Hess: h * pw})
		rows[neg.row-begin].Add(GradientPair{Grad: -g * pw, Hess: h * pw})
	}

	op := r.op("GetGradient")
	for j := range rows {
		rows[j].Hess = math.Max(rows[j].Hess, HessianFloor)
		if err := errors.CheckPair(op, rows[j].Grad, rows[j].Hess, begin+j, 0, iteration); err != nil {
			return err
		}
	}
	return nil
}

func gain(label float64) float64 {
	return math.Exp2(label) - 1
}

func discount(rank int) float64 {
	return 1 / math.Log2(float64(rank)+2)
}

// ndcgWeights scales each pair by |ΔNDCG| of swapping it. A group whose
// ideal DCG is zero gets zero weights.
func ndcgWeights(lst []listEntry, pairs []rankPair) {
	labels := make([]float64, len(lst))
	for i, e := range lst {
		labels[i] = e.label
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(labels)))
	idcg := 0.0
	for i, l := range labels {
		idcg += gain(l) * discount(i)
	}
	for i := range pairs {
		if idcg == 0 {
			pairs[i].weight = 0
			continue
		}
		pi, ni := pairs[i].pos, pairs[i].neg
		pg, ng := gain(lst[pi].label), gain(lst[ni].label)
		pd, nd := discount(pi), discount(ni)
		original := pg*pd + ng*nd
		changed := ng*pd + pg*nd
		pairs[i].weight *= math.Abs(original-changed) / idcg
	}
}

// mapStats holds running average-precision sums at each list position: the
// actual sum, the sum if one hit were removed above, and if one were added.
type mapStats struct {
	acc, accMiss, accAdd float64
	hits                 float64
}

func computeMAPStats(lst []listEntry) []mapStats {
	stats := make([]mapStats, len(lst))
	var hit, acc1, acc2, acc3 float64
	for i := 1; i <= len(lst); i++ {
		if lst[i-1].label > 0 {
			hit++
			acc1 += hit / float64(i)
			acc2 += (hit - 1) / float64(i)
			acc3 += (hit + 1) / float64(i)
		}
		stats[i-1] = mapStats{acc: acc1, accMiss: acc2, accAdd: acc3, hits: hit}
	}
	return stats
}

// deltaMAP is |ΔAP| from swapping list positions a and b.
func deltaMAP(lst []listEntry, a, b int, stats []mapStats) float64 {
	total := stats[len(stats)-1].hits
	if a == b || total == 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	original := stats[b].acc
	if a != 0 {
		original -= stats[a-1].acc
	}
	relA, relB := lst[a].label > 0, lst[b].label > 0
	if relA == relB {
		return 0
	}
	var changed float64
	if !relA {
		changed = stats[b-1].accAdd - stats[a].accAdd + (stats[a].hits+1)/float64(a+1)
	} else {
		changed = stats[b-1].accMiss - stats[a].accMiss + stats[b].hits/float64(b+1)
	}
	return math.Abs((changed - original) / total)
}

func mapWeights(lst []listEntry, pairs []rankPair) {
	stats := computeMAPStats(lst)
	for i := range pairs {
		pairs[i].weight *= deltaMAP(lst, pairs[i].pos, pairs[i].neg, stats)
	}
}

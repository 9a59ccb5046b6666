package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// groups はグループ境界を検証して返します。GroupPtr が空なら全行で1グループです。
func groups(op string, in Input) ([]int, error) {
	if _, err := in.outputs(op); err != nil {
		return nil, err
	}
	if len(in.Preds) != in.rows() || in.cols() != 1 {
		return nil, errors.NewDimensionError(op, "predictions", in.rows(), len(in.Preds))
	}
	gptr := in.GroupPtr
	if len(gptr) == 0 {
		gptr = []int{0, in.rows()}
	}
	if len(gptr) < 2 || gptr[0] != 0 || gptr[len(gptr)-1] != in.rows() {
		return nil, errors.NewValueError(op, "group pointer must start at 0 and end at the row count")
	}
	for i := 1; i < len(gptr); i++ {
		if gptr[i] < gptr[i-1] {
			return nil, errors.NewValueError(op, "group pointer must be non-decreasing")
		}
	}
	if err := in.checkWeights(op, len(gptr)-1); err != nil {
		return nil, err
	}
	return gptr, nil
}

// cutoff は "@k" の上位件数を返します。指定がなければ0（全件）です。
func cutoff(op string, s parsedName) (int, error) {
	if !s.hasParam {
		return 0, nil
	}
	if s.param < 1 || s.param != math.Trunc(s.param) {
		return 0, errors.NewConfigurationError(op, "topk", "must be a positive integer", s.param)
	}
	return int(s.param), nil
}

// byScore は予測値の降順（同値は元の順）に並べた行番号を返します。
func byScore(scores []float64, begin, end int) []int {
	idx := make([]int, end-begin)
	for i := range idx {
		idx[i] = begin + i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

// perGroup はグループごとの値をグループ重みで平均します。
func perGroup(op string, in Input, s parsedName, value func(begin, end, topk int) (float64, bool)) (float64, error) {
	gptr, err := groups(op, in)
	if err != nil {
		return 0, err
	}
	topk, err := cutoff(op, s)
	if err != nil {
		return 0, err
	}
	var sum, wsum float64
	for g := 0; g+1 < len(gptr); g++ {
		begin, end := gptr[g], gptr[g+1]
		if begin == end {
			continue
		}
		v, ok := value(begin, end, topk)
		if !ok {
			// 関連文書のないグループ
			v = 1
			if s.minus {
				v = 0
			}
		}
		w := in.weight(g)
		sum += w * v
		wsum += w
	}
	if wsum <= 0 {
		return 0, errors.NewValueError(op, "total group weight is zero")
	}
	return sum / wsum, nil
}

func dcg(labels []float64, order []int, topk int) float64 {
	var v float64
	for r, i := range order {
		if topk > 0 && r >= topk {
			break
		}
		v += (math.Exp2(labels[i]) - 1) / math.Log2(float64(r)+2)
	}
	return v
}

// ndcg は正規化割引累積利得を計算します。
func ndcg(in Input, s parsedName) (float64, error) {
	return perGroup("ndcg", in, s, func(begin, end, topk int) (float64, bool) {
		ideal := dcg(in.Labels, byScore(in.Labels, begin, end), topk)
		if ideal == 0 {
			return 0, false
		}
		return dcg(in.Labels, byScore(in.Preds, begin, end), topk) / ideal, true
	})
}

// meanAP は平均適合率（MAP）を計算します。ラベルが正の行を関連文書とします。
func meanAP(in Input, s parsedName) (float64, error) {
	return perGroup("map", in, s, func(begin, end, topk int) (float64, bool) {
		var hits, sumAP float64
		for r, i := range byScore(in.Preds, begin, end) {
			if in.Labels[i] <= 0 {
				continue
			}
			hits++
			if topk == 0 || r < topk {
				sumAP += hits / float64(r+1)
			}
		}
		if hits == 0 {
			return 0, false
		}
		if topk > 0 && float64(topk) < hits {
			hits = float64(topk)
		}
		return sumAP / hits, true
	})
}

// coxNLogLik はCox比例ハザードモデルの部分尤度（Breslow）の負の対数を
// イベント数で割った値です。予測値はハザード比、負のラベルは打ち切りです。
func coxNLogLik(in Input, _ parsedName) (float64, error) {
	const op = "cox-nloglik"
	if err := binary(op, in); err != nil {
		return 0, err
	}
	n := len(in.Labels)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(in.Labels[order[a]]) < math.Abs(in.Labels[order[b]])
	})

	var riskSum float64
	for _, p := range in.Preds {
		riskSum += p
	}
	var out, pending float64
	events := 0
	for pos, i := range order {
		y := in.Labels[i]
		if y > 0 {
			out -= math.Log(math.Max(in.Preds[i], eps)) - math.Log(math.Max(riskSum, eps))
			events++
		}
		pending += in.Preds[i]
		if pos == n-1 || math.Abs(y) < math.Abs(in.Labels[order[pos+1]]) {
			riskSum -= pending
			pending = 0
		}
	}
	if events == 0 {
		return 0, errors.NewValueError(op, "no uncensored events")
	}
	return out / float64(events), nil
}

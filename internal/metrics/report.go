package metrics

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/evilmagics/kitti/internal/array"
)

// MinDepth is the smallest predicted depth Evaluate scores; lower
// predictions are raised to it.
const MinDepth = 1e-3

// Report gathers every measure for one prediction.
type Report struct {
	MSE    float64   `json:"mse"`
	RMSE   float64   `json:"rmse"`
	IRMSE  float64   `json:"irmse"`
	MAE    float64   `json:"mae"`
	IMAE   float64   `json:"imae"`
	SqRel  float64   `json:"sq_rel"`
	AbsRel float64   `json:"abs_rel"`
	SILog  float64   `json:"silog"`
	Delta  []float64 `json:"delta"`
	Count  int       `json:"count"`
}

// MarshalJSON writes NaN and infinite measures as null, which is what a
// prediction without valid pixels produces.
func (r Report) MarshalJSON() ([]byte, error) {
	type report struct {
		MSE    *float64   `json:"mse"`
		RMSE   *float64   `json:"rmse"`
		IRMSE  *float64   `json:"irmse"`
		MAE    *float64   `json:"mae"`
		IMAE   *float64   `json:"imae"`
		SqRel  *float64   `json:"sq_rel"`
		AbsRel *float64   `json:"abs_rel"`
		SILog  *float64   `json:"silog"`
		Delta  []*float64 `json:"delta"`
		Count  int        `json:"count"`
	}
	out := report{
		MSE:    finite(r.MSE),
		RMSE:   finite(r.RMSE),
		IRMSE:  finite(r.IRMSE),
		MAE:    finite(r.MAE),
		IMAE:   finite(r.IMAE),
		SqRel:  finite(r.SqRel),
		AbsRel: finite(r.AbsRel),
		SILog:  finite(r.SILog),
		Count:  r.Count,
	}
	for _, d := range r.Delta {
		out.Delta = append(out.Delta, finite(d))
	}
	return json.Marshal(out)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// clampDepth returns pred with every value below MinDepth raised to it.
// pred itself is returned when nothing needs raising.
func clampDepth(pred *array.Array) *array.Array {
	out := pred
	for i, v := range pred.Data {
		if v >= MinDepth {
			continue
		}
		if out == pred {
			out = pred.Clone()
		}
		out.Data[i] = MinDepth
	}
	return out
}

// Evaluate computes a Report. A nil mask selects the pixels where gt holds a
// measurement. Predictions below MinDepth, holes included, are scored as
// MinDepth so that every valid ground truth pixel counts.
func Evaluate(pred, gt *array.Array, mask *array.Mask) (*Report, error) {
	if mask == nil {
		mask = ValidDepth(gt)
	}
	pred = clampDepth(pred)

	var (
		r   = &Report{Count: mask.Count()}
		err error
	)
	measures := []struct {
		dst *float64
		fn  func(pred, gt *array.Array, mask *array.Mask) (float64, error)
	}{
		{&r.MSE, MSE},
		{&r.RMSE, RMSE},
		{&r.IRMSE, IRMSE},
		{&r.MAE, MAE},
		{&r.IMAE, IMAE},
		{&r.SqRel, SqRelError},
		{&r.AbsRel, AbsRelError},
		{&r.SILog, SILog},
	}
	for _, m := range measures {
		if *m.dst, err = m.fn(pred, gt, mask); err != nil {
			return nil, err
		}
	}

	r.Delta = make([]float64, len(Thresholds))
	for i, th := range Thresholds {
		if r.Delta[i], err = RatioThreshold(pred, gt, th, mask); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Mean averages reports weighting each one by its number of valid pixels.
// Reports without valid pixels are skipped. SILog is averaged per pixel as
// well, which approximates but does not equal the SILog of the union.
func Mean(reports []*Report) *Report {
	out := &Report{Delta: make([]float64, len(Thresholds))}
	for _, r := range reports {
		out.Count += r.Count
	}
	if out.Count == 0 {
		return out
	}
	for _, r := range reports {
		if r.Count == 0 {
			continue
		}
		w := float64(r.Count) / float64(out.Count)
		out.MSE += w * r.MSE
		out.IRMSE += w * r.IRMSE * r.IRMSE
		out.MAE += w * r.MAE
		out.IMAE += w * r.IMAE
		out.SqRel += w * r.SqRel
		out.AbsRel += w * r.AbsRel
		out.SILog += w * r.SILog
		for i := range out.Delta {
			out.Delta[i] += w * r.Delta[i]
		}
	}
	out.RMSE = math.Sqrt(out.MSE)
	out.IRMSE = math.Sqrt(out.IRMSE)
	return out
}

// Package metrics implements the KITTI depth completion and depth prediction
// error measures.
//
// Every function takes a prediction and a ground truth of identical shape
// and an optional validity mask (nil selects every element). Masked out
// elements are excluded from the aggregation. When the mask selects no
// element the result is NaN; it is not reported as an error.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/evilmagics/kitti/internal/array"
)

// Thresholds used by the δ accuracy measures of the depth prediction
// benchmark.
var Thresholds = []float64{1.25, 1.25 * 1.25, 1.25 * 1.25 * 1.25}

// elementwise applies fn to every valid (pred, gt) pair.
func elementwise(pred, gt *array.Array, mask *array.Mask, fn func(p, g float64) float64) ([]float64, error) {
	if err := pred.CheckShape(gt.Shape); err != nil {
		return nil, err
	}
	if mask != nil {
		if err := pred.CheckShape(mask.Shape); err != nil {
			return nil, err
		}
	}

	out := make([]float64, 0, len(pred.Data))
	for i := range pred.Data {
		if mask != nil && !mask.Data[i] {
			continue
		}
		out = append(out, fn(float64(pred.Data[i]), float64(gt.Data[i])))
	}
	return out, nil
}

func mean(pred, gt *array.Array, mask *array.Mask, fn func(p, g float64) float64) (float64, error) {
	values, err := elementwise(pred, gt, mask, fn)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(values, nil), nil
}

// MSE computes the mean squared error.
func MSE(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 { return (p - g) * (p - g) })
}

// RMSE computes the root mean squared error.
func RMSE(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	mse, err := MSE(pred, gt, mask)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// IRMSE computes the root mean squared error of the inverse depths,
// sqrt(mean((1/gt - 1/pred)^2)).
func IRMSE(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	mse, err := mean(pred, gt, mask, func(p, g float64) float64 {
		d := 1/g - 1/p
		return d * d
	})
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE computes the mean absolute error.
func MAE(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 { return math.Abs(p - g) })
}

// IMAE computes the mean absolute error of the inverse depths.
func IMAE(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 { return math.Abs(1/g - 1/p) })
}

// SqRelError computes mean((pred - gt)^2 / gt).
func SqRelError(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 { return (p - g) * (p - g) / g })
}

// AbsRelError computes mean(|pred - gt| / gt).
func AbsRelError(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 { return math.Abs(p-g) / g })
}

// SILog computes the scale invariant logarithmic error of Eigen et al.,
// mean(d^2) - mean(d)^2 with d = ln(pred) - ln(gt).
func SILog(pred, gt *array.Array, mask *array.Mask) (float64, error) {
	d, err := elementwise(pred, gt, mask, func(p, g float64) float64 { return math.Log(p) - math.Log(g) })
	if err != nil {
		return 0, err
	}
	if len(d) == 0 {
		return math.NaN(), nil
	}
	_, v := stat.PopMeanVariance(d, nil)
	return v, nil
}

// RatioThreshold computes the fraction of elements whose
// max(gt/pred, pred/gt) is lower than threshold.
func RatioThreshold(pred, gt *array.Array, threshold float64, mask *array.Mask) (float64, error) {
	return mean(pred, gt, mask, func(p, g float64) float64 {
		if math.Max(g/p, p/g) < threshold {
			return 1
		}
		return 0
	})
}

// ValidDepth masks the ground truth pixels that carry a measurement; KITTI
// stores missing depth as zero.
func ValidDepth(gt *array.Array) *array.Mask {
	return array.Where(gt, func(v float32) bool { return v > 0 })
}

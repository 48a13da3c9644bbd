package risk

import "math"

// normalizedEntropy is the Shannon entropy of the non-zero proportions
// count/total, divided by log(buckets).
func normalizedEntropy(counts []int, total, buckets int) float64 {
	if total <= 0 || buckets < 2 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h / math.Log(float64(buckets))
}

// relativeVariance is var/(mean^2 + 0.01) over the bucket counts, or 0 when
// every bucket is empty.
func relativeVariance(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum == 0 {
		return 0
	}
	n := float64(len(counts))
	mean := float64(sum) / n
	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= n
	return variance / (mean*mean + 0.01)
}

func saturate(alpha, x float64) float64 {
	return 1 - math.Exp(-alpha*x)
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

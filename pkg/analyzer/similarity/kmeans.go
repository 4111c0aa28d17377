package similarity

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// KMeans clusters dense vectors with Lloyd's algorithm and k-means++ seeding.
type KMeans struct {
	K        int
	Restarts int
	MaxIter  int
	Seed     uint64
}

// DefaultKMeans returns the clustering used for similarity analysis.
func DefaultKMeans(k int) KMeans {
	return KMeans{K: k, Restarts: 10, MaxIter: 300, Seed: 42}
}

// Fit assigns every point to a cluster and returns the labels and the
// inertia of the best restart. Ties between equidistant centroids go to the
// lowest index, so identical points collapse into one cluster.
func (km KMeans) Fit(points [][]float64) ([]int, float64) {
	if len(points) == 0 {
		return nil, 0
	}
	k := min(max(km.K, 1), len(points))
	restarts := max(km.Restarts, 1)
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))

	var best []int
	bestInertia := math.Inf(1)
	for range restarts {
		centroids := seedPlusPlus(points, k, rng)
		labels, inertia := lloyd(points, centroids, km.MaxIter)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best, bestInertia
}

func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			_, d := nearest(p, centroids)
			dist[i] = d
			total += d
		}

		next := rng.IntN(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) ([]int, float64) {
	labels := make([]int, len(points))
	dim := len(points[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c, _ := nearest(p, centroids)
			if iter == 0 || labels[i] != c {
				changed = true
			}
			labels[i] = c
		}
		if !changed {
			break
		}

		for c := range sums {
			clear(sums[c])
			counts[c] = 0
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			// empty clusters keep their previous centroid
			if counts[c] == 0 {
				continue
			}
			floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
		}
	}

	inertia := 0.0
	for i, p := range points {
		d := floats.Distance(p, centroids[labels[i]], 2)
		inertia += d * d
	}
	return labels, inertia
}

// nearest returns the index of the closest centroid and the squared distance.
func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		d := floats.Distance(p, centroid, 2)
		if d*d < bestDist {
			best, bestDist = c, d*d
		}
	}
	return best, bestDist
}

// Cosine returns the cosine similarity of two equal-length vectors, or 0
// when either has zero norm.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

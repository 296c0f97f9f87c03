// Package cluster computes representative hub coordinates for a set of
// samples using seeded k-means with restarts. Distances are planar
// Euclidean on (lat, lon); see the model package note on that
// approximation.
package cluster

import (
	"fmt"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/lifeline-labs/goldenhour/internal/model"
)

// Defaults for Options zero values.
const (
	DefaultRestarts      = 10
	DefaultMaxIterations = 300
)

// degenerateEps is the coordinate tolerance below which two converged
// centroids count as the same point (~0.1mm in degrees).
const degenerateEps = 1e-9

// Sample is one clustering input: a flattened (lat, lon) pair.
type Sample struct {
	Lat float64
	Lon float64
}

// InsufficientSamplesError reports that fewer samples than facilities were
// available, even after classifier fallback. Retrying with the same input
// cannot succeed; callers must reduce the facility count or widen the
// network snapshot.
type InsufficientSamplesError struct {
	Samples    int
	Facilities int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("cluster: %d samples cannot seat %d facilities", e.Samples, e.Facilities)
}

// Options tunes the clustering procedure. Zero values take defaults.
type Options struct {
	Restarts      int
	MaxIterations int
}

func (o Options) withDefaults() Options {
	if o.Restarts <= 0 {
		o.Restarts = DefaultRestarts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Optimize clusters samples into exactly facilities hubs. The restart
// minimizing total within-cluster squared distance wins; ties go to the
// lowest restart index, so results are bit-identical for a fixed seed and
// input ordering. Restarts run concurrently but never share centroid
// state.
//
// The boolean result is true when two or more hubs converged to the same
// point. That is accepted output, not an error.
func Optimize(samples []Sample, facilities int, seed int64, opts Options) ([]model.Hub, bool, error) {
	if facilities < 1 {
		return nil, false, eris.Errorf("cluster: facilities must be >= 1, got %d", facilities)
	}
	if len(samples) < facilities {
		return nil, false, &InsufficientSamplesError{Samples: len(samples), Facilities: facilities}
	}
	opts = opts.withDefaults()

	type candidate struct {
		centroids []Sample
		inertia   float64
	}
	results := make([]candidate, opts.Restarts)

	var g errgroup.Group
	for r := 0; r < opts.Restarts; r++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(uint64(seed), uint64(r)))
			centroids := seedCentroids(rng, samples, facilities)
			assign := lloyd(samples, centroids, opts.MaxIterations)
			results[r] = candidate{centroids: centroids, inertia: inertia(samples, centroids, assign)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, eris.Wrap(err, "cluster: restarts")
	}

	best := 0
	for r := 1; r < opts.Restarts; r++ {
		if results[r].inertia < results[best].inertia {
			best = r
		}
	}

	hubs := make([]model.Hub, facilities)
	for i, c := range results[best].centroids {
		hubs[i] = model.Hub{Index: i + 1, Lat: c.Lat, Lon: c.Lon}
	}
	return hubs, duplicateHubs(hubs), nil
}

// seedCentroids picks initial centroids with k-means++ weighting: the
// first uniformly, each next with probability proportional to squared
// distance from the nearest chosen centroid. When every remaining sample
// coincides with a chosen centroid, duplicates are seeded deliberately so
// degenerate inputs still yield k centroids.
func seedCentroids(rng *rand.Rand, samples []Sample, k int) []Sample {
	centroids := make([]Sample, 0, k)
	centroids = append(centroids, samples[rng.IntN(len(samples))])

	weights := make([]float64, len(samples))
	for len(centroids) < k {
		var total float64
		for i, s := range samples {
			weights[i] = nearestDist2(s, centroids)
			total += weights[i]
		}
		if total == 0 {
			centroids = append(centroids, samples[rng.IntN(len(samples))])
			continue
		}

		target := rng.Float64() * total
		chosen := len(samples) - 1
		var acc float64
		for i, w := range weights {
			acc += w
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, samples[chosen])
	}
	return centroids
}

// lloyd alternates assignment and centroid update in place until
// assignments stop changing or maxIter is reached. It returns the final
// assignment.
func lloyd(samples []Sample, centroids []Sample, maxIter int) []int {
	assign := make([]int, len(samples))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		if !assignAll(samples, centroids, assign) {
			break
		}
		updateCentroids(samples, assign, centroids)
	}
	return assign
}

// assignAll assigns each sample to its nearest centroid, reporting
// whether any assignment changed.
func assignAll(samples []Sample, centroids []Sample, assign []int) bool {
	changed := false
	for i, s := range samples {
		j := nearestIdx(s, centroids)
		if j != assign[i] {
			assign[i] = j
			changed = true
		}
	}
	return changed
}

// updateCentroids recomputes each centroid as the arithmetic mean of its
// assigned samples. A centroid with no assigned samples keeps its
// position, which is how duplicate hubs arise on degenerate input.
func updateCentroids(samples []Sample, assign []int, centroids []Sample) {
	sumLat := make([]float64, len(centroids))
	sumLon := make([]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i, s := range samples {
		j := assign[i]
		sumLat[j] += s.Lat
		sumLon[j] += s.Lon
		counts[j]++
	}
	for j := range centroids {
		if counts[j] == 0 {
			continue
		}
		centroids[j] = Sample{Lat: sumLat[j] / float64(counts[j]), Lon: sumLon[j] / float64(counts[j])}
	}
}

// inertia is the total squared distance from each sample to its assigned
// centroid.
func inertia(samples []Sample, centroids []Sample, assign []int) float64 {
	var total float64
	for i, s := range samples {
		total += dist2(s, centroids[assign[i]])
	}
	return total
}

func nearestIdx(s Sample, centroids []Sample) int {
	best := 0
	bestD := dist2(s, centroids[0])
	for j := 1; j < len(centroids); j++ {
		if d := dist2(s, centroids[j]); d < bestD {
			best = j
			bestD = d
		}
	}
	return best
}

func nearestDist2(s Sample, centroids []Sample) float64 {
	best := dist2(s, centroids[0])
	for j := 1; j < len(centroids); j++ {
		if d := dist2(s, centroids[j]); d < best {
			best = d
		}
	}
	return best
}

func dist2(a, b Sample) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// duplicateHubs reports whether any two hubs share coordinates within
// degenerateEps.
func duplicateHubs(hubs []model.Hub) bool {
	for i := 0; i < len(hubs); i++ {
		for j := i + 1; j < len(hubs); j++ {
			dLat := hubs[i].Lat - hubs[j].Lat
			dLon := hubs[i].Lon - hubs[j].Lon
			if dLat < degenerateEps && dLat > -degenerateEps && dLon < degenerateEps && dLon > -degenerateEps {
				return true
			}
		}
	}
	return false
}

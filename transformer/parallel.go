package transformer

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Workers caps the goroutines used to encode a batch. Values <= 0 mean
// runtime.GOMAXPROCS(0).
var Workers = 0

// encodeBatch runs embeddings and every encoder layer over each sequence of
// batch concurrently and writes the pooled vectors into the rows of pooled.
// Weights are only read here and each sequence gets private caches, so
// workers never share mutable state. When train is set the per-layer caches
// are returned for Backward.
func (t *Transformer) encodeBatch(batch [][]int, pooled *mat.Dense, train bool) [][]*EncoderCache {
	var seqs [][]*EncoderCache
	if train {
		seqs = make([][]*EncoderCache, len(batch))
	}
	encode := func(i int) {
		ids := batch[i]
		if len(ids) == 0 {
			return // zero row
		}
		X := t.Embeddings.Encode(ids)
		if train {
			caches := make([]*EncoderCache, len(t.Layers))
			for li, l := range t.Layers {
				X, caches[li] = l.ForwardTrain(X)
			}
			seqs[i] = caches
		} else {
			for _, l := range t.Layers {
				X = l.Forward(X)
			}
		}
		// Distinct rows of one Dense never overlap.
		pooled.SetRow(i, t.pool(X))
	}

	workers := Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(batch))
	if workers <= 1 {
		for i := range batch {
			encode(i)
		}
		return seqs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				encode(i)
			}
		}()
	}
	for i := range batch {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return seqs
}

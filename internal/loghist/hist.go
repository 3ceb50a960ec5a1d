// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loghist provides integer histograms with exponentially
// growing bucket sizes. Samples are non-negative integers, typically
// latencies in microseconds. The bins are grouped into blocks of
// 1<<bits equal-sized bins; the first block has a bin size of 1 and
// each consecutive block doubles the bin size, so the relative error
// of any reconstructed value is bounded by 1/(1<<bits).
package loghist

import (
	"fmt"
	"strings"
)

// Hist is a histogram of non-negative integer values covering the
// interval [0,max] with exponentially growing bin sizes.
// Hist is not safe for concurrent use; callers synchronize.
type Hist struct {
	overflow  uint64 // number of added values > max
	underflow uint64 // number of added values < 0
	total     uint64 // number of values counted in count

	n     int      // bins per block, a power of two
	max   int      // largest value which can be counted
	count []uint64 // per-bucket counts
}

// New returns a Hist for values from 0 to (at least) max with a
// resolution of bits. The first 1<<bits values map to individual bins.
func New(bits uint, max int) *Hist {
	n := 1 << bits
	h := &Hist{n: n}
	last := h.bucket(max)
	_, lastValue := h.cover(last)
	h.count = make([]uint64, lastValue+1)
	h.max = lastValue
	return h
}

// Parameters returns the resolution in bits and the largest value
// storable without overflowing.
func (h *Hist) Parameters() (bits int, max int) {
	n := h.n
	bits = -1
	for n > 0 {
		bits++
		n /= 2
	}
	return bits, h.max
}

// bucket returns the bucket index the value v belongs to, for v in
// [0,h.max].
func (h *Hist) bucket(v int) int {
	// Block p covers the value range [n*2^p - n, n*2^(p+1) - n).
	n := h.n
	if v < n {
		return v
	}

	p := uint(0)
	low := n*(1<<p) - n
	for low <= v {
		p++
		low = n*(1<<p) - n
	}
	p--
	low = n*(1<<p) - n
	binsize := 1 << p
	return n*int(p) + (v-low)/binsize
}

// cover returns the value interval [a,b) covered by bucket.
func (h *Hist) cover(bucket int) (a int, b int) {
	// Bucket z is bin u = z%n in block p = z/n and is w = 1<<p wide,
	// starting at a = n*2^p - n + u*w.
	n := h.n
	u, p := bucket%n, uint(bucket/n)
	w := 1 << p
	a = n*(1<<p) - n + u*w
	return a, a + w
}

// Add counts the value v. Values below 0 or above the histogram's
// maximum are tallied in the under-/overflow counters only.
func (h *Hist) Add(v int) {
	if v < 0 {
		h.underflow++
		return
	}
	if v >= h.max {
		h.overflow++
		return
	}
	h.count[h.bucket(v)]++
	h.total++
}

// Count returns the number of values added to h, including under- and
// overflowing ones.
func (h *Hist) Count() uint64 {
	return h.total + h.underflow + h.overflow
}

// Overflow returns how many added values exceeded the histogram's range.
func (h *Hist) Overflow() uint64 { return h.overflow }

// Reset discards all counted values. The bucket layout is kept so the
// backing array is reused.
func (h *Hist) Reset() {
	for i := range h.count {
		h.count[i] = 0
	}
	h.total, h.underflow, h.overflow = 0, 0, 0
}

// integral returns the running sum of all buckets, trimmed at the
// right end after the last non-empty bucket.
func (h *Hist) integral() []uint64 {
	sum := make([]uint64, len(h.count))
	s := uint64(0)
	lastNonZero := 0
	for i, c := range h.count {
		s += c
		sum[i] = s
		if c > 0 {
			lastNonZero = i
		}
	}
	return sum[:lastNonZero+1]
}

// Quantiles returns an approximation to the sample quantiles for the
// given probabilities p which must be sorted increasing values from
// [0,1]. Under- and overflowing values are ignored. The approximation
// overestimates the real sample quantile by at most one bin width.
func (h *Hist) Quantiles(p []float64) []int {
	if h.total == 0 {
		return make([]int, len(p))
	}
	sum := h.integral()
	psum := make([]float64, len(sum))
	n := float64(sum[len(sum)-1])
	for i, s := range sum {
		psum[i] = float64(s) / n
	}
	psum = append(psum, 2) // sentinel

	v := make([]int, len(p))
	bucket := 0
	for i, x := range p {
		if x == 0 {
			for bucket < len(sum)-1 && psum[bucket+1] == 0 {
				bucket++
			}
			bucket++
		} else {
			// Stop at the first bucket whose cumulative fraction
			// reaches x. Advancing past an exact hit would interpolate
			// from the next non-empty bucket and overshoot by a whole
			// gap of empty buckets.
			for bucket < len(sum) && psum[bucket] < x {
				bucket++
			}
		}
		a, b := h.cover(bucket)
		if psum[bucket] == 2 { // ran past the last bucket
			v[i] = a - 1
		} else {
			xa := 0.0
			if bucket > 0 {
				xa = psum[bucket-1]
			}
			f := (x - xa) / (psum[bucket] - xa)
			v[i] = a + int(float64(b-a)*f)
		}
	}
	return v
}

// Average returns an approximation to the average of all non-over- and
// non-underflowing values added to h.
func (h *Hist) Average() int {
	sum := uint64(0)
	n := uint64(0)
	for b, c := range h.count {
		left, right := h.cover(b)
		d := uint64(left + right - 1)
		sum += d * (c / 2)
		if c%2 == 1 {
			sum += d / 2
		}
		n += c
	}
	if n == 0 {
		return 0
	}
	return int(sum / n)
}

// Bucket describes one non-empty histogram bucket covering the values
// [Left, Right) with Count entries.
type Bucket struct {
	Left  int
	Right int
	Count uint64
}

// Data returns all non-empty buckets of h.
func (h *Hist) Data() []Bucket {
	b := []Bucket{}
	for i, c := range h.count {
		if c == 0 {
			continue
		}
		left, right := h.cover(i)
		b = append(b, Bucket{left, right, c})
	}
	return b
}

// String prints the histogram as bucket ranges with counts and a bar
// of '#' per bucket scaled to the largest count.
func (h *Hist) String() string {
	buckets := h.Data()
	max := uint64(0)
	for _, b := range buckets {
		if b.Count > max {
			max = b.Count
		}
	}
	if max == 0 {
		return "(empty)\n"
	}

	s := ""
	for _, b := range buckets {
		bar := strings.Repeat("#", int(b.Count*30/max))
		s += fmt.Sprintf("%7d- %7d: %7d %-30s\n", b.Left, b.Right, b.Count, bar)
	}
	return s
}

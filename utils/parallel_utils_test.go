package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	getHisto := func(K, Np int) (histo map[int]int) {
		pm := NewPartitionMap(Np, K)
		histo = make(map[int]int)
		for np := 0; np < pm.ParallelDegree; np++ {
			maxK := pm.GetBucketDimension(np)
			histo[maxK]++
		}
		return
	}
	getTotal := func(histo map[int]int) (total int) {
		for key, count := range histo {
			total += key * count
		}
		return
	}
	assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
	assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
	assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
	assert.Equal(t, 287, getTotal(getHisto(287, 32)))
	for n := 64; n < 2000; n++ {
		var (
			keys   [2]float64
			keyNum int
		)
		histo := getHisto(n, 32)
		for key := range histo {
			keys[keyNum] = float64(key)
			keyNum++
		}
		if keyNum == 2 {
			assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
		}
		assert.Equal(t, n, getTotal(histo))
	}
}

func TestPartitionMapBuckets(t *testing.T) {
	pm := NewPartitionMap(4, 10)
	for k := 0; k < 10; k++ {
		bn, kMin, kMax := pm.GetBucket(k)
		assert.True(t, bn >= 0)
		assert.True(t, kMin <= k && k < kMax)
	}
	bn, _, _ := pm.GetBucket(10)
	assert.Equal(t, -1, bn)

	pm = NewPartitionMap(8, 3)
	assert.Equal(t, []int{0, 1, 2}, pm.NonEmptyBuckets())

	pm = NewPartitionMap(0, 5)
	assert.Equal(t, 1, pm.ParallelDegree)
	assert.Equal(t, 5, pm.GetBucketDimension(0))
	assert.True(t, DefaultParallelDegree() >= 1)
}

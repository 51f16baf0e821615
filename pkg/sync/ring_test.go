package sync

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_Stable(t *testing.T) {
	a := newRing(16, 100)
	b := newRing(16, 100)

	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("account%d", i))
		bucket := a.bucket(key)
		require.True(t, bucket >= 0 && bucket < 16)

		assert.Equal(t, bucket, a.bucket(key))
		assert.Equal(t, bucket, b.bucket(key))
	}
}

func TestRing_Spread(t *testing.T) {
	const (
		buckets = 5
		keys    = 200000
	)

	r := newRing(buckets, 200)

	counts := make([]int, buckets)
	for i := 0; i < keys; i++ {
		counts[r.bucket([]byte(fmt.Sprintf("account%d", i)))]++
	}

	expected := keys / buckets
	for bucket, count := range counts {
		assert.InDelta(t, expected, count, 0.1*float64(expected), "bucket %d", bucket)
	}
}

func TestRing_SingleBucket(t *testing.T) {
	r := newRing(1, 10)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, r.bucket([]byte(fmt.Sprintf("%d", i))))
	}
}

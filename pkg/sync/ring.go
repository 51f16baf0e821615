package sync

import (
	"encoding/binary"
	"strconv"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently hashes keys onto a fixed number of buckets. Each bucket
// owns vnodes points on the ring, and a key belongs to the bucket owning the
// first point at or after the key's hash, wrapping around at the end.
type ring struct {
	points *treemap.Map // int64 hash -> int bucket
	first  int
}

func newRing(buckets, vnodes uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	var seed [12]byte
	for bucket := 0; bucket < int(buckets); bucket++ {
		name, _ := murmur3.Sum128([]byte("bucket" + strconv.Itoa(bucket)))
		binary.LittleEndian.PutUint64(seed[:8], name)

		for v := uint32(0); v < uint32(vnodes); v++ {
			binary.LittleEndian.PutUint32(seed[8:], v)
			points.Put(hashKey(seed[:]), bucket)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

func (r *ring) bucket(key []byte) int {
	if _, bucket := r.points.Ceiling(hashKey(key)); bucket != nil {
		return bucket.(int)
	}
	return r.first
}

func hashKey(key []byte) int64 {
	h, _ := murmur3.Sum128(key)
	return int64(h)
}

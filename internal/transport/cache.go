package transport

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/registry"
)

// resultCache memoizes responses by a hash of the request and the server
// defaults it was resolved against. A nil cache never hits.
type resultCache struct {
	lru *lru.Cache[uint64, cached]
}

// cached keeps the counts of a response next to its wire form so hits are
// observed like misses.
type cached struct {
	out     *structpb.Struct
	summary *apiv1.Response
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[uint64, cached](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

var deterministic = proto.MarshalOptions{Deterministic: true}

func (c *resultCache) key(in *structpb.Struct, defaults registry.Options) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	d, err := structpb.NewStruct(defaults)
	if err != nil {
		return 0, false
	}
	h := xxhash.New()
	for _, m := range []proto.Message{in, d} {
		b, err := deterministic.Marshal(m)
		if err != nil {
			return 0, false
		}
		_, _ = h.Write(b)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64(), true
}

// Cached responses are shared between callers and never mutated.
func (c *resultCache) get(k uint64) (cached, bool) {
	return c.lru.Get(k)
}

// add stores out with the counts of resp; the tree is not retained twice.
func (c *resultCache) add(k uint64, out *structpb.Struct, resp *apiv1.Response) {
	c.lru.Add(k, cached{out: out, summary: &apiv1.Response{
		Rewritten:   resp.Rewritten,
		BySpecifier: resp.BySpecifier,
		Pruned:      resp.Pruned,
		Removed:     resp.Removed,
	}})
}

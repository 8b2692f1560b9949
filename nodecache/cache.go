// Package nodecache maps octree node ids to renderable views. Views are
// loaded lazily: a lookup of an unknown node queues it, and Pump loads a
// bounded number of queued nodes per frame.
package nodecache

import (
	"math"
	"math/rand/v2"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"point-viewer/metrics"
	"point-viewer/octree"
)

// Unlimited lifts the per-call cap of Pump and RequestAll.
const Unlimited = math.MaxInt

// View is a renderable, resource-owning representation of one node.
type View interface {
	Meta() octree.NodeMeta
	// Release frees the resources held by the view. It is called exactly once,
	// when the view leaves the cache.
	Release()
}

// Uploader turns shuffled node data into a View.
type Uploader interface {
	Upload(data *octree.NodeData) (View, error)
}

type entry struct {
	view  View
	bytes int64
}

// Cache holds resolved views in least-recently-used order plus a FIFO of
// pending requests. It is not safe for concurrent use; the frame loop owns it.
type Cache struct {
	uploader        Uploader
	logger          *zap.SugaredLogger
	rng             *rand.Rand
	checkInvariants bool

	capacity  int
	resolved  *lru.Cache
	resident  map[octree.NodeID]int64
	usedBytes int64
	closing   bool

	queue  []octree.NodeID
	queued map[octree.NodeID]struct{}
	// missing holds nodes the source reported as not found.
	missing map[octree.NodeID]struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithRand sets the source of the per-node point permutations.
func WithRand(rng *rand.Rand) Option {
	return func(c *Cache) { c.rng = rng }
}

// WithInvariantChecks makes every mutation verify the cache bookkeeping and
// panic on inconsistency.
func WithInvariantChecks() Option {
	return func(c *Cache) { c.checkInvariants = true }
}

// New returns an empty cache holding at most capacity views. A capacity of
// zero or less disables eviction.
func New(uploader Uploader, capacity int, logger *zap.SugaredLogger, opts ...Option) *Cache {
	c := &Cache{
		uploader: uploader,
		logger:   logger,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		resident: make(map[octree.NodeID]int64),
		queued:   make(map[octree.NodeID]struct{}),
		missing:  make(map[octree.NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolved = lru.New(0)
	c.resolved.OnEvicted = c.onEvicted
	c.setCapacity(capacity)
	return c
}

// Get returns the view of id if it is resolved and marks it recently used.
func (c *Cache) Get(id octree.NodeID) (View, bool) {
	v, ok := c.resolved.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*entry).view, true
}

// GetOrRequest returns the view of id if it is resolved. Otherwise id is
// queued for loading, unless it already is, and false is returned.
func (c *Cache) GetOrRequest(id octree.NodeID) (View, bool) {
	if view, ok := c.Get(id); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return view, true
	}
	if _, ok := c.queued[id]; ok {
		metrics.CacheRequests.WithLabelValues("pending").Inc()
		return nil, false
	}
	c.enqueue(id)
	metrics.CacheRequests.WithLabelValues("queued").Inc()
	c.updateGauges()
	c.check()
	return nil, false
}

// RequestAll queues, in order, ids that are neither resolved nor queued until
// limit ids have been added, and returns how many were added.
func (c *Cache) RequestAll(ids []octree.NodeID, limit int) int {
	added := 0
	for _, id := range ids {
		if added >= limit {
			break
		}
		if _, ok := c.resident[id]; ok {
			continue
		}
		if _, ok := c.queued[id]; ok {
			continue
		}
		c.enqueue(id)
		added++
	}
	c.updateGauges()
	c.check()
	return added
}

// ResetLoadQueue drops all pending requests. Resolved views are kept.
func (c *Cache) ResetLoadQueue() {
	c.queue = nil
	clear(c.queued)
	c.updateGauges()
	c.check()
}

// Pump takes up to maxLoads ids off the front of the queue and loads them at
// full resolution from src. Nodes the source cannot supply are logged and
// skipped; they count against maxLoads. It returns the number of views
// created.
func (c *Cache) Pump(src octree.NodeDataProvider, maxLoads int) int {
	loaded := 0
	for n := 0; n < maxLoads && len(c.queue) > 0; n++ {
		id := c.queue[0]
		c.queue = c.queue[1:]
		delete(c.queued, id)

		if err := c.load(src, id); err != nil {
			if errors.Is(err, octree.ErrNodeNotFound) {
				c.logMissing(id, err)
				metrics.CacheLoads.WithLabelValues("missing").Inc()
			} else {
				c.logger.Errorw("failed to load node", "node", id.String(), "error", err)
				metrics.CacheLoads.WithLabelValues("failed").Inc()
			}
			continue
		}
		delete(c.missing, id)
		metrics.CacheLoads.WithLabelValues("loaded").Inc()
		loaded++
	}
	if len(c.queue) == 0 {
		c.queue = nil
	}
	c.updateGauges()
	c.check()
	return loaded
}

// logMissing warns the first time a node turns out to be missing. Repeated
// requests for it are logged at debug level.
func (c *Cache) logMissing(id octree.NodeID, err error) {
	if _, seen := c.missing[id]; seen {
		c.logger.Debugw("skipping missing node", "node", id.String(), "error", err)
		return
	}
	c.missing[id] = struct{}{}
	c.logger.Warnw("skipping missing node", "node", id.String(), "error", err)
}

func (c *Cache) load(src octree.NodeDataProvider, id octree.NodeID) error {
	data, err := src.NodeData(id, octree.AllPointsLOD)
	if err != nil {
		return err
	}
	shuffled, err := shuffle(data, c.rng)
	if err != nil {
		return errors.Wrapf(err, "node %s", id)
	}
	view, err := c.uploader.Upload(shuffled)
	if err != nil {
		return errors.Wrapf(err, "upload node %s", id)
	}
	bytes := int64(len(shuffled.Positions) + len(shuffled.Colors))
	c.resident[id] = bytes
	c.usedBytes += bytes
	c.resolved.Add(id, &entry{view: view, bytes: bytes})
	return nil
}

// Evict drops least-recently-used views until the cache is within capacity
// and returns how many were dropped.
func (c *Cache) Evict() int {
	if c.capacity <= 0 {
		return 0
	}
	evicted := 0
	for c.resolved.Len() > c.capacity {
		c.resolved.RemoveOldest()
		evicted++
	}
	c.updateGauges()
	c.check()
	return evicted
}

// SetCapacity changes the maximum number of resident views, evicting as needed.
func (c *Cache) SetCapacity(capacity int) int {
	c.setCapacity(capacity)
	return c.Evict()
}

func (c *Cache) setCapacity(capacity int) {
	c.capacity = capacity
	if capacity < 0 {
		capacity = 0
	}
	c.resolved.MaxEntries = capacity
}

// Close releases every resident view and drops all pending requests.
func (c *Cache) Close() {
	c.closing = true
	c.resolved.Clear()
	c.closing = false
	clear(c.missing)
	c.ResetLoadQueue()
}

func (c *Cache) Len() int         { return c.resolved.Len() }
func (c *Cache) Capacity() int    { return c.capacity }
func (c *Cache) QueueLen() int    { return len(c.queue) }
func (c *Cache) UsedBytes() int64 { return c.usedBytes }

// Queued reports whether id is waiting to be loaded.
func (c *Cache) Queued(id octree.NodeID) bool {
	_, ok := c.queued[id]
	return ok
}

// Resident reports whether id has a view, without touching its recency.
func (c *Cache) Resident(id octree.NodeID) bool {
	_, ok := c.resident[id]
	return ok
}

// PendingIDs returns a copy of the load queue, front first.
func (c *Cache) PendingIDs() []octree.NodeID {
	return append([]octree.NodeID(nil), c.queue...)
}

func (c *Cache) enqueue(id octree.NodeID) {
	c.queue = append(c.queue, id)
	c.queued[id] = struct{}{}
}

func (c *Cache) onEvicted(key lru.Key, value interface{}) {
	id := key.(octree.NodeID)
	e := value.(*entry)
	e.view.Release()
	delete(c.resident, id)
	c.usedBytes -= e.bytes
	if !c.closing {
		metrics.CacheEvictions.Inc()
		c.logger.Debugw("evicted node", "node", id.String(), "bytes", e.bytes)
	}
}

func (c *Cache) updateGauges() {
	metrics.CacheResidentNodes.Set(float64(c.resolved.Len()))
	metrics.CacheResidentBytes.Set(float64(c.usedBytes))
	metrics.CacheQueueLength.Set(float64(len(c.queue)))
}

// Verify checks that the queue and its index agree, that no id is both queued
// and resident, and that the resident bookkeeping matches the LRU.
func (c *Cache) Verify() error {
	if len(c.queue) != len(c.queued) {
		return errors.Errorf("cache inconsistency: queue has %d ids, queued set has %d", len(c.queue), len(c.queued))
	}
	seen := make(map[octree.NodeID]struct{}, len(c.queue))
	for _, id := range c.queue {
		if _, dup := seen[id]; dup {
			return errors.Errorf("cache inconsistency: node %s queued twice", id)
		}
		seen[id] = struct{}{}
		if _, ok := c.queued[id]; !ok {
			return errors.Errorf("cache inconsistency: node %s queued but not in queued set", id)
		}
		if _, ok := c.resident[id]; ok {
			return errors.Errorf("cache inconsistency: node %s both queued and resident", id)
		}
	}
	if len(c.resident) != c.resolved.Len() {
		return errors.Errorf("cache inconsistency: %d resident ids, %d views", len(c.resident), c.resolved.Len())
	}
	var bytes int64
	for _, b := range c.resident {
		bytes += b
	}
	if bytes != c.usedBytes {
		return errors.Errorf("cache inconsistency: resident views hold %d bytes, accounted %d", bytes, c.usedBytes)
	}
	return nil
}

func (c *Cache) check() {
	if !c.checkInvariants {
		return
	}
	if err := c.Verify(); err != nil {
		panic(err)
	}
}

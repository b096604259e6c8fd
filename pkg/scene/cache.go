package scene

import "fmt"

// Cache holds the last sized object an object-producing module built during
// the current generation pass, keyed by the size inputs it was built for.
// The cached object itself is never handed out: callers receive either an
// instance sharing its payload or an independent deep copy.
type Cache struct {
	valid        bool
	sizeR, sizeY float64
	obj          *Object

	hits, misses int
}

// Deliver returns an object for (sizeR, sizeY). On a miss, or when the sizes
// differ from the cached entry, build is called and its result replaces the
// entry. With instanceShared the returned wrapper shares the cached payload;
// otherwise it owns a deep copy.
func (c *Cache) Deliver(sizeR, sizeY float64, instanceShared bool, build func() (*Object, error)) (*Object, error) {
	if !c.valid || c.sizeR != sizeR || c.sizeY != sizeY {
		c.misses++
		obj, err := build()
		if err != nil {
			return nil, err
		}
		c.Reset()
		c.valid, c.sizeR, c.sizeY, c.obj = true, sizeR, sizeY, obj
	} else {
		c.hits++
	}

	if instanceShared {
		return c.obj.Instance(), nil
	}
	dup, err := c.obj.DeepCopy()
	if err != nil {
		return nil, fmt.Errorf("scene: deliver copy: %w", err)
	}
	return dup, nil
}

// Reset drops the cached entry.
func (c *Cache) Reset() {
	if c.obj != nil {
		c.obj.Release()
	}
	c.valid, c.sizeR, c.sizeY, c.obj = false, 0, 0, nil
}

// Cached returns the cached object, or nil.
func (c *Cache) Cached() *Object {
	return c.obj
}

// Stats returns the number of cache hits and misses recorded so far.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

package show

// Counter tracks the highest fragment defined so far on one slide.
// It only ever grows. Counter is not safe for concurrent use; document
// construction is single-threaded.
type Counter struct {
	max int
}

// NewCounter returns a counter starting at fragment 1.
func NewCounter() *Counter {
	return &Counter{max: 1}
}

// Current returns the watermark.
func (c *Counter) Current() int { return c.max }

// Raise lifts the watermark to at least n and returns the new value.
func (c *Counter) Raise(n int) int {
	c.max = max(c.max, n)
	return c.max
}

// Observe raises the watermark to cover everything info mentions.
func (c *Counter) Observe(info Info) int {
	return c.Raise(max(info.MaxStep(), info.MinSteps()))
}

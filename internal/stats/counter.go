package stats

// Counter is a running total of type T.
type Counter[T Number] struct {
	label
	count T
}

// NewCounter creates a counter starting at zero.
func NewCounter[T Number](key, context string) *Counter[T] {
	return &Counter[T]{label: label{key: key, context: context}}
}

// Update increments the counter by one.
func (c *Counter[T]) Update() {
	c.count++
}

// Add increments the counter by v. Negative values are not rejected.
func (c *Counter[T]) Add(v T) {
	c.count += v
}

// Count returns the current total.
func (c *Counter[T]) Count() T {
	return c.count
}

// Float returns the current total as a float64.
func (c *Counter[T]) Float() float64 {
	return float64(c.count)
}

func (*Counter[T]) producer() {}

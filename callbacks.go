package activerecord

// Point identifies a lifecycle callback position.
type Point int

const (
	BeforeSave Point = iota
	AfterSave
	BeforeCreate
	AfterCreate
	BeforeDelete
	AfterDelete
)

// CallbackManager runs the callbacks registered for a lifecycle point.
// Returning false halts the calling operation.
type CallbackManager interface {
	Run(r *Record, point Point) bool
}

// CallbackFunc is one lifecycle hook. Returning false halts the operation
// for before-hooks; after-hook results are ignored by the persistence layer.
type CallbackFunc func(r *Record) bool

// Callbacks is the stock CallbackManager: per-point hook lists run in
// registration order.
type Callbacks struct {
	hooks map[Point][]CallbackFunc
}

// NewCallbacks creates an empty callback set.
func NewCallbacks() *Callbacks {
	return &Callbacks{hooks: map[Point][]CallbackFunc{}}
}

// On registers a hook for a lifecycle point.
func (c *Callbacks) On(point Point, fn CallbackFunc) *Callbacks {
	c.hooks[point] = append(c.hooks[point], fn)
	return c
}

// Run implements CallbackManager. Hooks run in registration order; the
// first false short-circuits.
func (c *Callbacks) Run(r *Record, point Point) bool {
	for _, fn := range c.hooks[point] {
		if !fn(r) {
			return false
		}
	}
	return true
}

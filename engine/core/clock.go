package core

// TimeSource returns a monotonic time in seconds.
type TimeSource func() float64

type Clock struct {
	now       TimeSource
	startTime float64
	elapsed   float64
	lastTime  float64
	delta     float64
	running   bool
}

func NewClock(now TimeSource) *Clock {
	return &Clock{now: now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.now() - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.now()
	c.elapsed = 0
	c.lastTime = 0
	c.delta = 0
	c.running = true
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Tick updates the clock and returns the seconds since the previous Tick.
func (c *Clock) Tick() float64 {
	c.Update()
	c.delta = c.elapsed - c.lastTime
	if c.delta < 0 {
		c.delta = 0
	}
	c.lastTime = c.elapsed
	return c.delta
}

// Delta returns the result of the last Tick.
func (c *Clock) Delta() float64 {
	return c.delta
}

package pressure

const (
	// DefaultScalingFactor compresses the sensor range to the 0-127 control range.
	DefaultScalingFactor = 6
	DefaultUpperBound    = 127
)

type Config struct {
	ScalingFactor int
	UpperBound    int
}

type Option func(*Config)

// WithScalingFactor sets the divisor applied to the calibrated reading.
func WithScalingFactor(factor int) Option {
	return func(c *Config) {
		c.ScalingFactor = factor
	}
}

func WithUpperBound(bound int) Option {
	return func(c *Config) {
		c.UpperBound = bound
	}
}

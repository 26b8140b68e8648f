package led

// MaxLEDs is the capacity of every Canvas. Canvases never grow beyond it.
const MaxLEDs = 300

const (
	// DefaultLEDFullMA is the assumed draw of one LED at full white.
	DefaultLEDFullMA = 60
	// MaxLEDFullMA is the highest accepted per-LED full white draw.
	MaxLEDFullMA = 120
	// MaxPowerLimitMA is the highest accepted power budget.
	MaxPowerLimitMA = 100000

	// powerThreshold is the fraction of the budget above which brightness is
	// scaled down.
	powerThreshold = 0.9
	// powerSmoothing is the EMA weight of a new scale factor.
	powerSmoothing = 0.3
)

// Strip is the hardware side of a Canvas. Both methods are expected to be
// synchronous and bounded by the number of LEDs.
type Strip interface {
	// SetBrightness sets the global brightness register applied to the next
	// Write.
	SetBrightness(uint8)
	// Write pushes the colors to the physical LEDs.
	Write(LEDs) error
}

// Canvas owns the LED buffer of one strip. The buffer is a fixed arena of
// MaxLEDs colors; only the first Len of them are ever read or written.
type Canvas struct {
	arena [MaxLEDs]RGBColor
	n     int
	strip Strip

	brightness uint8
	limitMA    int
	ledFullMA  int

	lastScale      float64
	lastEstimateMA int
	effective      uint8
}

// NewCanvas creates a canvas of n LEDs flushing into strip. n is clamped to
// [0, MaxLEDs]. strip may be nil, in which case Show only updates the power
// estimate.
func NewCanvas(n int, strip Strip) *Canvas {
	return &Canvas{
		n:          clampInt(n, 0, MaxLEDs),
		strip:      strip,
		brightness: 255,
		ledFullMA:  DefaultLEDFullMA,
		lastScale:  1,
		effective:  255,
	}
}

// Len returns the configured number of LEDs.
func (c *Canvas) Len() int { return c.n }

// Cap returns the capacity of the canvas.
func (c *Canvas) Cap() int { return len(c.arena) }

// Pixels returns the active part of the buffer. The slice aliases the canvas.
func (c *Canvas) Pixels() LEDs { return c.arena[:c.n] }

// Pixel returns the color at i, or black if i is out of range.
func (c *Canvas) Pixel(i int) RGBColor {
	if i < 0 || i >= c.n {
		return Black
	}
	return c.arena[i]
}

// Clear turns every LED off.
func (c *Canvas) Clear() {
	clear(c.arena[:c.n])
}

// SetPixel overwrites the color at i. Out of range indices are ignored.
func (c *Canvas) SetPixel(i int, color RGBColor) {
	if i < 0 || i >= c.n {
		return
	}
	c.arena[i] = color
}

// BlendPixel ORs the color into the existing color at i. Out of range
// indices are ignored.
func (c *Canvas) BlendPixel(i int, color RGBColor) {
	if i < 0 || i >= c.n {
		return
	}
	c.arena[i] = c.arena[i].Or(color)
}

// Brightness returns the requested global brightness.
func (c *Canvas) Brightness() uint8 { return c.brightness }

// SetBrightness sets the requested global brightness.
func (c *Canvas) SetBrightness(b uint8) { c.brightness = b }

// PowerLimitMA returns the power budget in milliamps. Zero disables limiting.
func (c *Canvas) PowerLimitMA() int { return c.limitMA }

// SetPowerLimitMA sets the power budget, clamped to [0, MaxPowerLimitMA].
func (c *Canvas) SetPowerLimitMA(mA int) {
	c.limitMA = clampInt(mA, 0, MaxPowerLimitMA)
}

// LEDFullMA returns the draw of a single LED at full white.
func (c *Canvas) LEDFullMA() int { return c.ledFullMA }

// SetLEDFullMA sets the draw of a single LED at full white. Non-positive
// values select DefaultLEDFullMA; values above MaxLEDFullMA are clamped.
func (c *Canvas) SetLEDFullMA(mA int) {
	if mA <= 0 {
		mA = DefaultLEDFullMA
	}
	c.ledFullMA = clampInt(mA, 1, MaxLEDFullMA)
}

// LastEstimateMA returns the current draw estimated by the last Show.
func (c *Canvas) LastEstimateMA() int { return c.lastEstimateMA }

// EffectiveBrightness returns the brightness applied by the last Show.
func (c *Canvas) EffectiveBrightness() uint8 { return c.effective }

// Show estimates the current draw of the buffer, scales the global brightness
// down when the estimate exceeds the power budget, and flushes the buffer to
// the strip.
func (c *Canvas) Show() error {
	estimate := float64(c.ledFullMA) * float64(c.Pixels().ChannelSum()) / (255 * 3)
	c.lastEstimateMA = int(estimate + 0.5)

	scale := 1.0
	if c.limitMA > 0 {
		threshold := float64(c.limitMA) * powerThreshold
		if estimate > threshold {
			// Ease towards the threshold instead of dropping at once.
			scale = c.lastScale*(1-powerSmoothing) + (threshold/estimate)*powerSmoothing
			c.lastScale = scale
		}
	}

	effective := float64(c.brightness) * scale
	switch {
	case effective > 255:
		effective = 255
	case effective < 0:
		effective = 0
	}
	c.effective = uint8(effective)

	if c.strip == nil {
		return nil
	}

	c.strip.SetBrightness(c.effective)
	return c.strip.Write(c.Pixels())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

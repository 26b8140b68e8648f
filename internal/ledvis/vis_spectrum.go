package ledvis

import "libdb.so/audioglow/internal/led"

// SpectrumVariant splits the path into thirds and draws the low band in blue,
// the mid band in green and the high band in red.
type SpectrumVariant struct{}

// Render implements Variant.
func (SpectrumVariant) Render(f *Frame) {
	n := f.Path.Size()
	lowSize := n / 3
	midSize := n / 3
	highSize := n - lowSize - midSize

	sections := [3]struct {
		offset, size int
		level        float64
		color        led.RGBColor
	}{
		{0, lowSize, f.Analysis.Low(), led.Blue},
		{lowSize, midSize, f.Analysis.Mid(), led.Green},
		{lowSize + midSize, highSize, f.Analysis.High(), led.Red},
	}

	canvas := f.Path.Canvas()
	for _, s := range sections {
		active := int(clamp01(s.level*f.Sensitivity) * float64(s.size))
		for i := 0; i < active; i++ {
			canvas.SetPixel(f.Path.Node(s.offset+i), s.color)
		}
	}
}

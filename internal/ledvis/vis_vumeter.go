package ledvis

import "libdb.so/audioglow/internal/led"

// vuHueStart is the 8-bit hue of the first LED of the bar; the gradient runs
// down to red at the end of the path.
const vuHueStart = 160

// VUMeterVariant draws a volume bar with a hue gradient along the path.
type VUMeterVariant struct{}

// Render implements Variant.
func (VUMeterVariant) Render(f *Frame) {
	n := f.Path.Size()
	active := f.activeLength(f.Analysis.Level())

	canvas := f.Path.Canvas()
	for i := 0; i < active; i++ {
		hue := vuHueStart - i*vuHueStart/n
		canvas.SetPixel(f.Path.Node(i), led.HSV8(uint8(hue)))
	}
}

package measure

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/depthward/stereodepth/raster"
)

// DrawMeasurement renders a completed measurement over the rectified image:
// the two picked pixels, the segment between them, and the distance label.
func DrawMeasurement(img *raster.Image, m *Measurement) image.Image {
	dc := gg.NewContextForImage(img)

	ax, ay := float64(m.PixelA[0]), float64(m.PixelA[1])
	bx, by := float64(m.PixelB[0]), float64(m.PixelB[1])

	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(2)
	dc.DrawLine(ax, ay, bx, by)
	dc.Stroke()

	for _, p := range [][2]float64{{ax, ay}, {bx, by}} {
		dc.DrawCircle(p[0], p[1], 4)
		dc.Stroke()
	}

	label := fmt.Sprintf("%.3f m", m.DistanceMeters)
	lx := (ax+bx)/2 + 6
	ly := (ay+by)/2 - 6
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(label, lx+1, ly+1, 0, 0)
	dc.SetRGB(0, 1, 0)
	dc.DrawStringAnchored(label, lx, ly, 0, 0)

	return dc.Image()
}

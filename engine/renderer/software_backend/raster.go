package software_backend

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// frameBuffer holds the render target as flat slices for cache locality.
type frameBuffer struct {
	width  int
	height int
	color  []uint8   // RGBA interleaved, len = W*H*4
	depth  []float64 // NDC depth per pixel, len = W*H, cleared to +inf
}

func newFrameBuffer(w, h int) *frameBuffer {
	return &frameBuffer{
		width:  w,
		height: h,
		color:  make([]uint8, w*h*4),
		depth:  make([]float64, w*h),
	}
}

func (fb *frameBuffer) clear(c [4]uint8) {
	for i := 0; i < len(fb.color); i += 4 {
		fb.color[i] = c[0]
		fb.color[i+1] = c[1]
		fb.color[i+2] = c[2]
		fb.color[i+3] = c[3]
	}
	inf := math.Inf(1)
	for i := range fb.depth {
		fb.depth[i] = inf
	}
}

// screenVertex is a clip-space vertex after perspective divide and viewport transform.
// invW and the attributes pre-divided by w allow perspective-correct interpolation.
type screenVertex struct {
	x, y, z        float64
	invW           float64
	influenceOverW float64
}

// toScreen maps a clip position to pixel coordinates. The y axis points down in the image.
//
// Returns false when the vertex is on or behind the eye plane (w <= 0).
func toScreen(clip mgl32.Vec4, influence float32, width, height int) (screenVertex, bool) {
	w := float64(clip[3])
	if !(w > 0) {
		return screenVertex{}, false
	}
	invW := 1 / w
	ndcX := float64(clip[0]) * invW
	ndcY := float64(clip[1]) * invW
	ndcZ := float64(clip[2]) * invW
	return screenVertex{
		x:              (ndcX + 1) * 0.5 * float64(width),
		y:              (1 - ndcY) * 0.5 * float64(height),
		z:              ndcZ,
		invW:           invW,
		influenceOverW: float64(influence) * invW,
	}, true
}

// rasterizeTriangle fills a triangle with a depth test against GL normalized depth in [-1, 1];
// fragments outside that range are the near and far clip. The color is the gradient between root
// and tip, driven by the perspective-correct joint-1 influence.
//
// This is the hot path and does not allocate.
func rasterizeTriangle(fb *frameBuffer, v0, v1, v2 screenVertex, root, tip [3]float32) {
	x0, y0 := v0.x, v0.y
	x1, y1 := v1.x, v1.y
	x2, y2 := v2.x, v2.y

	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))

	if minX < 0 {
		minX = 0
	}
	if maxX > fb.width-1 {
		maxX = fb.width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY > fb.height-1 {
		maxY = fb.height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*v0.z + w1*v1.z + w2*v2.z
			if z < -1 || z > 1 {
				continue
			}
			idx := rowOff + sx
			if z >= fb.depth[idx] {
				continue
			}
			fb.depth[idx] = z

			invW := w0*v0.invW + w1*v1.invW + w2*v2.invW
			bend := (w0*v0.influenceOverW + w1*v1.influenceOverW + w2*v2.influenceOverW) / invW
			bend = math.Max(0, math.Min(1, bend))

			px := idx * 4
			fb.color[px] = clamp255(mix(root[0], tip[0], bend) * 255)
			fb.color[px+1] = clamp255(mix(root[1], tip[1], bend) * 255)
			fb.color[px+2] = clamp255(mix(root[2], tip[2], bend) * 255)
			fb.color[px+3] = 255
		}
	}
}

// resolve converts the frame buffer to an image of the target size, downsampling supersampled
// frames with CatmullRom.
func resolve(fb *frameBuffer, width, height int) *image.NRGBA {
	full := image.NewNRGBA(image.Rect(0, 0, fb.width, fb.height))
	copy(full.Pix, fb.color)
	if fb.width == width && fb.height == height {
		return full
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), full, full.Bounds(), draw.Src, nil)
	return dst
}

func mix(a, b float32, t float64) float64 {
	return float64(a)*(1-t) + float64(b)*t
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

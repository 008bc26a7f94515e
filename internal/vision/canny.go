package vision

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// plane is a row-major single-channel image of 0-255 intensities.
type plane struct {
	w, h int
	pix  []float64
}

func (p plane) at(x, y int) float64 {
	return p.pix[clamp(y, 0, p.h-1)*p.w+clamp(x, 0, p.w-1)]
}

// grayPlane converts img to luminance.
func grayPlane(img image.Image) plane {
	g := effect.Grayscale(img)
	b := g.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+p.w]
		for x, v := range row {
			p.pix[y*p.w+x] = float64(v)
		}
	}
	return p
}

// blurredPlane converts img to luminance and applies a Gaussian blur of
// the given radius. The kernel spans 2*radius+1 taps, so only whole radii
// keep it centred on the pixel.
func blurredPlane(img image.Image, radius int) plane {
	if radius <= 0 {
		return grayPlane(img)
	}
	rgba := blur.Gaussian(effect.Grayscale(img), float64(radius))
	b := rgba.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		off := y * rgba.Stride
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = float64(rgba.Pix[off+x*4])
		}
	}
	return p
}

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// sobel returns the 3x3 Sobel derivatives of p. Borders replicate edge pixels.
func sobel(p plane) (gx, gy []float64) {
	gx = make([]float64, len(p.pix))
	gy = make([]float64, len(p.pix))
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var sx, sy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := p.at(x+kx, y+ky)
					sx += v * sobelX[ky+1][kx+1]
					sy += v * sobelY[ky+1][kx+1]
				}
			}
			gx[y*p.w+x] = sx
			gy[y*p.w+x] = sy
		}
	}
	return gx, gy
}

// canny returns an edge map of p: true where an edge pixel survives
// non-maximum suppression and hysteresis between low and high.
func canny(p plane, low, high float64) []bool {
	w, h := p.w, p.h
	gx, gy := sobel(p)

	magnitude := make([]float64, w*h)
	for i := range magnitude {
		magnitude[i] = math.Hypot(gx[i], gy[i])
	}

	// Keep only local maxima across the gradient direction.
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			mag := magnitude[i]
			if mag == 0 {
				continue
			}
			angle := math.Atan2(gy[i], gx[i])

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-w-1], magnitude[i+w+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-w], magnitude[i+w]
			default:
				n1, n2 = magnitude[i-w+1], magnitude[i+w-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Hysteresis: grow from strong pixels through weak ones.
	edges := make([]bool, w*h)
	stack := make([]int, 0, 256)
	for i, v := range suppressed {
		if v >= high && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if !edges[j] && suppressed[j] >= low {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

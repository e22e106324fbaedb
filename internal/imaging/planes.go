package imaging

import "image"

// Plane is a row-major float matrix indexed [y][x].
type Plane [][]float64

// GrayPlane converts an image to grayscale as the plain mean of R, G and B.
func GrayPlane(img *image.RGBA) Plane {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	gray := make(Plane, height)
	for y := range height {
		row := make([]float64, width)
		off := y * img.Stride
		for x := range width {
			p := img.Pix[off+x*4 : off+x*4+3 : off+x*4+3]
			row[x] = (float64(p[0]) + float64(p[1]) + float64(p[2])) / 3
		}
		gray[y] = row
	}
	return gray
}

// ChannelValues returns the R, G and B samples of every pixel, one slice per channel.
func ChannelValues(img *image.RGBA) [3][]uint8 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var out [3][]uint8
	for c := range out {
		out[c] = make([]uint8, 0, width*height)
	}
	for y := range height {
		off := y * img.Stride
		for x := range width {
			i := off + x*4
			out[0] = append(out[0], img.Pix[i])
			out[1] = append(out[1], img.Pix[i+1])
			out[2] = append(out[2], img.Pix[i+2])
		}
	}
	return out
}

package track

import (
	"errors"

	"github.com/streamshim/rtcbridge/pkg/frame"
)

// ErrScaleGeometry is returned when the destination frame is larger than
// the source; these scalers only downsample.
var ErrScaleGeometry = errors.New("destination must not be larger than source")

// DownscaleI420 downsamples src into dst with a box filter. dst must be
// allocated at the target dimensions. Equal dimensions degrade to a copy.
func DownscaleI420(src, dst *frame.VideoFrame) error {
	if dst.Width > src.Width || dst.Height > src.Height {
		return ErrScaleGeometry
	}
	if dst.Width == src.Width && dst.Height == src.Height {
		copyPlanes(src, dst)
		return nil
	}

	boxPlane(src.Data[0], dst.Data[0], src.Width, src.Height, dst.Width, dst.Height, src.Stride[0], dst.Stride[0])
	boxPlane(src.Data[1], dst.Data[1], (src.Width+1)/2, (src.Height+1)/2, (dst.Width+1)/2, (dst.Height+1)/2, src.Stride[1], dst.Stride[1])
	boxPlane(src.Data[2], dst.Data[2], (src.Width+1)/2, (src.Height+1)/2, (dst.Width+1)/2, (dst.Height+1)/2, src.Stride[2], dst.Stride[2])
	return nil
}

// DownscaleI420Fast downsamples with nearest-neighbor sampling. Noticeably
// lower quality than DownscaleI420 but roughly an order of magnitude
// cheaper for large ratios.
func DownscaleI420Fast(src, dst *frame.VideoFrame) error {
	if dst.Width > src.Width || dst.Height > src.Height {
		return ErrScaleGeometry
	}
	if dst.Width == src.Width && dst.Height == src.Height {
		copyPlanes(src, dst)
		return nil
	}

	nearestPlane(src.Data[0], dst.Data[0], src.Width, src.Height, dst.Width, dst.Height, src.Stride[0], dst.Stride[0])
	nearestPlane(src.Data[1], dst.Data[1], (src.Width+1)/2, (src.Height+1)/2, (dst.Width+1)/2, (dst.Height+1)/2, src.Stride[1], dst.Stride[1])
	nearestPlane(src.Data[2], dst.Data[2], (src.Width+1)/2, (src.Height+1)/2, (dst.Width+1)/2, (dst.Height+1)/2, src.Stride[2], dst.Stride[2])
	return nil
}

func copyPlanes(src, dst *frame.VideoFrame) {
	for i := range dst.Data {
		copy(dst.Data[i], src.Data[i])
	}
}

// boxPlane averages each source region covered by a destination pixel.
func boxPlane(src, dst []byte, srcW, srcH, dstW, dstH, srcStride, dstStride int) {
	for dy := 0; dy < dstH; dy++ {
		sy0 := dy * srcH / dstH
		sy1 := (dy + 1) * srcH / dstH
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		if sy1 > srcH {
			sy1 = srcH
		}
		dstRow := dy * dstStride

		for dx := 0; dx < dstW; dx++ {
			sx0 := dx * srcW / dstW
			sx1 := (dx + 1) * srcW / dstW
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			if sx1 > srcW {
				sx1 = srcW
			}

			sum, count := 0, 0
			for sy := sy0; sy < sy1; sy++ {
				row := sy * srcStride
				for sx := sx0; sx < sx1; sx++ {
					sum += int(src[row+sx])
					count++
				}
			}
			dst[dstRow+dx] = byte(sum / count)
		}
	}
}

func nearestPlane(src, dst []byte, srcW, srcH, dstW, dstH, srcStride, dstStride int) {
	for dy := 0; dy < dstH; dy++ {
		srcRow := (dy * srcH / dstH) * srcStride
		dstRow := dy * dstStride
		for dx := 0; dx < dstW; dx++ {
			dst[dstRow+dx] = src[srcRow+dx*srcW/dstW]
		}
	}
}

//go:build linux

package v4l2dev

import (
	"fmt"
	"log/slog"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/pkg/linuxav/v4l2"
)

// intervalLister returns the frame intervals for a size.
type intervalLister func(width, height uint32) ([]v4l2.FrameInterval, error)

func probeCaps(dev *v4l2.Device, logger *slog.Logger) (caps.Set, error) {
	formats, err := dev.Formats()
	if err != nil {
		return nil, err
	}

	var set caps.Set
	for _, f := range formats {
		fourcc := v4l2.FormatFourCC(f.PixelFormat)
		pf, ok := lookupFourCC(fourcc)
		if !ok {
			logger.Debug("Skipping unsupported pixel format", "fourcc", fourcc, "name", f.FormatName)
			continue
		}
		sizes, err := dev.FrameSizes(f.PixelFormat)
		if err != nil {
			return nil, err
		}
		lister := func(w, h uint32) ([]v4l2.FrameInterval, error) {
			return dev.FrameIntervals(f.PixelFormat, w, h)
		}
		descs, err := describe(pf, sizes, lister)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", fourcc, err)
		}
		set = append(set, descs...)
	}
	return set, nil
}

// describe turns the enumerated sizes of one pixel format into
// descriptors. A driver without size enumeration gets the full range.
func describe(pf pixelFormat, sizes []v4l2.FrameSize, intervals intervalLister) (caps.Set, error) {
	base := caps.Descriptor{Media: pf.media}
	if pf.name != "" {
		base.PixelFormat = caps.Str(pf.name)
	}

	if len(sizes) == 0 {
		d := base
		d.Width = caps.IntRange(1, 32768)
		d.Height = caps.IntRange(1, 32768)
		d.FrameRate = caps.FractionRange(caps.Frac(0, 1), caps.Frac(2147483647, 1))
		return caps.Set{d}, nil
	}

	var set caps.Set
	for _, s := range sizes {
		d := base
		var w, h uint32
		if s.Discrete {
			w, h = s.Size()
			d.Width = caps.Int(int(w))
			d.Height = caps.Int(int(h))
		} else {
			w, h = s.MaxWidth, s.MaxHeight
			d.Width = caps.IntRange(int(s.MinWidth), int(s.MaxWidth))
			d.Height = caps.IntRange(int(s.MinHeight), int(s.MaxHeight))
		}

		ivs, err := intervals(w, h)
		if err != nil {
			return nil, err
		}
		d.FrameRate = frameRates(ivs)
		set = append(set, d)
	}
	return set, nil
}

// frameRates inverts frame intervals into frame rates, fastest first.
func frameRates(ivs []v4l2.FrameInterval) caps.FractionField {
	if len(ivs) == 0 {
		return caps.FractionAny()
	}
	if !ivs[0].Discrete {
		lo := toRate(ivs[0].Max)
		hi := toRate(ivs[0].Min)
		return caps.FractionRange(lo, hi)
	}

	rates := make([]caps.Fraction, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Min.Numerator == 0 {
			continue
		}
		rates = append(rates, toRate(iv.Min))
	}
	if len(rates) == 0 {
		return caps.FractionAny()
	}
	return caps.FractionList(rates...)
}

func toRate(interval v4l2.Fract) caps.Fraction {
	return caps.Frac(int(interval.Denominator), int(interval.Numerator))
}

// toPix converts a fixed descriptor to a V4L2 format request.
func toPix(d caps.Descriptor) (v4l2.PixFormat, error) {
	pf, ok := lookupDescriptor(d)
	if !ok {
		return v4l2.PixFormat{}, fmt.Errorf("unsupported format: %s", d)
	}
	w, h, ok := d.Size()
	if !ok {
		return v4l2.PixFormat{}, fmt.Errorf("size not fixed: %s", d)
	}
	field := uint32(v4l2.FieldNone)
	if mode, ok := d.Interlace.Fixed(); ok && mode != caps.InterlaceProgressive {
		field = v4l2.FieldInterlaced
	}
	return v4l2.PixFormat{
		Width:       uint32(w),
		Height:      uint32(h),
		PixelFormat: v4l2.FourCC(pf.fourcc),
		Field:       field,
	}, nil
}

// matchPix fails when the driver adjusted the requested format.
func matchPix(want, got v4l2.PixFormat) error {
	if want.Width != got.Width || want.Height != got.Height || want.PixelFormat != got.PixelFormat {
		return fmt.Errorf("driver adjusted format to %s %dx%d, want %s %dx%d",
			v4l2.FormatFourCC(got.PixelFormat), got.Width, got.Height,
			v4l2.FormatFourCC(want.PixelFormat), want.Width, want.Height)
	}
	return nil
}

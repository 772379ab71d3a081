package v4l2dev

import (
	"github.com/smazurov/ispsrc/internal/caps"
)

// pixelFormat maps a V4L2 fourcc to its media type and raw format name.
type pixelFormat struct {
	fourcc string
	media  string
	name   string // empty for compressed media
}

// pixelFormats is in preference order: enumerated fields resolve to the
// first supported entry.
var pixelFormats = []pixelFormat{
	{"NV12", caps.MediaRaw, "NV12"},
	{"NV21", caps.MediaRaw, "NV21"},
	{"NV16", caps.MediaRaw, "NV16"},
	{"YU12", caps.MediaRaw, "I420"},
	{"YV12", caps.MediaRaw, "YV12"},
	{"YUYV", caps.MediaRaw, "YUY2"},
	{"UYVY", caps.MediaRaw, "UYVY"},
	{"RGB3", caps.MediaRaw, "RGB"},
	{"BGR3", caps.MediaRaw, "BGR"},
	{"GREY", caps.MediaRaw, "GRAY8"},
	{"MJPG", caps.MediaJPEG, ""},
	{"H264", caps.MediaH264, ""},
	{"HEVC", caps.MediaHEVC, ""},
}

func lookupFourCC(fourcc string) (pixelFormat, bool) {
	for _, pf := range pixelFormats {
		if pf.fourcc == fourcc {
			return pf, true
		}
	}
	return pixelFormat{}, false
}

func lookupDescriptor(d caps.Descriptor) (pixelFormat, bool) {
	name, _ := d.PixelFormat.Fixed()
	for _, pf := range pixelFormats {
		if pf.media == d.Media && pf.name == name {
			return pf, true
		}
	}
	return pixelFormat{}, false
}

// TemplateCaps is every format a V4L2 device can be asked to produce.
func TemplateCaps() caps.Set {
	var raw []string
	var set caps.Set
	for _, pf := range pixelFormats {
		if pf.name != "" {
			raw = append(raw, pf.name)
		}
	}
	size := caps.IntRange(1, 32768)
	rate := caps.FractionRange(caps.Frac(0, 1), caps.Frac(2147483647, 1))

	set = append(set, caps.Descriptor{
		Media:       caps.MediaRaw,
		PixelFormat: caps.StrList(raw...),
		Width:       size,
		Height:      size,
		FrameRate:   rate,
	})
	for _, pf := range pixelFormats {
		if pf.name == "" {
			set = append(set, caps.Descriptor{Media: pf.media, Width: size, Height: size, FrameRate: rate})
		}
	}
	return set
}

// preferredResolver resolves enumerated fields in pixelFormats order.
type preferredResolver struct{}

func (preferredResolver) Resolve(field string, f caps.StringField) (string, bool) {
	if field == caps.FieldFormat {
		for _, pf := range pixelFormats {
			if pf.name != "" && f.Kind != caps.KindAny && f.Contains(pf.name) {
				return pf.name, true
			}
		}
	}
	return f.First()
}

// Resolver returns the resolver used to fixate formats for V4L2 devices.
func Resolver() caps.Resolver {
	return preferredResolver{}
}

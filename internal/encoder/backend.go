package encoder

import (
	"fmt"
	"slices"
	"strings"
)

// Backend describes how ffmpeg drives one video encoder.
type Backend struct {
	Name string
	// InputFlags precede -i (hardware decode/upload setup).
	InputFlags []string
	// CodecFlags follow -c:v.
	CodecFlags []string
	// ProbeInputFlags and ProbeFlags adapt the synthetic capability probe.
	ProbeInputFlags []string
	ProbeFlags      []string
	// PinFrameRate appends -filter:v fps=<source fps> to encodes.
	PinFrameRate bool
	// SplitParallel encodes two segments concurrently and stitches them.
	SplitParallel bool
	// TwoPass runs an analysis pass before the final pass.
	TwoPass  bool
	Software bool
}

// Software is the universal fallback encoder name.
const Software = "libx265"

var backends = []Backend{
	{
		Name:          "hevc_nvenc",
		InputFlags:    []string{"-hwaccel", "cuda", "-hwaccel_output_format", "cuda"},
		CodecFlags:    []string{"-preset", "p5"},
		SplitParallel: true,
		TwoPass:       true,
	},
	{
		Name:            "hevc_vaapi",
		InputFlags:      []string{"-init_hw_device", "vaapi", "-hwaccel", "vaapi"},
		CodecFlags:      []string{"-vf", "format=nv12,hwupload"},
		ProbeInputFlags: []string{"-init_hw_device", "vaapi"},
		ProbeFlags:      []string{"-vf", "format=nv12,hwupload"},
		SplitParallel:   true,
	},
	{
		Name:          "hevc_videotoolbox",
		CodecFlags:    []string{"-allow_sw", "1", "-realtime", "0"},
		SplitParallel: true,
	},
	{
		Name:          "hevc_amf",
		InputFlags:    []string{"-hwaccel", "d3d11va", "-hwaccel_output_format", "d3d11"},
		CodecFlags:    []string{"-usage", "transcoding", "-quality", "balanced", "-rc", "cbr"},
		SplitParallel: true,
	},
	{
		Name:          "hevc_qsv",
		InputFlags:    []string{"-hwaccel", "qsv", "-hwaccel_output_format", "qsv"},
		CodecFlags:    []string{"-load_plugin", "hevc_hw", "-preset", "medium"},
		SplitParallel: true,
	},
	{
		Name:         Software,
		CodecFlags:   []string{"-preset", "medium", "-tag:v", "hvc1"},
		PinFrameRate: true,
		Software:     true,
	},
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, backend := range backends {
		if backend.Name == name {
			return clone(backend), true
		}
	}
	return Backend{}, false
}

// MustLookup is Lookup for names known to be in the table.
func MustLookup(name string) Backend {
	backend, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("encoder: unknown backend %q", name))
	}
	return backend
}

// Names lists every registered backend in table order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for _, backend := range backends {
		names = append(names, backend.Name)
	}
	return names
}

// Candidates returns the hardware probe order for a GOOS value. The software
// fallback is implicit and not included.
func Candidates(goos string) []string {
	switch goos {
	case "linux":
		return []string{"hevc_nvenc", "hevc_vaapi"}
	case "darwin":
		return []string{"hevc_videotoolbox"}
	case "windows":
		return []string{"hevc_nvenc", "hevc_amf", "hevc_qsv"}
	default:
		return []string{"hevc_nvenc", "hevc_vaapi", "hevc_videotoolbox", "hevc_amf", "hevc_qsv"}
	}
}

func clone(b Backend) Backend {
	b.InputFlags = slices.Clone(b.InputFlags)
	b.CodecFlags = slices.Clone(b.CodecFlags)
	b.ProbeInputFlags = slices.Clone(b.ProbeInputFlags)
	b.ProbeFlags = slices.Clone(b.ProbeFlags)
	return b
}

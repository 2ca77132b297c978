package ffmpeg

import (
	"os"
	"strings"
	"testing"

	"videocompress/internal/encoder"
)

func TestEncodeArgsNVENCPasses(t *testing.T) {
	nvenc := encoder.MustLookup("hevc_nvenc")
	spec := EncodeSpec{
		Input:   "/in/movie.mkv",
		Output:  "/ws/segment-a.mp4",
		Backend: nvenc,
		Kbps:    1500,
		Span:    &Span{Start: 0, End: 42.5},
		Pass:    AnalysisPass,
		PassLog: "/ws/passlog-a",
	}
	got := strings.Join(EncodeArgs(spec), " ")
	want := "-hide_banner -nostdin -y -hwaccel cuda -hwaccel_output_format cuda -ss 0.000000 -to 42.500000 -i /in/movie.mkv " +
		"-c:v hevc_nvenc -preset p5 -b:v 1500k -maxrate:v 1500k -bufsize:v 3000k -pass 1 -passlogfile /ws/passlog-a " +
		"-loglevel error -stats -f null " + os.DevNull
	if got != want {
		t.Fatalf("pass 1 args:\n got %s\nwant %s", got, want)
	}

	spec.Pass = FinalPass
	spec.Span = &Span{Start: 42.5}
	got = strings.Join(EncodeArgs(spec), " ")
	want = "-hide_banner -nostdin -y -hwaccel cuda -hwaccel_output_format cuda -ss 42.500000 -i /in/movie.mkv " +
		"-c:v hevc_nvenc -preset p5 -b:v 1500k -maxrate:v 1500k -bufsize:v 3000k -pass 2 -passlogfile /ws/passlog-a " +
		"-loglevel error -stats -c:a copy /ws/segment-a.mp4"
	if got != want {
		t.Fatalf("pass 2 args:\n got %s\nwant %s", got, want)
	}
}

func TestEncodeArgsSoftwarePinsFrameRate(t *testing.T) {
	spec := EncodeSpec{
		Input:     "in.mp4",
		Output:    "out.mp4",
		Backend:   encoder.MustLookup(encoder.Software),
		Kbps:      800,
		FrameRate: 29.97,
	}
	args := EncodeArgs(spec)
	got := strings.Join(args, " ")
	for _, fragment := range []string{"-c:v libx265 -preset medium -tag:v hvc1", "-filter:v fps=29.97", "-c:a copy out.mp4"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in %s", fragment, got)
		}
	}
	if strings.Contains(got, "-ss") || strings.Contains(got, "-pass") {
		t.Fatalf("single unsplit pass should not seek or use pass flags: %s", got)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Fatalf("output must be the last argument: %v", args)
	}
}

func TestEncodeArgsHardwareSinglePass(t *testing.T) {
	spec := EncodeSpec{
		Input:     "in.mp4",
		Output:    "seg.mp4",
		Backend:   encoder.MustLookup("hevc_vaapi"),
		Kbps:      1000,
		FrameRate: 25,
		Span:      &Span{Start: 10},
	}
	got := strings.Join(EncodeArgs(spec), " ")
	if !strings.HasPrefix(got, "-hide_banner -nostdin -y -init_hw_device vaapi -hwaccel vaapi -ss 10.000000 -i in.mp4") {
		t.Fatalf("unexpected prefix: %s", got)
	}
	if !strings.Contains(got, "-vf format=nv12,hwupload") {
		t.Fatalf("expected vaapi upload filter: %s", got)
	}
	if strings.Contains(got, "fps=") {
		t.Fatalf("hardware backends do not pin frame rate: %s", got)
	}
}

func TestConcatArgs(t *testing.T) {
	got := strings.Join(ConcatArgs("/ws/concat.txt", "/out/final.mp4"), " ")
	want := "-hide_banner -nostdin -loglevel error -f concat -safe 0 -i /ws/concat.txt -c copy -y /out/final.mp4"
	if got != want {
		t.Fatalf("concat args:\n got %s\nwant %s", got, want)
	}
}

func TestPassString(t *testing.T) {
	if AnalysisPass.String() != "pass 1" || FinalPass.String() != "pass 2" || SinglePass.String() != "single pass" {
		t.Fatal("unexpected pass labels")
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"videocompress/internal/config"
	"videocompress/internal/testsupport"
)

const stubProbeJSON = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","avg_frame_rate":"25/1","width":1280,"height":720},{"index":1,"codec_type":"audio","codec_name":"aac","bit_rate":"96000"}],"format":{"duration":"120.000000"}}`

// The keyframe at 50s is the last one before half the video bytes.
const stubPacketsJSON = `{"packets":[{"pts_time":"0.000000","size":"100","flags":"K_"},{"pts_time":"30.000000","size":"100","flags":"__"},{"pts_time":"50.000000","size":"300","flags":"K_"},{"pts_time":"90.000000","size":"300","flags":"__"}]}`

type cliEnv struct {
	cfg        *config.Config
	configPath string
	ffmpegLog  string
	input      string
}

// newCLIEnv writes stub ffmpeg/ffprobe binaries and a config file pointing
// at them. ffmpegExit controls the exit status of encode invocations.
func newCLIEnv(t *testing.T, ffmpegExit int) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIDEOCOMPRESS_FFMPEG", "")
	t.Setenv("VIDEOCOMPRESS_FFPROBE", "")

	bin := t.TempDir()
	env := &cliEnv{ffmpegLog: filepath.Join(bin, "ffmpeg.log")}
	ffmpeg := testsupport.WriteStub(t, bin, "ffmpeg", `echo "$*" >> '`+env.ffmpegLog+`'
case "$*" in
  -version) echo "ffmpeg version 7.1-stub"; exit 0 ;;
  *lavfi*) exit 1 ;;
esac
for last; do :; done
printf 'frame=  100 fps= 50 q=28.0 size=  1024kB time=00:01:00.00 bitrate= 800kbits/s speed=2.00x\r' >&2
if [ `+strconv.Itoa(ffmpegExit)+` -ne 0 ]; then
  echo "encoder exploded" >&2
  exit `+strconv.Itoa(ffmpegExit)+`
fi
printf 'encoded' > "$last"
exit 0
`)
	ffprobe := testsupport.WriteStub(t, bin, "ffprobe", `case "$*" in
  -version) echo "ffprobe version 7.1-stub"; exit 0 ;;
  *packet=*) echo '`+stubPacketsJSON+`'; exit 0 ;;
esac
echo '`+stubProbeJSON+`'
`)

	env.cfg = testsupport.NewConfig(t, testsupport.WithBinaries(ffmpeg, ffprobe), testsupport.WithCandidates("hevc_nvenc"))
	env.cfg.Logging.Level = "error"
	env.configPath = testsupport.WriteConfigFile(t, env.cfg)
	env.input = filepath.Join(testsupport.BaseDir(env.cfg), "movie.mkv")
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, e.configPath)
}

func (e *cliEnv) ffmpegCalls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.ffmpegLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read ffmpeg log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// Package probe extracts the MediaInfo every downstream compression step
// consumes: duration, on-disk size, frame rate and audio bitrate.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"videocompress/internal/logging"
	"videocompress/internal/media/ffprobe"
	"videocompress/internal/services"
)

// DefaultFallbackAudioKbps is assumed when the source has no audio stream or
// its bitrate is unreadable.
const DefaultFallbackAudioKbps = 128

// MediaInfo is immutable source metadata.
type MediaInfo struct {
	DurationSeconds  float64
	SizeBytes        int64
	FrameRate        float64
	AudioBitrateKbps int
	// AudioFallback is set when AudioBitrateKbps is the configured fallback.
	AudioFallback bool
	VideoCodec    string
	Width         int
	Height        int
}

// SizeMB returns the size in MiB.
func (m MediaInfo) SizeMB() float64 {
	return float64(m.SizeBytes) / (1024 * 1024)
}

// Prober reads MediaInfo through ffprobe.
type Prober struct {
	binary        string
	fallbackAudio int
	logger        *slog.Logger
}

// NewProber constructs a Prober. A non-positive fallbackAudioKbps uses
// DefaultFallbackAudioKbps.
func NewProber(ffprobeBinary string, fallbackAudioKbps int, logger *slog.Logger) *Prober {
	if fallbackAudioKbps <= 0 {
		fallbackAudioKbps = DefaultFallbackAudioKbps
	}
	return &Prober{
		binary:        ffprobeBinary,
		fallbackAudio: fallbackAudioKbps,
		logger:        logging.NewComponentLogger(logger, "probe"),
	}
}

// Probe inspects path. Every failure wraps services.ErrProbe.
func (p *Prober) Probe(ctx context.Context, path string) (MediaInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrProbe, "probing", "stat source", "source unreadable", err)
	}
	if info.IsDir() {
		return MediaInfo{}, services.Wrap(services.ErrProbe, "probing", "stat source", fmt.Sprintf("%s is a directory", path), nil)
	}

	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrProbe, "probing", "ffprobe", "", err)
	}

	media, err := fromResult(result, p.fallbackAudio)
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrProbe, "probing", "parse metadata", "", err)
	}
	media.SizeBytes = info.Size()

	logger := logging.WithContext(ctx, p.logger)
	if media.AudioFallback {
		logger.Debug("audio bitrate unavailable; using fallback",
			logging.Int("audio_kbps", media.AudioBitrateKbps),
			logging.String(logging.FieldEventType, "audio_bitrate_fallback"),
		)
	}
	logger.Debug("source probed",
		logging.String("path", path),
		logging.Float64("duration_seconds", media.DurationSeconds),
		logging.Int64("size_bytes", media.SizeBytes),
		logging.Int("video_streams", result.VideoStreamCount()),
		logging.Float64("frame_rate", media.FrameRate),
		logging.Int("audio_kbps", media.AudioBitrateKbps),
	)
	return media, nil
}

func fromResult(result ffprobe.Result, fallbackAudio int) (MediaInfo, error) {
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return MediaInfo{}, fmt.Errorf("invalid duration %q", result.Format.Duration)
	}

	video, ok := result.PrimaryVideo()
	if !ok {
		return MediaInfo{}, fmt.Errorf("no video stream")
	}
	frameRate, err := video.FrameRate()
	if err != nil {
		return MediaInfo{}, err
	}

	media := MediaInfo{
		DurationSeconds:  duration,
		FrameRate:        frameRate,
		AudioBitrateKbps: fallbackAudio,
		AudioFallback:    true,
		VideoCodec:       video.CodecName,
		Width:            video.Width,
		Height:           video.Height,
	}
	if audio, ok := result.PrimaryAudio(); ok {
		if bps, ok := audio.BitRateBPS(); ok {
			media.AudioBitrateKbps = int(math.Ceil(float64(bps) / 1000))
			media.AudioFallback = false
		}
	}
	return media, nil
}

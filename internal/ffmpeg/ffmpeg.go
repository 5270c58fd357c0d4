package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// FFProbeOutput holds the parts of ffprobe's JSON output we read.
type FFProbeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Metadata describes an uploaded video file.
type Metadata struct {
	Duration   time.Duration
	Size       int64
	HasAudio   bool
	VideoCodec string
	Height     int
}

// Prober runs ffprobe.
type Prober struct {
	Path string
}

// Probe reads format and stream metadata of filePath.
func (p Prober) Probe(ctx context.Context, filePath string) (*Metadata, error) {
	exe := p.Path
	if exe == "" {
		exe = "ffprobe"
	}
	// ffprobe -v quiet -print_format json -show_format -show_streams <input_file>
	cmd := exec.CommandContext(ctx, exe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}
	return ParseProbe(stdout.Bytes())
}

// ProbeDuration returns only the duration of filePath.
func (p Prober) ProbeDuration(ctx context.Context, filePath string) (time.Duration, error) {
	md, err := p.Probe(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return md.Duration, nil
}

// ParseProbe decodes ffprobe JSON output.
func ParseProbe(out []byte) (*Metadata, error) {
	var probe FFProbeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("error unmarshalling ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return nil, fmt.Errorf("could not retrieve duration from ffprobe output")
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing duration string '%s': %w", probe.Format.Duration, err)
	}

	md := &Metadata{Duration: time.Duration(seconds * float64(time.Second))}
	if probe.Format.Size != "" {
		md.Size, _ = strconv.ParseInt(probe.Format.Size, 10, 64)
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "audio":
			md.HasAudio = true
		case "video":
			if md.VideoCodec == "" {
				md.VideoCodec = s.CodecName
				md.Height = s.Height
			}
		}
	}
	return md, nil
}

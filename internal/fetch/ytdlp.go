// Package fetch resolves short-form video links to a directly playable stream.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UserAgent is sent to upstream hosts by the extractor and the stream proxy.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// InstagramReferer is required by Instagram's CDN.
const InstagramReferer = "https://www.instagram.com/"

var (
	ErrUnsupportedURL   = errors.New("only Instagram reel links are supported")
	ErrNoPlayableFormat = errors.New("no playable format found")
)

// Format is one downloadable rendition reported by yt-dlp.
type Format struct {
	FormatID string  `json:"format_id"`
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
	Height   int     `json:"height"`
	Filesize int64   `json:"filesize"`
	TBR      float64 `json:"tbr"`
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool { return f.VCodec != "" && f.VCodec != "none" }

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool { return f.ACodec != "" && f.ACodec != "none" }

// Info is the subset of yt-dlp's single-json dump we use.
type Info struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Uploader  string   `json:"uploader"`
	Duration  float64  `json:"duration"`
	Formats   []Format `json:"formats"`
}

// Extractor fetches video metadata for a link.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Info, error)
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path    string
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// Args builds the command line for url.
func (y *YtDlp) Args(url string) []string {
	return []string{
		"--dump-single-json",
		"--no-check-certificates",
		"--no-warnings",
		"--prefer-free-formats",
		"--format", "best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"--add-header", "referer:" + InstagramReferer,
		"--add-header", "user-agent:" + UserAgent,
		url,
	}
}

// Extract runs yt-dlp and decodes its JSON dump. Non-JSON lines are logged
// as warnings.
func (y *YtDlp) Extract(ctx context.Context, url string) (*Info, error) {
	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}
	exe := y.Path
	if exe == "" {
		exe = "yt-dlp"
	}

	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, y.Args(url)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	info, warnings, err := parseDump(stdout.Bytes())
	if y.Log != nil {
		for _, w := range warnings {
			y.Log.WithField("url", url).Warn(w)
		}
		y.Log.WithFields(logrus.Fields{"url": url, "elapsed": time.Since(start).String()}).Debug("metadata extracted")
	}
	return info, err
}

func parseDump(out []byte) (*Info, []string, error) {
	var jsonLine string
	var warnings []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") {
			jsonLine = line
		} else {
			warnings = append(warnings, line)
		}
	}
	if jsonLine == "" {
		return nil, warnings, errors.New("no JSON in yt-dlp output")
	}
	var info Info
	if err := json.Unmarshal([]byte(jsonLine), &info); err != nil {
		return nil, warnings, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return &info, warnings, nil
}

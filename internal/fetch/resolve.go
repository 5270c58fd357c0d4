package fetch

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Video is a resolved link: its metadata and the rendition to stream.
type Video struct {
	Info      Info
	Format    Format
	Filename  string
	SourceURL string
}

// Resolver turns a user-supplied link into a playable Video.
type Resolver struct {
	Extractor Extractor
}

// Resolve validates link, extracts its metadata and picks a format.
func (r *Resolver) Resolve(ctx context.Context, link string) (*Video, error) {
	if !IsInstagramReel(link) {
		return nil, ErrUnsupportedURL
	}
	info, err := r.Extractor.Extract(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", link, err)
	}
	format, err := SelectFormat(info.Formats, link)
	if err != nil {
		return nil, err
	}
	return &Video{
		Info:      *info,
		Format:    format,
		Filename:  SafeFilename(info.Title, format.Ext),
		SourceURL: link,
	}, nil
}

// IsInstagramReel reports whether link points at an Instagram reel.
func IsInstagramReel(link string) bool {
	return strings.Contains(link, "instagram.com") && strings.Contains(link, "/reel")
}

// SelectFormat picks the best rendition. Combined mp4 audio+video over https
// wins, preferring h264 for TikTok and otherwise the tallest then largest.
// Without combined formats, Instagram's numeric ids and finally video-only
// mp4 are tried.
func SelectFormat(formats []Format, source string) (Format, error) {
	var combined []Format
	for _, f := range formats {
		if f.HasVideo() && f.HasAudio() && f.Ext == "mp4" && f.Protocol == "https" {
			combined = append(combined, f)
		}
	}

	var best *Format
	if len(combined) > 0 {
		var pool []Format
		if strings.Contains(source, "tiktok.com") {
			pool = orAll(filter(combined, func(f Format) bool {
				return strings.Contains(f.VCodec, "h264") && f.Height > 0
			}), combined)
		} else {
			pool = orAll(filter(combined, func(f Format) bool { return f.Height > 0 }), combined)
		}
		best = tallest(pool, true)
	} else {
		if strings.Contains(source, "instagram.com") {
			best = tallest(filter(formats, func(f Format) bool {
				return numericID.MatchString(f.FormatID) && f.Height > 0
			}), false)
		}
		if best == nil {
			best = tallest(filter(formats, func(f Format) bool {
				return f.HasVideo() && f.Ext == "mp4" && f.Protocol == "https"
			}), false)
		}
	}

	if best == nil || best.URL == "" {
		return Format{}, ErrNoPlayableFormat
	}
	return *best, nil
}

var numericID = regexp.MustCompile(`^\d+$`)

func filter(formats []Format, keep func(Format) bool) []Format {
	var out []Format
	for _, f := range formats {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func orAll(preferred, all []Format) []Format {
	if len(preferred) > 0 {
		return preferred
	}
	return all
}

// tallest returns the highest format, the first one winning ties unless
// bySize lets a larger file break them.
func tallest(formats []Format, bySize bool) *Format {
	var best *Format
	for i := range formats {
		f := &formats[i]
		switch {
		case best == nil, f.Height > best.Height:
			best = f
		case bySize && f.Height == best.Height && f.Filesize > best.Filesize:
			best = f
		}
	}
	return best
}

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_",
)

// SafeFilename derives a download name from a title.
func SafeFilename(title, ext string) string {
	name := unsafeChars.Replace(title)
	if name == "" {
		name = "video"
	}
	if ext == "" {
		ext = "mp4"
	}
	return name + "." + ext
}

// StreamURL is the proxied path a player uses to stream a resolved video.
func StreamURL(prefix string, v *Video) string {
	q := url.Values{}
	q.Set("url", v.Format.URL)
	q.Set("filename", v.Filename)
	q.Set("source", v.SourceURL)
	return prefix + "?" + q.Encode()
}

// ProxyHeaders returns the upstream request headers for streaming target,
// adding Instagram's referer when either the target or its source needs it.
func ProxyHeaders(target, source string) map[string]string {
	h := map[string]string{"User-Agent": UserAgent}
	if strings.Contains(target, "instagram.com") || strings.Contains(source, "instagram.com") {
		h["Referer"] = InstagramReferer
	}
	return h
}

package probe

import (
	"fmt"
	"slices"
	"strconv"
)

// Info is the metadata reported for a URL.
type Info struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration"`
	Uploader  string  `json:"uploader"`
	ViewCount int64   `json:"view_count"`
	URL       string  `json:"url"`
	Extractor string  `json:"extractor"`
	Formats   Formats `json:"formats"`
}

// Formats splits the available streams by kind.
type Formats struct {
	Video []VideoFormat `json:"videoFormats"`
	Audio []AudioFormat `json:"audioFormats"`
}

// VideoFormat is one video-bearing stream.
type VideoFormat struct {
	ID       string `json:"id"`
	Quality  string `json:"quality"`
	Ext      string `json:"ext"`
	Size     string `json:"size"`
	Codec    string `json:"vcodec"`
	Filesize int64  `json:"filesize,omitempty"`
	Selected bool   `json:"selected"`
	height   int
}

// AudioFormat is one audio-only stream.
type AudioFormat struct {
	ID      string `json:"id"`
	Quality string `json:"quality"`
	Ext     string `json:"ext"`
	Size    string `json:"size"`
	Note    string `json:"note"`
}

type rawInfo struct {
	Title        string      `json:"title"`
	Thumbnail    string      `json:"thumbnail"`
	Duration     float64     `json:"duration"`
	Uploader     string      `json:"uploader"`
	ViewCount    int64       `json:"view_count"`
	WebpageURL   string      `json:"webpage_url"`
	ExtractorKey string      `json:"extractor_key"`
	Formats      []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	Height     int      `json:"height"`
	FPS        float64  `json:"fps"`
	Filesize   *float64 `json:"filesize"`
	FormatNote string   `json:"format_note"`
}

const defaultHeight = 1080

func buildFormats(raw []rawFormat) Formats {
	formats := Formats{Video: []VideoFormat{}, Audio: []AudioFormat{}}
	for _, f := range raw {
		size := describeSize(f.Filesize)
		switch {
		case hasCodec(f.VCodec) && f.Height > 0:
			quality := strconv.Itoa(f.Height) + "p"
			if f.FPS == 60 {
				quality += "60"
			}
			var filesize int64
			if f.Filesize != nil {
				filesize = int64(*f.Filesize)
			}
			formats.Video = append(formats.Video, VideoFormat{
				ID:       f.FormatID,
				Quality:  quality,
				Ext:      f.Ext,
				Size:     size,
				Codec:    f.VCodec,
				Filesize: filesize,
				Selected: f.Height == defaultHeight,
				height:   f.Height,
			})
		case hasCodec(f.ACodec) && !hasCodec(f.VCodec):
			note := orDefault(f.FormatNote, "Unknown quality")
			ext := f.Ext
			if ext == "webm" {
				ext = "opus"
			}
			formats.Audio = append(formats.Audio, AudioFormat{
				ID:      f.FormatID,
				Quality: note,
				Ext:     ext,
				Size:    size,
				Note:    note,
			})
		}
	}
	slices.SortStableFunc(formats.Video, func(a, b VideoFormat) int {
		return b.height - a.height
	})
	return formats
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}

func describeSize(filesize *float64) string {
	if filesize == nil || *filesize <= 0 {
		return "Unknown size"
	}
	return fmt.Sprintf("%.1fMB", *filesize/(1024*1024))
}

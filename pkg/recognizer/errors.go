package recognizer

import (
	"errors"
	"fmt"
)

var (
	ErrNotImage          = errors.New("只支持图片文件")
	ErrUnsupportedFormat = errors.New("只支持 JPG、JPEG、PNG 格式的图片")
	ErrInvalidImage      = errors.New("图片格式或大小不符合要求")
	ErrImageTooLarge     = errors.New("image too large")
	ErrEmptyResponse     = errors.New("no response from model")
)

// SizeError reports an image above the configured limit.
type SizeError struct {
	Limit int64
}

func (e *SizeError) Error() string {
	return "文件大小不能超过 " + formatSize(e.Limit)
}

func formatSize(size int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)

	switch {
	case size >= mb && size%mb == 0:
		return fmt.Sprintf("%dMB", size/mb)
	case size >= mb:
		return fmt.Sprintf("%.1fMB", float64(size)/mb)
	case size >= kb && size%kb == 0:
		return fmt.Sprintf("%dKB", size/kb)
	case size >= kb:
		return fmt.Sprintf("%.1fKB", float64(size)/kb)
	default:
		return fmt.Sprintf("%dB", size)
	}
}

func (e *SizeError) Is(target error) bool {
	return target == ErrImageTooLarge
}

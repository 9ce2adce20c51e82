package media

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetLoadFailed is matched by *AssetLoadError.
	ErrAssetLoadFailed = errors.New("asset load failed")
	// ErrTrackLoadFailed is matched by *TrackLoadError.
	ErrTrackLoadFailed = errors.New("track load failed")
	// ErrAssetClosed is returned when using an asset after Close.
	ErrAssetClosed = errors.New("asset closed")
)

// AssetLoadError reports why a container could not be opened.
type AssetLoadError struct {
	Locator string
	Reason  string
	Err     error
}

func (e *AssetLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load asset %s: %s: %v", e.Locator, e.Reason, e.Err)
	}
	return fmt.Sprintf("load asset %s: %s", e.Locator, e.Reason)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

func (e *AssetLoadError) Is(target error) bool { return target == ErrAssetLoadFailed }

// TrackLoadError reports an unreadable stream in an otherwise open asset.
type TrackLoadError struct {
	Locator string
	Index   int
	Reason  string
	Err     error
}

func (e *TrackLoadError) Error() string {
	msg := fmt.Sprintf("load track %d of %s: %s", e.Index, e.Locator, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TrackLoadError) Unwrap() error { return e.Err }

func (e *TrackLoadError) Is(target error) bool { return target == ErrTrackLoadFailed }

// Package artifact downloads a model artifact from object storage to a
// fixed local file.
package artifact

import (
	"fmt"
	"path"
	"strings"

	"modelserve/internal/core"
)

// Location identifies a remote artifact: scheme://container/key.
type Location struct {
	Scheme    string
	Container string
	Key       string
	Format    core.ModelFormat
	Suffix    string
}

func (l Location) String() string {
	return l.Scheme + "://" + l.Container + "/" + l.Key
}

// LocalName is the fixed local file name for this artifact, e.g. model.onnx.
func (l Location) LocalName() string {
	return core.ArtifactBaseName + l.Suffix
}

// DetectFormat maps the suffix of raw to a supported model format. It only
// looks at the string, so it is safe to call before anything is opened.
func DetectFormat(raw string) (core.ModelFormat, string, error) {
	suffix := path.Ext(raw)
	format, ok := core.ModelFormatForSuffix(suffix)
	if !ok {
		return "", "", core.UnsupportedFormatError(raw, core.SupportedModelSuffixes)
	}
	return format, suffix, nil
}

// ParseLocation splits raw into scheme, container and key and detects the
// format. Unsupported suffixes fail with ErrUnsupportedFormat, malformed
// locations with ErrFetchFailed.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	format, suffix, err := DetectFormat(raw)
	if err != nil {
		return Location{}, err
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return Location{}, core.FetchFailedError(raw, fmt.Errorf("location must look like scheme://container/path"))
	}
	container, key, ok := strings.Cut(rest, "/")
	if !ok || container == "" || key == "" {
		return Location{}, core.FetchFailedError(raw, fmt.Errorf("location needs both a container and an object path"))
	}

	return Location{
		Scheme:    strings.ToLower(scheme),
		Container: container,
		Key:       key,
		Format:    format,
		Suffix:    suffix,
	}, nil
}

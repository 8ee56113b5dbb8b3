// Package verify checks uploaded image archives before they are handed to the engine.
package verify

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/bnema/tarpush/pkg/logger"
)

// DefaultMaxSize is the ceiling applied when none is configured (5 GiB).
const DefaultMaxSize int64 = 5 << 30

// manifest.json and index.json are small; anything bigger is not what we expect.
const maxMetadataSize = 4 << 20

// Set by docker save and ctr export on index.json manifests.
const containerdImageNameAnnotation = "io.containerd.image.name"

const (
	FormatDockerArchive = "docker-archive"
	FormatOCILayout     = "oci-layout"
	FormatUnknown       = "unknown"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicBzip2 = []byte{0x42, 0x5a, 0x68}
)

// Report describes an archive that passed validation.
type Report struct {
	Path        string
	Size        int64
	Entries     int
	Compression string
	Format      string
	RepoTags    []string
	Manifests   int
}

// dockerManifestEntry is one element of the docker-archive manifest.json.
type dockerManifestEntry struct {
	Config   string   `json:"Config"`
	RepoTags []string `json:"RepoTags"`
	Layers   []string `json:"Layers"`
}

// Validator checks that a file is a non-empty, readable tar archive.
type Validator struct {
	maxSize int64
	log     *logger.Logger
}

func NewValidator(maxSize int64, log *logger.Logger) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Validator{maxSize: maxSize, log: log}
}

// MaxSize returns the configured ceiling in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate stats and lists the archive at p. A missing manifest is only logged:
// the format check is a soft signal, the listing is what decides.
func (v *Validator) Validate(ctx context.Context, p string) (*Report, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, newValidationError(KindInvalidFile, p, err)
	}
	if !info.Mode().IsRegular() {
		return nil, newValidationError(KindInvalidFile, p, fmt.Errorf("%s has mode %s", p, info.Mode()))
	}
	if info.Size() == 0 {
		return nil, newValidationError(KindEmptyFile, p, nil)
	}
	if info.Size() > v.maxSize {
		return nil, newValidationError(KindFileTooLarge, p,
			fmt.Errorf("%d bytes, limit is %d", info.Size(), v.maxSize))
	}

	report, err := v.list(ctx, p)
	if err != nil {
		return nil, err
	}
	report.Size = info.Size()

	if report.Format == FormatUnknown {
		v.log.Warn("Archive has no manifest.json or index.json, docker load may not find any image",
			"path", p, "entries", report.Entries)
	} else {
		v.log.Debug("Archive validated",
			"path", p,
			"format", report.Format,
			"compression", report.Compression,
			"entries", report.Entries,
			"repoTags", report.RepoTags)
	}
	return report, nil
}

func (v *Validator) list(ctx context.Context, p string) (*Report, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, newValidationError(KindInvalidFile, p, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	r, compression, closer, err := decompress(br)
	if err != nil {
		return nil, newValidationError(KindNotATar, p, err)
	}
	if closer != nil {
		defer closer()
	}

	report := &Report{Path: p, Compression: compression, Format: FormatUnknown}
	var sawJSON, sawOCILayout bool

	tr := tar.NewReader(r)
	for {
		if report.Entries%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newValidationError(KindNotATar, p, err)
		}
		report.Entries++

		name := strings.TrimPrefix(hdr.Name, "./")
		if strings.HasSuffix(name, ".json") {
			sawJSON = true
		}

		switch name {
		case "manifest.json":
			entries, err := readDockerManifest(tr)
			if err != nil {
				v.log.Warn("Unreadable manifest.json in archive", "path", p, "error", err)
				continue
			}
			report.Format = FormatDockerArchive
			report.Manifests = len(entries)
			for _, e := range entries {
				report.RepoTags = append(report.RepoTags, e.RepoTags...)
			}
		case ocispec.ImageLayoutFile:
			sawOCILayout = true
		case ocispec.ImageIndexFile:
			idx, err := readOCIIndex(tr)
			if err != nil {
				v.log.Warn("Unreadable index.json in archive", "path", p, "error", err)
				continue
			}
			if report.Format == FormatUnknown {
				report.Format = FormatOCILayout
				report.Manifests = len(idx.Manifests)
			}
			if report.Format != FormatOCILayout {
				continue
			}
			for _, m := range idx.Manifests {
				if imageName := m.Annotations[containerdImageNameAnnotation]; imageName != "" {
					report.RepoTags = append(report.RepoTags, imageName)
				}
			}
		}
	}

	if report.Entries == 0 {
		return nil, newValidationError(KindNotATar, p, errors.New("archive has no entries"))
	}
	if report.Format == FormatUnknown && sawOCILayout {
		report.Format = FormatOCILayout
	}
	if report.Format == FormatUnknown && sawJSON {
		v.log.Debug("Archive has json entries but no known manifest", "path", p)
	}
	return report, nil
}

// decompress sniffs the compression formats docker load accepts.
func decompress(br *bufio.Reader) (io.Reader, string, func(), error) {
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", nil, err
	}

	switch {
	case bytes.HasPrefix(head, magicGzip):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, "gzip", func() { gz.Close() }, nil
	case bytes.HasPrefix(head, magicZstd):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, "zstd", dec.Close, nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(br), "bzip2", nil, nil
	default:
		return br, "none", nil, nil
	}
}

func readDockerManifest(r io.Reader) ([]dockerManifestEntry, error) {
	var entries []dockerManifestEntry
	if err := json.NewDecoder(io.LimitReader(r, maxMetadataSize)).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func readOCIIndex(r io.Reader) (*ocispec.Index, error) {
	var idx ocispec.Index
	if err := json.NewDecoder(io.LimitReader(r, maxMetadataSize)).Decode(&idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

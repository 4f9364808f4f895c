package bundlecrypt

import (
	"errors"
	"log/slog"
	"os"

	"github.com/absfs/absfs"
)

// CompressionMode describes how a bundle's payload is stored on the wire.
type CompressionMode int

const (
	// CompressionNone stores the payload verbatim with no framing.
	CompressionNone CompressionMode = 0

	// CompressionContainer wraps the payload in the header + hash container
	// format, optionally encrypted with the cascading stream cipher.
	CompressionContainer CompressionMode = 3
)

// String returns the string representation of the compression mode
func (m CompressionMode) String() string {
	switch m {
	case CompressionNone:
		return "none"
	case CompressionContainer:
		return "container"
	default:
		return "raw"
	}
}

// BundleDescriptor describes one asset bundle as listed in the catalog.
// Descriptors are immutable once loaded; the downloader only reads them.
type BundleDescriptor struct {
	// RelativePath is the bundle's path below the output root and below the
	// remote endpoint. Unique per catalog; may contain '/' separators.
	RelativePath string `json:"relativePath"`

	// BundleName is the logical bundle identity used in key derivation.
	BundleName string `json:"bundleName"`

	// ContentHash feeds key derivation. It is also carried as an integrity
	// check value, but full-content hash verification is not performed by
	// the verification pass (known gap in the upstream format).
	ContentHash string `json:"contentHash"`

	// CRC feeds key derivation.
	CRC uint32 `json:"crc"`

	// FileSize is the total on-wire size, including container framing when
	// the bundle uses CompressionContainer.
	FileSize int64 `json:"fileSize"`

	// FileMD5 is reserved for full-content verification; unused today.
	FileMD5 string `json:"fileMd5"`

	// CompressionMode selects between verbatim storage and the container
	// format.
	CompressionMode CompressionMode `json:"compressionMode"`
}

// PlaintextSize returns the size the decoded bundle must have on disk.
// Container-framed bundles shed the 12-byte header and 16-byte hash.
func (d *BundleDescriptor) PlaintextSize() int64 {
	if d.CompressionMode == CompressionContainer {
		return d.FileSize - ContainerOverhead
	}
	return d.FileSize
}

// Config configures a Downloader.
type Config struct {
	// Transport fetches raw bundle bytes by relative path.
	Transport Transport

	// OutputFS is the filesystem bundles are materialized into, rooted at
	// the output directory.
	OutputFS absfs.FileSystem

	// Concurrency is the maximum number of in-flight workers per pass.
	// Retry passes always run with concurrency 1. If 0, DefaultConcurrency
	// is used.
	Concurrency int

	// MaxPasses caps the total number of download passes, counting the
	// first. 0 means retry until every bundle succeeds, matching the
	// upstream client's behavior.
	MaxPasses int

	// Logger receives per-bundle failure reports and pass summaries.
	// If nil, a stderr text logger is used.
	Logger *slog.Logger
}

// DefaultConcurrency is the worker count used when Config.Concurrency is 0.
const DefaultConcurrency = 8

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Transport == nil {
		return errors.New("transport cannot be nil")
	}
	if c.OutputFS == nil {
		return errors.New("output filesystem cannot be nil")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency cannot be negative")
	}
	if c.Concurrency > 1024 {
		return errors.New("concurrency must not exceed 1024")
	}
	if c.MaxPasses < 0 {
		return errors.New("max passes cannot be negative")
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

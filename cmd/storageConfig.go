package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/airbusgeo/rawraster/interface/handle"
	"github.com/airbusgeo/rawraster/internal/raster"
)

// StorageConfig configures the access to the rasters stored on object storages
type StorageConfig struct {
	BlockSize       string
	NumCachedBlocks int
	WithGCS         bool
	GCSCredentials  string
	WithS3          bool
	AwsRegion       string
	AwsEndpoint     string
	AwsCredentials  string
	HTTPHeaders     []string
}

const (
	BlockSize       = "blockSize"
	NumCachedBlocks = "numCachedBlocks"
	WithGCS         = "with-gcs"
	GCSCredentials  = "gcs-credentials-file"
	WithS3          = "with-s3"
	AWSRegion       = "aws-region"
	AWSEndPoint     = "aws-endpoint"
	AwsCredentials  = "aws-shared-credentials-file"
	HTTPHeader      = "http-header"
)

// DirectIOEnv overrides the direct io strategy, with the values of the --direct-io flag (see raster.ParseDirectIOMode)
const DirectIOEnv = "RAWIO_DIRECT_IO"

// StorageFlags returns the global flags of the storage configuration
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: BlockSize, Value: "1Mb", Usage: "size of the ranged reads on object storages"},
		cli.IntFlag{Name: NumCachedBlocks, Value: 500, Usage: "number of blocks cached per object storage"},
		cli.BoolFlag{Name: WithGCS, Usage: "enable gs:// uris (may need authentication)"},
		cli.StringFlag{Name: GCSCredentials, Usage: "service account key file for gcs storage (--with-gcs)"},
		cli.BoolFlag{Name: WithS3, Usage: "enable s3:// uris (may need authentication)"},
		cli.StringFlag{Name: AWSRegion, Usage: "define aws_region to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AWSEndPoint, Usage: "define aws_endpoint to use s3 storage (--with-s3)"},
		cli.StringFlag{Name: AwsCredentials, Usage: "define aws_shared_credentials_file to use s3 storage (--with-s3)"},
		cli.StringSliceFlag{Name: HTTPHeader, Usage: "header added to the http(s) requests (key:value)"},
		cli.StringFlag{Name: DirectIOFlag, Usage: "direct io strategy: heuristic, always (yes, on, 1...) or never (no, off, 0...) (default: " + DirectIOEnv + ")"},
	}
}

// StorageConfigFromContext reads the global storage flags
func StorageConfigFromContext(c *cli.Context) *StorageConfig {
	return &StorageConfig{
		BlockSize:       c.GlobalString(BlockSize),
		NumCachedBlocks: c.GlobalInt(NumCachedBlocks),
		WithGCS:         c.GlobalBool(WithGCS),
		GCSCredentials:  c.GlobalString(GCSCredentials),
		WithS3:          c.GlobalBool(WithS3),
		AwsRegion:       c.GlobalString(AWSRegion),
		AwsEndpoint:     c.GlobalString(AWSEndPoint),
		AwsCredentials:  c.GlobalString(AwsCredentials),
		HTTPHeaders:     c.GlobalStringSlice(HTTPHeader),
	}
}

// ObjectStoreConfig converts the flags into the configuration of the object storage adapters
func (s *StorageConfig) ObjectStoreConfig() (handle.ObjectStoreConfig, error) {
	cfg := handle.ObjectStoreConfig{
		BlockSize:          s.BlockSize,
		NumCachedBlocks:    s.NumCachedBlocks,
		WithGCS:            s.WithGCS,
		GCSCredentialsFile: s.GCSCredentials,
		WithS3:             s.WithS3,
		AwsRegion:          s.AwsRegion,
		AwsEndpoint:        s.AwsEndpoint,
		AwsCredentials:     s.AwsCredentials,
	}
	if len(s.HTTPHeaders) > 0 {
		cfg.HTTPHeaders = map[string]string{}
	}
	for _, h := range s.HTTPHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return cfg, fmt.Errorf("invalid http header %q: expected key:value", h)
		}
		cfg.HTTPHeaders[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return cfg, nil
}

// InitStorage creates the object store described by the flags
func InitStorage(ctx context.Context, s *StorageConfig) (*handle.ObjectStore, error) {
	cfg, err := s.ObjectStoreConfig()
	if err != nil {
		return nil, err
	}
	return handle.NewObjectStore(ctx, cfg)
}

// DirectIOFlag selects the direct io strategy (heuristic, always or never) over DirectIOEnv
const DirectIOFlag = "direct-io"

// IOConfig returns the default io configuration, overridden by the environment then by mode
// when it is not empty
func IOConfig(mode string) raster.IOConfig {
	cfg := raster.DefaultIOConfig()
	cfg.DirectIO = directIOFromEnv(os.LookupEnv(DirectIOEnv))
	if mode != "" {
		cfg.DirectIO = raster.ParseDirectIOMode(mode)
	}
	return cfg
}

func directIOFromEnv(value string, set bool) raster.DirectIOMode {
	if !set {
		return raster.DirectIOHeuristic
	}
	return raster.ParseDirectIOMode(value)
}

package handle

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/osio"
	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	aws3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/airbusgeo/rawraster/internal/utils"
)

// ObjectStoreConfig configures the object storage adapters
type ObjectStoreConfig struct {
	// BlockSize of the ranged reads (e.g. "1Mb")
	BlockSize string
	// NumCachedBlocks is the number of blocks kept in memory by each adapter
	NumCachedBlocks int
	WithGCS         bool
	// GCSCredentialsFile is a service account key file (default credentials if empty)
	GCSCredentialsFile string
	WithS3             bool
	AwsRegion          string
	AwsEndpoint        string
	AwsCredentials     string
	// HTTPHeaders are added to the http(s) requests
	HTTPHeaders map[string]string
}

// ObjectStore opens read-only handles on objects stored on GCS, S3 or http(s) servers.
// Reads are served by block-cached osio adapters.
type ObjectStore struct {
	adapters map[string]*osio.Adapter
}

// NewObjectStore creates the adapters enabled by cfg. The http(s) adapter is always available.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.BlockSize == "" {
		cfg.BlockSize = "1Mb"
	}
	if cfg.NumCachedBlocks <= 0 {
		cfg.NumCachedBlocks = 500
	}
	opts := []osio.AdapterOption{osio.BlockSize(cfg.BlockSize), osio.NumCachedBlocks(cfg.NumCachedBlocks)}
	s := &ObjectStore{adapters: map[string]*osio.Adapter{}}

	var httpOpts []osio.HTTPOption
	for k, v := range cfg.HTTPHeaders {
		httpOpts = append(httpOpts, osio.HTTPHeader(k, v))
	}
	httpHandle, err := osio.HTTPHandle(ctx, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewObjectStore.http: %w", err)
	}
	if s.adapters["http"], err = osio.NewAdapter(httpHandle, opts...); err != nil {
		return nil, fmt.Errorf("NewObjectStore.http: %w", err)
	}
	s.adapters["https"] = s.adapters["http"]

	if cfg.WithGCS {
		var clientOpts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}
		cl, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("NewObjectStore.gcs: %w", err)
		}
		gcsHandle, err := osioGcs.Handle(ctx, osioGcs.GCSClient(cl))
		if err != nil {
			return nil, fmt.Errorf("NewObjectStore.gcs: %w", err)
		}
		if s.adapters["gs"], err = osio.NewAdapter(gcsHandle, opts...); err != nil {
			return nil, fmt.Errorf("NewObjectStore.gcs: %w", err)
		}
	}

	if cfg.WithS3 {
		var loadOpts []func(*awsConfig.LoadOptions) error
		if cfg.AwsRegion != "" {
			loadOpts = append(loadOpts, awsConfig.WithRegion(cfg.AwsRegion))
		}
		if cfg.AwsCredentials != "" {
			loadOpts = append(loadOpts, awsConfig.WithSharedCredentialsFiles([]string{cfg.AwsCredentials}))
		}
		if cfg.AwsEndpoint != "" {
			resolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					PartitionID:       "aws",
					URL:               cfg.AwsEndpoint,
					SigningRegion:     region,
					HostnameImmutable: true,
				}, nil
			})
			loadOpts = append(loadOpts, awsConfig.WithEndpointResolver(resolver))
		}
		config, err := awsConfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("NewObjectStore.s3: %w", err)
		}
		s3Handle, err := osioS3.Handle(ctx, osioS3.S3Client(aws3.NewFromConfig(config)))
		if err != nil {
			return nil, fmt.Errorf("NewObjectStore.s3: %w", err)
		}
		if s.adapters["s3"], err = osio.NewAdapter(s3Handle, opts...); err != nil {
			return nil, fmt.Errorf("NewObjectStore.s3: %w", err)
		}
	}
	return s, nil
}

// objectReader marks the transient failures of the adapter
type objectReader struct {
	*osio.Reader
	key string
}

func (r objectReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.Reader.ReadAt(p, off)
	if err != nil && utils.Temporary(err) {
		err = utils.MakeTemporary(fmt.Errorf("read %s: %w", r.key, err))
	}
	return n, err
}

// Open returns a read-only handle on the object designated by key (gs://, s3://, http(s)://)
func (s *ObjectStore) Open(key string) (*Virtual, error) {
	scheme, _, ok := strings.Cut(key, "://")
	if !ok {
		return nil, fmt.Errorf("ObjectStore.Open: %s: %w", key, ErrBadURI)
	}
	adapter, ok := s.adapters[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("ObjectStore.Open: storage %s is not configured", scheme)
	}
	rd, err := adapter.Reader(key)
	if err != nil {
		if utils.NotFound(err) {
			return nil, fmt.Errorf("ObjectStore.Open(%s): %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("ObjectStore.Open(%s): %w", key, err)
	}
	return ReadOnly(objectReader{Reader: rd, key: key}), nil
}

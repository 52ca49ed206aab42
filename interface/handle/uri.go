package handle

import (
	"context"
	"errors"
	"fmt"
	pathPkg "path"
	"regexp"
	"strings"

	"github.com/airbusgeo/rawraster/internal/raster"
)

var (
	ErrBadURI = errors.New("badly formatted storage uri")
	uriRegex  = regexp.MustCompile("^(?P<Protocol>[a-zA-Z][a-zA-Z0-9+.-]*)://(?P<BucketName>[^/]*)(/(?P<Path>.*))?$")
)

// URI designates a raster storage: a local path (protocol "" or "file"), an object (gs, s3, http, https)
// or a memory file (mem)
type URI struct {
	Protocol string
	Bucket   string
	Path     string
}

// ParseURI parses a storage uri (e.g. gs://bucket-name/path/to/file, /local/path, mem://name)
func ParseURI(rawURI string) (URI, error) {
	if rawURI == "" {
		return URI{}, ErrBadURI
	}
	if !strings.Contains(rawURI, "://") {
		return URI{Path: rawURI}, nil
	}
	m := uriRegex.FindStringSubmatch(rawURI)
	if m == nil {
		return URI{}, fmt.Errorf("%s: %w", rawURI, ErrBadURI)
	}
	u := URI{
		Protocol: strings.ToLower(m[uriRegex.SubexpIndex("Protocol")]),
		Bucket:   m[uriRegex.SubexpIndex("BucketName")],
		Path:     m[uriRegex.SubexpIndex("Path")],
	}
	if u.Protocol == "file" {
		// file:///abs/path or file://relative/path
		u.Path = pathPkg.Join("/"+u.Bucket, u.Path)
		if u.Bucket != "" {
			u.Path = strings.TrimPrefix(u.Path, "/")
		}
		u.Bucket = ""
		return u, nil
	}
	if u.Bucket == "" {
		return URI{}, fmt.Errorf("%s: empty bucket: %w", rawURI, ErrBadURI)
	}
	return u, nil
}

// IsLocal returns whether the uri designates a local file
func (u URI) IsLocal() bool {
	return u.Protocol == "" || u.Protocol == "file"
}

// FileName returns the last element of the path
func (u URI) FileName() string {
	return pathPkg.Base(u.Path)
}

func (u URI) String() string {
	switch u.Protocol {
	case "":
		return u.Path
	case "file":
		return "file://" + u.Path
	}
	return fmt.Sprintf("%s://%s/%s", u.Protocol, u.Bucket, u.Path)
}

// OpenOption configures Open
type OpenOption func(o *openOptions)

type openOptions struct {
	store   *ObjectStore
	virtual bool
	mapped  bool
	memory  map[string]*Memory
}

// WithObjectStore sets the store serving the remote uris. A store with the http(s) adapter only
// is created if none is provided.
func WithObjectStore(s *ObjectStore) OpenOption {
	return func(o *openOptions) {
		o.store = s
	}
}

// LocalVirtual opens the local files as positional handles instead of buffered ones
func LocalVirtual() OpenOption {
	return func(o *openOptions) {
		o.virtual = true
	}
}

// MemoryMapped maps the local files in memory (see OpenMapped). The files must exist,
// with their final size in update mode.
func MemoryMapped() OpenOption {
	return func(o *openOptions) {
		o.mapped = true
	}
}

// WithMemory resolves the mem://name uris in files. Unknown names are created in update mode.
func WithMemory(files map[string]*Memory) OpenOption {
	return func(o *openOptions) {
		o.memory = files
	}
}

// Open opens the storage designated by rawURI, for writing if update is true.
// Remote objects are read-only.
func Open(ctx context.Context, rawURI string, update bool, opts ...OpenOption) (raster.Handle, raster.HandleKind, error) {
	o := openOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	u, err := ParseURI(rawURI)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case u.IsLocal() && o.mapped:
		h, err := OpenMapped(u.Path, update)
		return h, raster.VirtualHandle, err
	case u.IsLocal() && o.virtual:
		h, err := OpenVirtual(u.Path, update)
		return h, raster.VirtualHandle, err
	case u.IsLocal():
		h, err := OpenBuffered(u.Path, update)
		return h, raster.BufferedHandle, err
	case u.Protocol == "mem":
		name := u.Bucket + "/" + u.Path
		if m, ok := o.memory[name]; ok {
			m.closed = false
			m.pos = 0
			return m, raster.VirtualHandle, nil
		}
		if !update {
			return nil, 0, fmt.Errorf("open %s: no such memory file", rawURI)
		}
		m := NewMemory(nil)
		if o.memory != nil {
			o.memory[name] = m
		}
		return m, raster.VirtualHandle, nil
	}
	if update {
		return nil, 0, fmt.Errorf("open %s: %w", rawURI, ErrReadOnly)
	}
	if o.store == nil {
		if o.store, err = NewObjectStore(ctx, ObjectStoreConfig{
			WithGCS: u.Protocol == "gs",
			WithS3:  u.Protocol == "s3",
		}); err != nil {
			return nil, 0, err
		}
	}
	h, err := o.store.Open(u.String())
	return h, raster.VirtualHandle, err
}

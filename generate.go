//go:build tools

package rawraster

import (
	_ "github.com/dmarkham/enumer"
)

//go:generate go generate ./internal/raster

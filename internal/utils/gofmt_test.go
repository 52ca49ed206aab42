package utils_test

import (
	"bytes"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Go sources of the module", func() {
	It("it should be gofmt-ed", func() {
		root := filepath.Join("..", "..")
		var unformatted []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".") || d.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			formatted, err := format.Source(src)
			if err != nil {
				return err
			}
			if !bytes.Equal(src, formatted) {
				unformatted = append(unformatted, path)
			}
			return nil
		})
		Expect(err).To(BeNil())
		Expect(unformatted).To(BeEmpty())
	})
})

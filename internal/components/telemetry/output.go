package telemetry

import (
	"os"
	"path/filepath"
)

// FilesystemOutput writes HTTP message dumps into a directory, the directory
// is cleared when the output is created.
type FilesystemOutput struct {
	directory string
}

func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) error {
	return os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
}

package docker

import (
	"os"
)

func fileExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return !os.IsNotExist(err)
}

// IsRunningInContainer reports whether tarpush itself runs inside a container,
// in which case configuration lives next to the binary.
func IsRunningInContainer() bool {
	return fileExists("/.iscontainer") || fileExists("/.dockerenv") || fileExists("/run/.containerenv")
}

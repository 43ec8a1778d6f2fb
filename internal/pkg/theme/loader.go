package theme

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/miditap/miditap/internal/pkg/logger"
)

var log = logger.GetLogger()

// LoadDirectory reads every theme profile found under root, keyed by
// profile name. A file that fails to parse is logged and skipped, one
// broken theme must not take the rest down.
func LoadDirectory(root string) (map[string]Profile, error) {
	profiles := make(map[string]Profile)

	err := filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		name := strings.ToLower(info.Name())

		var profile Profile
		switch {
		case strings.HasSuffix(name, ".toml"):
			profile, err = readProfile(path, ParseTOML)
		case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
			profile, err = readProfile(path, ParseYAML)
		default:
			return nil
		}

		if err != nil {
			log.Info(fmt.Sprintf("theme %s load failed: %s", info.Name(), err), logger.Warning)
			return nil
		}

		if profile.Name == "" {
			profile.Name = strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))
		}
		profiles[profile.Name] = profile
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk failed: %w", err)
	}

	return profiles, nil
}

func readProfile(path string, parse func([]byte) (Profile, error)) (Profile, error) {
	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Profile{}, fmt.Errorf("opening theme file failed: %w", err)
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	if err != nil {
		return Profile{}, fmt.Errorf("reading file data failed: %w", err)
	}

	return parse(data)
}

package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/d2r2/go-hd44780"
	"github.com/go-ini/ini"

	"github.com/miditap/miditap/internal/pkg/display"
	"github.com/miditap/miditap/internal/pkg/logger"
)

type Miditap struct {
	SnapshotRate  time.Duration
	LogViewRate   time.Duration
	LogBufferSize int
	DiscoveryRate time.Duration
	Theme         string
}

type MiditapConfig struct {
	Miditap Miditap
	Screen  display.ScreenConfig
}

func LoadMiditapConfig(path string) MiditapConfig {
	// TODO: deduplicate the key reading
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	cfg, err := ini.Load(data)
	if err != nil {
		panic(err)
	}

	var c MiditapConfig

	// [miditap]
	miditap, _ := cfg.GetSection("miditap")
	snapshotRate, _ := miditap.GetKey("snapshot_rate")
	i, err := snapshotRate.Int()
	if err != nil {
		panic(err)
	}
	c.Miditap.SnapshotRate = time.Second / time.Duration(i)

	logViewRate, _ := miditap.GetKey("log_view_rate")
	i, err = logViewRate.Int()
	if err != nil {
		panic(err)
	}
	c.Miditap.LogViewRate = time.Second / time.Duration(i)

	logBufferSize, _ := miditap.GetKey("log_buffer_size")
	i, err = logBufferSize.Int()
	if err != nil {
		panic(err)
	}
	c.Miditap.LogBufferSize = i

	discoveryRate, _ := miditap.GetKey("discovery_rate")
	i, err = discoveryRate.Int()
	if err != nil {
		panic(err)
	}
	c.Miditap.DiscoveryRate = time.Second / time.Duration(i)

	themeName, _ := miditap.GetKey("theme")
	c.Miditap.Theme = themeName.String()

	// [screen]
	screen, _ := cfg.GetSection("screen")
	screenSupport, _ := screen.GetKey("enabled")
	screenType, _ := screen.GetKey("type")
	screenAddress, _ := screen.GetKey("address")
	screenBus, _ := screen.GetKey("bus")
	updateRate, _ := screen.GetKey("update_rate")
	message1, _ := screen.GetKey("exit_message1")
	message2, _ := screen.GetKey("exit_message2")
	message3, _ := screen.GetKey("exit_message3")
	message4, _ := screen.GetKey("exit_message4")

	b, err := screenSupport.Bool()
	if err != nil {
		panic(err)
	}
	c.Screen.Enabled = b

	switch t := screenType.Value(); t {
	case "16x2":
		c.Screen.LcdType = hd44780.LCD_16x2
	case "20x4":
		c.Screen.LcdType = hd44780.LCD_20x4
	default:
		panic(fmt.Sprintf("unsupported screen type: \"%s\"", t))
	}

	i, err = screenBus.Int()
	if err != nil {
		panic(err)
	}
	c.Screen.Bus = i

	i, err = screenAddress.Int()
	if err != nil {
		panic(err)
	}
	c.Screen.Address = uint8(i)

	i, err = updateRate.Int()
	if err != nil {
		panic(err)
	}
	c.Screen.UpdateRate = i

	c.Screen.ExitMessage[0] = message1.String()
	c.Screen.ExitMessage[1] = message2.String()
	c.Screen.ExitMessage[2] = message3.String()
	c.Screen.ExitMessage[3] = message4.String()

	return c
}

//go:embed miditap-config/miditap.config
//go:embed miditap-config/*/*
var templateConfig embed.FS

const configDir = "miditap-config"
const themesDir = configDir + "/themes"

// createConfigDirectoryIfNeeded generates the config tree on first
// run. On later runs missing template files come back, existing ones
// belong to the user and are left alone.
func createConfigDirectoryIfNeeded() error {
	cdir, err := os.OpenFile(configDir, os.O_RDONLY, 0)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot open config directory: %v", err)
		}
		log.Info("config not exist, generating tree...", logger.Info)

		// create config subdirectories and files
		err = fs.WalkDir(templateConfig, configDir, func(path string, d fs.DirEntry, err error) error {
			if d.IsDir() {
				err := os.Mkdir(path, 0o777)
				if err != nil {
					return fmt.Errorf("cannot create \"%s\" directory: %w", path, err)
				}
				return nil
			}

			dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o666)
			if err != nil {
				return fmt.Errorf("cannot open \"%s\" file: %w", path, err)
			}
			defer dst.Close()

			data, err := fs.ReadFile(templateConfig, path)
			if err != nil {
				return fmt.Errorf("cannot read \"%s\" template file: %w", path, err)
			}

			_, err = dst.Write(data)
			if err != nil {
				return fmt.Errorf("cannot write data into \"%s\" file: %w", path, err)
			}

			log.Info(fmt.Sprintf("Created \"%s\" file", path), logger.Debug)
			return nil
		})

		if err != nil {
			panic(err)
		}
		log.Info("config generation done", logger.Info)

		return nil
	}
	cdir.Close()

	// bring back template files the user deleted
	err = fs.WalkDir(templateConfig, configDir, func(path string, entry fs.DirEntry, err error) error {
		if entry.IsDir() {
			_, err := os.Stat(path)
			if err == nil {
				return nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("unexpected error when reading \"%s\" directory: %w", path, err)
			}
			// ensure directories exists
			err = os.Mkdir(path, 0o777)
			if err != nil {
				return fmt.Errorf("cannot create \"%s\" directory: %w", path, err)
			}
			return nil
		}

		_, err = os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot stat \"%s\" file: %w", path, err)
		}

		log.Info(fmt.Sprintf("Restoring missing configuration: \"%s\"", path), logger.Debug)
		fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return fmt.Errorf("cannot open \"%s\" file for writing: %w", path, err)
		}
		defer fd.Close()

		data, err := fs.ReadFile(templateConfig, path)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" file template: %w", path, err)
		}

		_, err = fd.Write(data)
		if err != nil {
			return fmt.Errorf("cannot write data into \"%s\" file: %w", path, err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("config restore failed: %w", err)
	}
	return nil
}

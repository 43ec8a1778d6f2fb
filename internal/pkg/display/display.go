package display

import (
	"fmt"
	"strings"
	"sync"

	device "github.com/d2r2/go-hd44780"
	"github.com/d2r2/go-i2c"
	d2r2logger "github.com/d2r2/go-logger"

	"github.com/miditap/miditap/internal/pkg/logger"
)

var log = logger.GetLogger()

func getDisplay(addr uint8, bus int, lcdType device.LcdType) (*device.Lcd, *i2c.I2C, error) {
	d2r2logger.ChangePackageLogLevel("i2c", d2r2logger.InfoLevel)

	lcdRaw, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, nil, err
	}

	lcd, err := device.NewLcd(lcdRaw, lcdType)
	if err != nil {
		return nil, lcdRaw, err
	}

	return lcd, lcdRaw, nil
}

func loadCustomCharacters(lcd *device.Lcd, characters [][]byte) {
	for i, char := range characters {
		var location = uint8(i) & 0x7

		lcd.Command(device.CMD_CGRAM_Set | (location << 3))
		lcd.Write(char)
	}
}

// barChars renders the events-per-second graph, one custom character
// slot per bar height.
var barChars = [][]byte{
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1F}, // "▁"
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x1F, 0x1F}, // "▂"
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x1F, 0x1F, 0x1F}, // "▃"
	{0x00, 0x00, 0x00, 0x00, 0x1F, 0x1F, 0x1F, 0x1F}, // "▄"
	{0x00, 0x00, 0x00, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}, // "▅"
	{0x00, 0x00, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}, // "▆"
	{0x00, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}, // "▇"
	{0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F, 0x1F}, // "█"
}

// exitChars replaces the first two slots for the goodbye frame.
var exitChars = [][]byte{
	{0x00, 0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00}, // "❤"
	{0x06, 0x0C, 0x1B, 0x13, 0x10, 0x00, 0x00, 0x00}, // "♪"
}

var conversionMap = map[rune]byte{
	'▁': 0,
	'▂': 1,
	'▃': 2,
	'▄': 3,
	'▅': 4,
	'▆': 5,
	'▇': 6,
	'█': 7,
	'❤': 0,
	'♪': 1,
}

// replaceCharsForDisplay maps the pseudographics onto the custom
// character slots, everything else passes through as plain bytes.
func replaceCharsForDisplay(s string) string {
	var b strings.Builder
	for _, r := range s {
		if n, ok := conversionMap[r]; ok {
			b.WriteByte(n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type DisplayData struct {
	Lines   [4]string
	LastMsg bool // the final frame swaps in the goodbye character set
}

// HandleDisplay drives the LCD from telemetry frames until dd closes.
// With no display on the bus it drains dd silently so the frame
// generator never blocks.
func HandleDisplay(wg *sync.WaitGroup, cfg ScreenConfig, dd <-chan DisplayData) {
	defer wg.Done()

	lcd, bus, err := getDisplay(cfg.Address, cfg.Bus, cfg.LcdType)
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		log.Info(fmt.Sprintf("lcd unavailable: %v", err), logger.Warning)
		for range dd {
		}
		return
	}

	loadCustomCharacters(lcd, barChars)

	lcd.BacklightOn()
	lcd.Clear()

	for data := range dd {
		if data.LastMsg {
			loadCustomCharacters(lcd, exitChars)
			lcd.Clear()
		}

		for i, s := range data.Lines {
			lcd.SetPosition(i, 0)
			lcd.Write([]byte(replaceCharsForDisplay(s)))
		}
	}

	bus.Close()
	log.Info("display closed", logger.Debug)
}

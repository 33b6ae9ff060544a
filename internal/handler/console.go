package handler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Console reads command lines from an input stream on its own goroutine and
// hands them to the game loop through a buffered channel.
type Console struct {
	lines chan string
	log   *zap.Logger
}

// NewConsole wraps r. encoding is "utf-8" or "ms950" (Big5 with the
// Microsoft extensions, as typed on a Traditional Chinese Windows console).
func NewConsole(r io.Reader, encoding string, log *zap.Logger) (*Console, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "ms950", "big5", "cp950":
		r = transform.NewReader(r, traditionalchinese.Big5.NewDecoder())
	default:
		return nil, fmt.Errorf("unsupported console encoding %q", encoding)
	}
	c := &Console{lines: make(chan string, 64), log: log}
	go c.read(r)
	return c, nil
}

func (c *Console) read(r io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		c.lines <- line
	}
	if err := sc.Err(); err != nil {
		c.log.Warn("主控台讀取失敗", zap.Error(err))
	}
}

// Lines returns the channel of entered lines. It is closed at end of input.
func (c *Console) Lines() <-chan string { return c.lines }

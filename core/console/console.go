// Package console implements the operator error-injection aid: lines of
// the form "ERROR <index>" flip a bit at that index for manual corruption
// testing.
package console

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/parityfleet/paritynode/core/store"
)

// Console reads operator lines from r and applies them to s until r is
// exhausted.
type Console struct {
	r     io.Reader
	store *store.Store
	log   *zap.SugaredLogger
}

func New(r io.Reader, s *store.Store, log *zap.SugaredLogger) *Console {
	return &Console{r: r, store: s, log: log}
}

// Run blocks reading lines until r returns EOF or another read error.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.r)
	for scanner.Scan() {
		c.handleLine(scanner.Text())
	}
}

func (c *Console) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	fields := strings.Fields(line)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "ERROR") {
		c.log.Errorw("invalid injection command, expected ERROR <byte_num>", "line", line)
		return
	}

	index, err := strconv.Atoi(fields[1])
	if err != nil {
		c.log.Errorw("invalid position for error insertion", "line", line, "error", err)
		return
	}

	if index < 0 || index >= c.store.Len() {
		c.log.Errorw("position out of range", "index", index, "max", c.store.Len()-1)
		return
	}

	before, _ := c.store.Get(index)
	c.store.Corrupt(index)
	after, ok := c.store.Get(index)

	c.log.Infow("injected error", "index", index, "before", before, "after", after, "parityOk", ok)
}

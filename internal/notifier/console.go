package notifier

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"DailyInvestTrade/internal/model"
)

// CommandHandler is called for each operator command and returns the reply.
type CommandHandler func(command string) string

var (
	openColor   = color.New(color.FgGreen, color.Bold)
	closedColor = color.New(color.FgRed, color.Bold)
	noticeColor = color.New(color.FgYellow)
)

// Console writes desk output to a terminal and reads commands from it.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	limiter *rate.Limiter

	// Countdown lines are printed at most once per CountdownEvery of remaining time.
	CountdownEvery time.Duration
	lastCountdown  time.Duration
}

// NewConsole throttles input to commandsPerSecond; zero or less disables throttling.
func NewConsole(out io.Writer, commandsPerSecond float64) *Console {
	limit := rate.Inf
	if commandsPerSecond > 0 {
		limit = rate.Limit(commandsPerSecond)
	}
	return &Console{
		out:            out,
		limiter:        rate.NewLimiter(limit, 1),
		CountdownEvery: time.Minute,
		lastCountdown:  -1,
	}
}

func (c *Console) MarketStatus(m model.MarketState) {
	line := FormatMarketStatus(m)
	if m.IsOpen {
		line = openColor.Sprint(line)
	} else {
		line = closedColor.Sprint(line)
	}
	c.println(line)
}

func (c *Console) Countdown(d time.Duration) {
	c.mu.Lock()
	due := c.lastCountdown < 0 || c.lastCountdown-d >= c.CountdownEvery || d > c.lastCountdown
	if due {
		c.lastCountdown = d
	}
	c.mu.Unlock()
	if due {
		c.println(FormatCountdown(d))
	}
}

func (c *Console) Notify(msg string) {
	c.println(noticeColor.Sprint(msg))
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, s); err != nil {
		log.Warn().Err(err).Msg("console write failed")
	}
}

// Run reads one command per line from in until EOF, "quit", or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader, handler CommandHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("console stopped")
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "quit" || text == "exit" {
				return nil
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
			log.Debug().Str("command", text).Msg("received command")
			if reply := handler(text); reply != "" {
				c.println(reply)
			}
		}
	}
}

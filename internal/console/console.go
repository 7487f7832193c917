// Package console drives the registry and allocation engine from an
// interactive, line-oriented prompt.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/table-seating/internal/allocation"
	"github.com/eugenenazirov/table-seating/internal/registry"
	"github.com/eugenenazirov/table-seating/internal/report"
)

// ErrMalformedInput is returned when an integer was expected but not given.
var ErrMalformedInput = errors.New("input is not an integer")

const (
	msgGreeting        = "Hallo, aktuell haben unsere Tische folgende Sitzplätze:"
	msgAskEdit         = "Möchtest du die Sitzplatzanzahl eines Tisches ändern? (j/n)"
	msgAskTable        = "Bitte Tischnummer eingeben:"
	msgAskCapacity     = "Bitte neue Sitzplatzanzahl eingeben:"
	msgInvalidTable    = "Ungültige Tischnummer!"
	msgInvalidCapacity = "Ungültige Sitzplatzanzahl!"
	msgAskMoreEdits    = "Weiteren Tisch ändern? (j/n)"
	msgAskCards        = "Bitte gib die Anzahl der reservierten Karten an:"
	msgInvalidCards    = "Ungültige Kartenanzahl!"
	msgAskMoreCards    = "Weitere Reservierung berechnen? (j/n)"
	msgAskShowTables   = "Tische anzeigen? (t)"
	msgNotAnInteger    = "Bitte eine ganze Zahl eingeben."
)

// Session runs one interactive console conversation.
type Session struct {
	in        *bufio.Scanner
	words     <-chan word
	out       io.Writer
	registry  *registry.Registry
	allocator allocation.Allocator
	logger    *zap.Logger
}

// New creates a Session reading whitespace-separated answers from in.
func New(in io.Reader, out io.Writer, reg *registry.Registry, alloc allocation.Allocator, logger *zap.Logger) *Session {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		in:        scanner,
		out:       out,
		registry:  reg,
		allocator: alloc,
		logger:    logger,
	}
}

// word is one whitespace-separated answer, or the error that ended input.
type word struct {
	text string
	err  error
}

// Run prints the table listing, offers capacity edits and then computes
// reservations until the operator declines. End of input finishes the
// session without error. Cancelling ctx interrupts a pending prompt and Run
// returns ctx.Err() without applying the answer. The reader goroutine exits
// once its pending read completes after Run has returned.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.words = s.read(ctx)

	err := s.run(ctx)
	if errors.Is(err, io.EOF) {
		s.logger.Debug("console input closed")
		return nil
	}
	return err
}

func (s *Session) run(ctx context.Context) error {
	s.println(msgGreeting)
	if err := s.showTables(); err != nil {
		return err
	}

	answer, err := s.ask(ctx, msgAskEdit)
	if err != nil {
		return err
	}
	if isYes(answer) {
		if err := s.editLoop(ctx); err != nil {
			return err
		}
	}

	return s.reservationLoop(ctx)
}

func (s *Session) editLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.editTable(ctx); err != nil {
			return err
		}

		again, err := s.askContinue(ctx, msgAskMoreEdits)
		if err != nil {
			return err
		}
		if !again {
			break
		}
	}
	return s.showTables()
}

func (s *Session) editTable(ctx context.Context) error {
	id, err := s.askInt(ctx, msgAskTable)
	if err != nil {
		return err
	}
	if _, err := s.registry.Get(id); err != nil {
		if errors.Is(err, registry.ErrInvalidIdentity) {
			s.println(msgInvalidTable)
			return nil
		}
		return err
	}

	capacity, err := s.askInt(ctx, msgAskCapacity)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.registry.SetCapacity(id, capacity); err != nil {
		if errors.Is(err, registry.ErrInvalidCapacity) {
			s.println(msgInvalidCapacity)
			return nil
		}
		return err
	}

	s.logger.Debug("table capacity changed", zap.Int("table", id), zap.Int("capacity", capacity))
	return nil
}

func (s *Session) reservationLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cards, err := s.askInt(ctx, msgAskCards)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.allocator.Allocate(s.registry, cards)
		switch {
		case errors.Is(err, allocation.ErrInvalidRequest):
			s.println(msgInvalidCards)
		case err != nil:
			return err
		default:
			if err := report.Write(s.out, report.AllocationLines(res)); err != nil {
				return err
			}
		}

		again, err := s.askContinue(ctx, msgAskMoreCards)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// askContinue asks whether to repeat a loop. Answering "t" prints the
// tables and repeats the yes/no question once.
func (s *Session) askContinue(ctx context.Context, question string) (bool, error) {
	s.println(question)
	answer, err := s.ask(ctx, msgAskShowTables)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(answer, "t") {
		if err := s.showTables(); err != nil {
			return false, err
		}
		if answer, err = s.ask(ctx, question); err != nil {
			return false, err
		}
	}
	return isYes(answer), nil
}

func (s *Session) askInt(ctx context.Context, question string) (int, error) {
	for {
		answer, err := s.ask(ctx, question)
		if err != nil {
			return 0, err
		}
		value, err := ParseInt(answer)
		if err == nil {
			return value, nil
		}
		s.logger.Debug("malformed console input", zap.String("input", answer), zap.Error(err))
		s.println(msgNotAnInteger)
	}
}

func (s *Session) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.println(question)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case w, ok := <-s.words:
		if !ok {
			return "", io.EOF
		}
		if w.err != nil {
			return "", w.err
		}
		return w.text, nil
	}
}

// read scans answers in the background so a blocked read never delays
// cancellation. The scanner cannot be interrupted, so the goroutine stays
// parked in Scan until the input produces data, EOF or an error.
func (s *Session) read(ctx context.Context) <-chan word {
	words := make(chan word)
	go func() {
		defer close(words)
		for s.in.Scan() {
			select {
			case words <- word{text: s.in.Text()}:
			case <-ctx.Done():
				return
			}
		}

		err := io.EOF
		if scanErr := s.in.Err(); scanErr != nil {
			err = fmt.Errorf("read console input: %w", scanErr)
		}
		select {
		case words <- word{err: err}:
		case <-ctx.Done():
		}
	}()
	return words
}

func (s *Session) showTables() error {
	return report.Write(s.out, report.Render(s.registry))
}

func (s *Session) println(line string) {
	_, _ = fmt.Fprintln(s.out, line)
}

// ParseInt parses a base-10 integer, wrapping failures in ErrMalformedInput.
func ParseInt(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedInput, raw)
	}
	return value, nil
}

func isYes(answer string) bool {
	return strings.EqualFold(answer, "j")
}

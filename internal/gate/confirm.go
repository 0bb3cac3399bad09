package gate

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// AutoConfirmer always agrees.
type AutoConfirmer struct{}

// Confirm implements Confirmer.
func (AutoConfirmer) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// PromptConfirmer asks the user. On a terminal it shows a huh confirm field;
// otherwise it reads one line and accepts "y" or "yes".
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
	// IsTerminal overrides TTY detection.
	IsTerminal func() bool
}

// NewPromptConfirmer prompts on in/out, detecting a terminal on in.
func NewPromptConfirmer(in *os.File, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{
		In:  in,
		Out: out,
		IsTerminal: func() bool {
			fd := in.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

// Confirm implements Confirmer.
func (p *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if p.IsTerminal != nil && p.IsTerminal() {
		return p.confirmForm(ctx, prompt)
	}
	return p.confirmLine(ctx, prompt)
}

func (p *PromptConfirmer) confirmForm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Write").
			Negative("Keep existing").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (p *PromptConfirmer) confirmLine(ctx context.Context, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s [y/N] ", prompt); err != nil {
		return false, err
	}

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		done <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-done:
		if r.err != nil && r.err != io.EOF {
			return false, r.err
		}
		switch strings.ToLower(strings.TrimSpace(r.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

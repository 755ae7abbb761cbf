package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/gowrangler/internal/session"
	"github.com/schollz/gowrangler/internal/task"
)

// notifier coalesces change callbacks from other goroutines into redraws.
// poke never blocks, so it is safe to call from inside Update.
type notifier struct {
	ch   chan struct{}
	done chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{}, 1), done: make(chan struct{})}
}

func (n *notifier) poke() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *notifier) forward(p *tea.Program) {
	for {
		select {
		case <-n.ch:
			p.Send(changedMsg{})
		case <-n.done:
			return
		}
	}
}

func (n *notifier) stop() { close(n.done) }

// Run shows the control surface for sess until the operator quits or ctx
// is cancelled.
func Run(ctx context.Context, sess *session.Session, cfg Config) error {
	m := New(ctx, sess, cfg)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	sess.OnChange(m.notes.poke)
	sess.Timeline().OnChange(m.notes.poke)
	sess.Tasks().OnChange(func(task.Snapshot) { m.notes.poke() })
	go m.notes.forward(p)
	defer m.notes.stop()

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closePlayer()
	}
	return err
}

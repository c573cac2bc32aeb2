package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"semqa/internal/domain"
	"semqa/internal/transport"
)

// Frames is an open research stream.
type Frames interface {
	Next() (string, error)
	Close()
}

// Opener starts a research stream for params.
type Opener func(ctx context.Context, params domain.SearchParams) (Frames, error)

// ClientOpener adapts a transport client to an Opener.
func ClientOpener(c *transport.Client) Opener {
	return func(ctx context.Context, params domain.SearchParams) (Frames, error) {
		sub, err := c.Open(ctx, params)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

type streamOpenedMsg struct {
	requestID string
	frames    Frames
}

type streamFailedMsg struct {
	requestID string
	err       error
}

type frameMsg struct {
	requestID string
	frame     string
}

type streamEndedMsg struct {
	requestID string
	err       error
}

func openStream(ctx context.Context, open Opener, requestID string, params domain.SearchParams) tea.Cmd {
	return func() tea.Msg {
		f, err := open(ctx, params)
		if err != nil {
			return streamFailedMsg{requestID: requestID, err: err}
		}
		return streamOpenedMsg{requestID: requestID, frames: f}
	}
}

// waitForFrame blocks for exactly one frame so frames reach Update one at a
// time and in arrival order.
func waitForFrame(requestID string, f Frames) tea.Cmd {
	return func() tea.Msg {
		frame, err := f.Next()
		if err != nil {
			return streamEndedMsg{requestID: requestID, err: err}
		}
		return frameMsg{requestID: requestID, frame: frame}
	}
}

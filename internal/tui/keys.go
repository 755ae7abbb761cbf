package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit         key.Binding
	Mode         key.Binding
	Approach     key.Binding
	Generate     key.Binding
	Cancel       key.Binding
	Play         key.Binding
	Rewind       key.Binding
	Upload       key.Binding
	Remove       key.Binding
	Lyrics       key.Binding
	Style        key.Binding
	Tags         key.Binding
	Direction    key.Binding
	BPM          key.Binding
	Instrumental key.Binding
	AutoDuration key.Binding
	Longer       key.Binding
	Shorter      key.Binding
	Up           key.Binding
	Down         key.Binding
	Open         key.Binding
	SendRework   key.Binding
	StartEarlier key.Binding
	StartLater   key.Binding
	EndEarlier   key.Binding
	EndLater     key.Binding
	RegionStart  key.Binding
	RegionEnd    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Mode:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "create/rework")),
		Approach:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "cover/repaint")),
		Generate:     key.NewBinding(key.WithKeys("g", "ctrl+g"), key.WithHelp("g", "generate")),
		Cancel:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		Play:         key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/stop")),
		Rewind:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rewind")),
		Upload:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		Remove:       key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "remove audio")),
		Lyrics:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lyrics")),
		Style:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "style")),
		Tags:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		Direction:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "direction")),
		BPM:          key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bpm")),
		Instrumental: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "instrumental")),
		AutoDuration: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "auto duration")),
		Longer:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "duration")),
		Shorter:      key.NewBinding(key.WithKeys("-")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
		Open:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play result")),
		SendRework:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "send to rework")),
		StartEarlier: key.NewBinding(key.WithKeys("["), key.WithHelp("[ ] { }", "nudge region")),
		StartLater:   key.NewBinding(key.WithKeys("]")),
		EndEarlier:   key.NewBinding(key.WithKeys("{")),
		EndLater:     key.NewBinding(key.WithKeys("}")),
		RegionStart:  key.NewBinding(key.WithKeys("<"), key.WithHelp("< >", "type region")),
		RegionEnd:    key.NewBinding(key.WithKeys(">")),
	}
}

func (k keyMap) short(rework bool) []key.Binding {
	if rework {
		return []key.Binding{k.Generate, k.Cancel, k.Play, k.Rewind, k.Mode, k.Approach, k.Upload, k.Direction, k.StartEarlier, k.RegionStart, k.Quit}
	}
	return []key.Binding{k.Generate, k.Cancel, k.Mode, k.Style, k.Tags, k.Lyrics, k.Instrumental, k.AutoDuration, k.Longer, k.SendRework, k.Quit}
}

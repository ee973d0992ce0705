package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"tgup/internal/domain"
)

// ConsoleUI renders progress bars and handles interactive prompts.
type ConsoleUI struct {
	progress       *mpb.Progress
	nonInteractive bool
}

func NewConsoleUI(nonInteractive bool) *ConsoleUI {
	var p *mpb.Progress
	if !nonInteractive {
		p = mpb.New(mpb.WithWidth(64))
	}
	return &ConsoleUI{
		progress:       p,
		nonInteractive: nonInteractive,
	}
}

// Begin implements domain.ProgressReporter.
func (u *ConsoleUI) Begin(label, name string, total int64) domain.ProgressHandle {
	title := fmt.Sprintf("%s %q", label, name)
	if u.nonInteractive {
		return &plainHandle{title: title, startTime: time.Now()}
	}

	bar := u.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(title, decor.WC{W: len(title) + 1}),
			decor.Counters(decor.SizeB1024(0), "% .2f / % .2f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.Percentage(decor.WCSyncSpace), "done",
			),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncSpace),
		),
	)
	return &barHandle{bar: bar}
}

// Wait flushes the rendered bars; call it once per batch of transfers.
func (u *ConsoleUI) Wait() {
	if u.nonInteractive {
		return
	}
	u.progress.Wait()
	u.progress = mpb.New(mpb.WithWidth(64))
}

type barHandle struct {
	bar *mpb.Bar
}

func (h *barHandle) Update(current int64) {
	h.bar.SetCurrent(current)
}

func (h *barHandle) Finish() {
	h.bar.SetTotal(-1, true)
}

type plainHandle struct {
	title     string
	current   int64
	startTime time.Time
}

func (h *plainHandle) Update(current int64) {
	h.current = current
}

func (h *plainHandle) Finish() {
	elapsed := time.Since(h.startTime).Seconds()
	speed := 0.0
	if elapsed > 0 {
		speed = float64(h.current) / elapsed
	}
	fmt.Printf("%s | %s | %s/s\n", h.title, formatSize(h.current), formatSize(int64(speed)))
}

func formatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// GetPhoneNumber prompts the user for their phone number.
func (u *ConsoleUI) GetPhoneNumber() (string, error) {
	prompt := promptui.Prompt{
		Label: "Enter Phone Number (international format, e.g. +39...)",
		Validate: func(input string) error {
			if len(input) < 5 {
				return errors.New("phone number too short")
			}
			return nil
		},
	}
	return prompt.Run()
}

// GetCode prompts the user for the authentication code.
func (u *ConsoleUI) GetCode() (string, error) {
	prompt := promptui.Prompt{
		Label: "Enter Code",
		Validate: func(input string) error {
			if len(input) == 0 {
				return errors.New("code cannot be empty")
			}
			return nil
		},
	}
	return prompt.Run()
}

// GetPassword prompts the user for their 2FA password.
func (u *ConsoleUI) GetPassword() (string, error) {
	prompt := promptui.Prompt{
		Label: "Enter 2FA Password",
		Mask:  '*',
	}
	return prompt.Run()
}

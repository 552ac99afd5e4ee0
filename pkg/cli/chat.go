package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/chatmem/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// lineReader adapts readline so that Ctrl-C ends the session like Ctrl-D
type lineReader struct {
	rl *readline.Instance
}

func (x *lineReader) Readline() (string, error) {
	line, err := x.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func chatCommand() *cli.Command {
	var (
		cfg        config
		windowSize int64
		agentName  string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "window-size",
			Usage:       "Maximum characters of conversation sent with each turn",
			Value:       chat.DefaultWindowSize,
			Sources:     cli.EnvVars("CHATMEM_WINDOW_SIZE"),
			Destination: &windowSize,
		},
		&cli.StringFlag{
			Name:        "agent-name",
			Usage:       "Name used for the assistant's turns in stored memories",
			Value:       chat.DefaultAgentName,
			Sources:     cli.EnvVars("CHATMEM_AGENT_NAME"),
			Destination: &agentName,
		},
	}
	flags = append(flags, commonFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Chat interactively, saving every turn to memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.newLogger(ctx, errWriter(c))
			defer cfg.close(ctx)

			uc, err := cfg.newMemory(ctx)
			if err != nil {
				return err
			}

			completer, err := cfg.newCompleter(ctx)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          ">>> ",
				InterruptPrompt: "^C",
				EOFPrompt:       chat.QuitCommand,
				Stdout:          c.Root().Writer,
				Stderr:          errWriter(c),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			progress := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errWriter(c)))
			progress.Suffix = " thinking..."

			session := chat.New(uc, completer,
				chat.WithProgress(progress),
				chat.WithWindowSize(int(windowSize)),
				chat.WithAgentName(agentName),
			)

			if err := session.Run(ctx, &lineReader{rl: rl}, c.Root().Writer); err != nil {
				return goerr.Wrap(err, "chat session failed")
			}
			return nil
		},
	}
}

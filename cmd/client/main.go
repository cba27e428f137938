package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/chat"
	"github.com/omochice/socket-session/internal/client"
	"github.com/omochice/socket-session/internal/config"
	"github.com/omochice/socket-session/internal/observability"
	"github.com/omochice/socket-session/internal/session"
	"github.com/omochice/socket-session/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./socksession.yaml or $SOCKSESSION_CONFIG)")
	url := flag.String("url", "", "Server URL (e.g., ws://localhost:8080/ws or tcp://localhost:8080)")
	username := flag.String("username", "", "Username for chat")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Client.URL = *url
	}
	if *username != "" {
		cfg.Client.Username = *username
	}
	if cfg.Client.Username == "" {
		fmt.Fprintln(os.Stderr, "Username is required. Use -username flag")
		os.Exit(1)
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := client.Build(cfg, logger)
	if err != nil {
		logger.Fatal("build client", zap.Error(err))
	}
	defer c.Disconnect()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "\033[32m»\033[0m ",
		HistoryFile: cfg.Client.HistoryFile,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("/quit"),
			readline.PcItem("/state"),
			readline.PcItem("/pending"),
			readline.PcItem("/reconnect"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		logger.Fatal("readline", zap.Error(err))
	}
	defer rl.Close()
	out := rl.Stdout()

	if err := c.OnEvent(func(ev session.Event) { printEvent(out, ev) }); err != nil {
		logger.Fatal("subscribe", zap.Error(err))
	}
	if err := c.Connect(); err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	if err := c.Join(); err != nil {
		logger.Fatal("join", zap.Error(err))
	}

	go func() {
		for msg := range c.Messages() {
			printMessage(out, msg)
		}
	}()

	fmt.Fprintf(out, "Chatting as %s via %s. Type /quit to exit, Tab to complete.\n", cfg.Client.Username, cfg.Client.URL)
loop:
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		switch text := strings.TrimSpace(line); text {
		case "":
		case "/quit":
			break loop
		case "/state":
			fmt.Fprintf(out, "state: %s\n", c.State())
		case "/pending":
			fmt.Fprintf(out, "pending: %d\n", c.Pending())
		case "/reconnect":
			if err := c.Connect(); err != nil {
				logger.Warn("reconnect", zap.Error(err))
			}
		default:
			if err := c.SendMessage(text); err != nil {
				logger.Warn("send", zap.Error(err))
			}
		}
	}

	// Send leave message before disconnecting
	if err := c.Leave(); err != nil {
		logger.Warn("leave", zap.Error(err))
	}
}

func printMessage(w io.Writer, msg protocol.Message) {
	sender := msg.Header(protocol.HeaderSender)
	switch msg.Topic {
	case chat.TopicJoin:
		fmt.Fprintf(w, "*** %s joined the chat ***\n", sender)
	case chat.TopicLeave:
		fmt.Fprintf(w, "*** %s left the chat ***\n", sender)
	default:
		fmt.Fprintf(w, "[%s]: %s\n", sender, msg.Payload)
	}
}

func printEvent(w io.Writer, ev session.Event) {
	switch ev.Type {
	case session.EventConnected:
		fmt.Fprintln(w, "*** connected ***")
	case session.EventReconnecting:
		fmt.Fprintf(w, "*** connection lost, retry %d in %s ***\n", ev.Attempt+1, ev.Delay)
	case session.EventReconnectFailed:
		fmt.Fprintln(w, "*** giving up; messages are queued until /reconnect ***")
	case session.EventBufferOverflow:
		fmt.Fprintf(w, "*** outbox full, dropped %q ***\n", ev.Message.Payload)
	}
}

// Command participant joins a meeting through the admission gate and
// renders the session state on the terminal. As the meeting owner it also
// lists waiting guests and reads accept/deny commands from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"meeting-gate/internal/adapters/rtc"
	"meeting-gate/internal/admission"
	"meeting-gate/internal/client"
	"meeting-gate/internal/config"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

const leaveTimeout = 5 * time.Second

// printer renders a view only when something visible changed.
type printer struct {
	out io.Writer

	mu   sync.Mutex
	last string
}

func (p *printer) render(v admission.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", v.Phase, v.Message)
	if v.Joined {
		fmt.Fprintf(&b, "  joined channel %s\n", v.Credential.ChannelName)
	}
	if v.Owner {
		if len(v.Roster) == 0 {
			b.WriteString("  nobody is waiting\n")
		} else {
			ids := make([]string, len(v.Roster))
			for i, id := range v.Roster {
				ids[i] = string(id)
			}
			fmt.Fprintf(&b, "  waiting: %s (accept <id> | deny <id>)\n", strings.Join(ids, ", "))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s := b.String(); s != p.last {
		p.last = s
		io.WriteString(p.out, s)
	}
}

func (p *printer) println(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func newTransport(cfg *config.Config) admission.Transport {
	if cfg.Media.Transport == "whip" {
		return rtc.NewWHIPTransport(cfg.Media.WHIPURL, cfg.Media.ICEServers, nil)
	}
	return rtc.DryRunTransport{}
}

// command applies one stdin line. It returns false on quit.
func command(ctx context.Context, sess *admission.Session, out *printer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false
	case "accept", "deny":
		if len(fields) != 2 {
			out.println("usage: %s <participant-id>", fields[0])
			return true
		}
		id := domain.ParticipantID(fields[1])
		if fields[0] == "accept" {
			err = sess.Accept(ctx, id)
		} else {
			err = sess.Deny(ctx, id)
		}
	case "mute", "unmute":
		conn := sess.Connection()
		if conn == nil {
			out.println("not joined yet")
			return true
		}
		err = conn.SetMuted(fields[0] == "mute")
	default:
		out.println("commands: accept <id>, deny <id>, mute, unmute, quit")
		return true
	}

	if errors.Is(err, admission.ErrNotOwner) {
		out.println("only the meeting owner can do that")
	} else if err != nil {
		out.println("%s failed: %v", fields[0], err)
	}
	return true
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	meetingID := flag.String("meeting", "", "Meeting to join")
	participantID := flag.String("participant", "", "Your participant id")
	identityToken := flag.String("token", "", "Identity token for the participant (default client.identity_token or MEETING_GATE_TOKEN)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.InitializeWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if *identityToken == "" {
		*identityToken = cfg.Client.IdentityToken
	}
	if *identityToken == "" {
		fmt.Fprintln(os.Stderr, "an identity token is required; issue one with cmd/identity")
		os.Exit(2)
	}

	out := &printer{out: os.Stdout}
	api := client.New(cfg.Client.BaseURL, &http.Client{Timeout: cfg.Admission.CallTimeout}).
		WithIdentity(*identityToken)

	sess, err := admission.NewSession(admission.SessionConfig{
		ParticipantID: domain.ParticipantID(*participantID),
		MeetingID:     domain.MeetingID(*meetingID),
		Store:         api,
		Roster: func(cred domain.Credential) admission.RosterStore {
			return api.Owner(cred)
		},
		Transport: newTransport(cfg),
		Options: admission.Options{
			PollInterval:   cfg.Admission.PollInterval,
			ExpiryCeiling:  cfg.Admission.ExpiryCeiling,
			RosterInterval: cfg.Admission.RosterInterval,
			CallTimeout:    cfg.Admission.CallTimeout,
		},
		OnChange: out.render,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess.Start(ctx)
	out.render(sess.View())

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if !command(ctx, sess, out, scanner.Text()) {
				return
			}
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case <-quit:
	case err := <-done:
		if err != nil {
			exitCode = 1
			switch {
			case errors.Is(err, admission.ErrDenied), errors.Is(err, admission.ErrExpired):
				out.render(sess.View())
			default:
				out.println("could not join: %v", err)
			}
			break
		}
		// Admitted: stay in the meeting until interrupted.
		select {
		case <-ctx.Done():
		case <-quit:
		}
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := sess.Close(leaveCtx); err != nil {
		logger.Warn("Leaving the meeting failed", "error", err)
	}
	out.println("left meeting %s", *meetingID)
	if exitCode != 0 {
		stop()
		cancel()
		os.Exit(exitCode)
	}
}

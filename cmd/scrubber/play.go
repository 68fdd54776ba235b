package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/scrubber/internal/clock"
	"github.com/OCAP2/scrubber/internal/config"
	"github.com/OCAP2/scrubber/internal/dispatcher"
	"github.com/OCAP2/scrubber/internal/engine"
	"github.com/OCAP2/scrubber/internal/storage"
	"github.com/OCAP2/scrubber/internal/timeline"
	"github.com/OCAP2/scrubber/internal/tui"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <session>",
		Short: "Open a session in the terminal scrubber",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlay,
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logs, logFile, err := setupLogging(nil, start)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logs.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	srcCfg := config.GetSourceConfig()
	src, err := openSource(srcCfg, log)
	if err != nil {
		return err
	}
	defer src.Close()

	sess, err := src.Load(ctx, args[0])
	if err != nil {
		return err
	}
	tl, err := sessionTimeline(sess)
	if err != nil {
		return err
	}

	loop := clock.NewLoop()
	eng, err := engine.New(tl, loop, engine.Config{
		FrameInterval: config.GetPlaybackConfig().FrameInterval,
		FadeDuration:  config.GetOverlayConfig().FadeDuration,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	eng.Apply([]timeline.Change{{Kind: timeline.Insert, Markers: sess.Markers}})
	logs.SetContext(eng.LogAttrs)
	log.Info("Session loaded", "session", sess.Name, "markers", eng.Index().Len(), "length", tl.Length)

	d, err := dispatcher.New(log)
	if err != nil {
		return err
	}
	eng.RegisterCommands(d, dispatcher.Deferred(loop.Post), dispatcher.Logged())

	model := tui.New(sess.Name, func(command string, args ...string) error {
		_, err := d.Dispatch(dispatcher.Event{Command: command, Args: args})
		return err
	})
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	feed := tui.NewFeed()
	eng.Subscribe(func(engine.Event) { feed.Push(tui.NewFrame(eng.Snapshot())) })
	loop.Post(func() { feed.Push(tui.NewFrame(eng.Snapshot())) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(loop.Run(gctx)) })
	g.Go(func() error { return feed.Run(gctx, prog.Send) })
	if w, ok := src.(storage.Watcher); ok && srcCfg.Watch {
		g.Go(func() error { return watchSession(gctx, w, sess, loop, eng, log) })
	}
	g.Go(func() error {
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			err = nil
		}
		// leaving the program ends the session
		return errQuit{err}
	})

	err = g.Wait()
	var quit errQuit
	if errors.As(err, &quit) {
		err = quit.err
	}
	log.Info("Session closed", "session", sess.Name, "error", err)
	return err
}

// errQuit stops the errgroup when the program exits.
type errQuit struct{ err error }

func (e errQuit) Error() string {
	if e.err == nil {
		return "quit"
	}
	return e.err.Error()
}

func (e errQuit) Unwrap() error { return e.err }

// sessionTimeline builds the timeline of sess with the playback settings
// applied.
func sessionTimeline(sess *storage.Session) (*timeline.Timeline, error) {
	tl, err := sess.Timeline()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sess.Name, err)
	}
	pb := config.GetPlaybackConfig()
	if err := tl.SetPlaybackSpeed(pb.Speed); err != nil {
		return nil, err
	}
	tl.LoopPlayback = pb.Loop
	tl.Playing = pb.Autoplay
	if tl.DetailTimeout <= 0 {
		tl.DetailTimeout = config.GetOverlayConfig().DetailTimeout
	}
	return tl, nil
}

// watchSession applies marker changes of sess on the control loop until ctx
// is done.
func watchSession(ctx context.Context, w storage.Watcher, sess *storage.Session, loop *clock.Loop, eng *engine.Engine, log *slog.Logger) error {
	err := w.Watch(ctx, sess, func(changes []timeline.Change) {
		loop.Post(func() { eng.Apply(changes) })
	})
	if err = ignoreCanceled(err); err != nil {
		// a broken watch only stops live updates
		log.Error("Session watch stopped", "session", sess.Name, "error", err)
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

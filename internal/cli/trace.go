package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/splitcore/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // empty selects the latest session
	Seq      int64  // when set, report only the record at this seq
	List     bool
}

// SessionInfo describes one recorded run.
type SessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Meta      string    `json:"meta"`
	MetaHash  string    `json:"meta_hash"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
}

// TraceResult is the timeline of one session.
type TraceResult struct {
	Session  SessionInfo    `json:"session"`
	Timeline []trace.Record `json:"timeline"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats summarizes a timeline.
type TraceStats struct {
	Commands     int `json:"commands"`
	Queues       int `json:"queues"`
	Notified     int `json:"notified"`
	ReturnsValue int `json:"returns_value"`
}

// SessionList is the output of trace --list.
type SessionList struct {
	Sessions []SessionInfo `json:"sessions"`
}

// RecordResult answers which command ran at a seq.
type RecordResult struct {
	Session string       `json:"session"`
	Record  trace.Record `json:"record"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded command timeline of a run",
		Long: `Show the command timeline recorded by "splitcore run --db".

Each record names the queue instance and command index that executed at a
sequence number. Feed a queue/index pair back into the run configuration's
breakpoints to stop at that command on the next run.

Examples:
  splitcore trace --db ./trace.db
  splitcore trace --db ./trace.db --list
  splitcore trace --db ./trace.db --session 0190... --seq 42
  splitcore trace --db ./trace.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "show the command executed at this seq")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		list := SessionList{Sessions: make([]SessionInfo, len(sessions))}
		for i, s := range sessions {
			list.Sessions[i] = sessionInfo(s)
		}
		return formatter.Success(list)
	}

	var sess trace.Session
	if opts.Session == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.Session(ctx, opts.Session)
	}
	if errors.Is(err, trace.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load session", err)
	}

	if opts.Seq > 0 {
		rec, err := st.RecordAt(ctx, sess.ID, opts.Seq)
		if errors.Is(err, trace.ErrNotFound) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitFailure, "no record at seq", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read record", err)
		}
		return formatter.Success(RecordResult{Session: sess.ID, Record: rec})
	}

	records, err := st.ReadSession(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	formatter.VerboseLog("session %s: %d records", sess.ID, len(records))

	return formatter.Success(TraceResult{
		Session:  sessionInfo(sess),
		Timeline: records,
		Stats:    traceStats(records),
	})
}

func sessionInfo(s trace.Session) SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		Name:      s.Name,
		Meta:      s.Meta,
		MetaHash:  s.MetaHash,
		CreatedAt: s.CreatedAt,
		Records:   s.Records,
	}
}

func traceStats(records []trace.Record) TraceStats {
	queues := make(map[uint32]bool)
	stats := TraceStats{Commands: len(records)}
	for _, r := range records {
		queues[r.Queue] = true
		if r.Notify {
			stats.Notified++
		}
		if r.ReturnsValue {
			stats.ReturnsValue++
		}
	}
	stats.Queues = len(queues)
	return stats
}

// WriteText implements TextWriter.
func (r TraceResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Session %s (%s)\n", r.Session.ID, r.Session.Name)
	fmt.Fprintf(w, "  meta:    %s\n", r.Session.Meta)
	fmt.Fprintf(w, "  created: %s\n\n", r.Session.CreatedAt.Format(time.RFC3339))

	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "No commands recorded.")
		return nil
	}
	fmt.Fprintln(w, "Timeline:")
	for _, rec := range r.Timeline {
		fmt.Fprintf(w, "  [%d] %d:%d pos=%d", rec.Seq, rec.Queue, rec.Index, rec.Position)
		if rec.ReturnsValue {
			fmt.Fprint(w, " returns")
		}
		if rec.Notify {
			fmt.Fprintf(w, " notify=%d", rec.CallbackID)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d commands from %d queues (%d notified, %d with return values)\n",
		r.Stats.Commands, r.Stats.Queues, r.Stats.Notified, r.Stats.ReturnsValue)
	return nil
}

// WriteText implements TextWriter.
func (r RecordResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "seq %d ran queue %d command %d (buffer position %d)\n",
		r.Record.Seq, r.Record.Queue, r.Record.Index, r.Record.Position)
	return err
}

// WriteText implements TextWriter.
func (l SessionList) WriteText(w io.Writer) error {
	if len(l.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded.")
		return err
	}
	for _, s := range l.Sessions {
		fmt.Fprintf(w, "%s  %-12s %6d records  %s\n",
			s.ID, s.Name, s.Records, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

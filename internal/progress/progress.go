package progress

import "github.com/joeycumines/logiface"

// FrameTracker follows a run of a known number of frames.
type FrameTracker interface {
	SetMessage(msg string)
	SetTotal(frames int)
	SetDone(frame int)
	SetError(err error)
	MarkFinished()
}

type NoopFrameTracker struct{}

var _ FrameTracker = NoopFrameTracker{}

func (n NoopFrameTracker) SetMessage(msg string) {}
func (n NoopFrameTracker) SetTotal(frames int)   {}
func (n NoopFrameTracker) SetDone(frame int)     {}
func (n NoopFrameTracker) SetError(err error)    {}
func (n NoopFrameTracker) MarkFinished()         {}

// LogFrameTracker logs progress every Every frames, and errors and completion as
// they happen.
type LogFrameTracker struct {
	Logger *logiface.Logger[logiface.Event]
	Every  int

	msg   string
	total int
	done  int
	err   error
}

var _ FrameTracker = (*LogFrameTracker)(nil)

func NewLogFrameTracker(logger *logiface.Logger[logiface.Event], every int) *LogFrameTracker {
	if every <= 0 {
		every = 1
	}
	return &LogFrameTracker{Logger: logger, Every: every}
}

func (l *LogFrameTracker) SetMessage(msg string) {
	l.msg = msg
}

func (l *LogFrameTracker) SetTotal(frames int) {
	l.total = frames
}

func (l *LogFrameTracker) SetDone(frame int) {
	l.done = frame
	if frame%l.Every != 0 {
		return
	}
	l.Logger.Debug().
		Str("run", l.msg).
		Int("frame", frame).
		Int("total", l.total).
		Log("progress")
}

func (l *LogFrameTracker) SetError(err error) {
	l.err = err
	l.Logger.Err().
		Str("run", l.msg).
		Int("frame", l.done).
		Err(err).
		Log("run failed")
}

func (l *LogFrameTracker) MarkFinished() {
	if l.err != nil {
		return
	}
	l.Logger.Info().
		Str("run", l.msg).
		Int("frames", l.done).
		Log("run finished")
}

// Done is the last frame reported.
func (l *LogFrameTracker) Done() int {
	return l.done
}

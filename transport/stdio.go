package transport

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/video-transcriber-mcp/mcp"
)

// StdioSession is the cancellation scope of the stdio channel.
const StdioSession = "stdio"

type frame struct {
	data []byte
	err  error
}

// Stdio is a line-delimited channel over a reader and a writer. Frames are
// read by a single goroutine so Receive can honor ctx.
type Stdio struct {
	in     *bufio.Reader
	frames chan frame
	start  sync.Once

	mu  sync.Mutex
	out io.Writer
}

var _ mcp.Channel = (*Stdio)(nil)

// NewStdio creates a channel reading from in and writing to out.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{
		in:     bufio.NewReaderSize(in, 64*1024),
		frames: make(chan frame),
		out:    out,
	}
}

func (s *Stdio) readLoop() {
	defer close(s.frames)
	for {
		line, err := s.in.ReadBytes('\n')
		if len(line) > 0 {
			s.frames <- frame{data: bytes.TrimRight(line, "\r\n")}
		}
		if err != nil {
			s.frames <- frame{err: err}
			return
		}
	}
}

// Receive returns the next line. At end of input it returns io.EOF.
func (s *Stdio) Receive(ctx context.Context) ([]byte, error) {
	s.start.Do(func() { go s.readLoop() })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f.data, f.err
	}
}

// Send writes msg followed by a newline. Concurrent calls never interleave.
func (s *Stdio) Send(_ context.Context, msg []byte) error {
	if bytes.IndexByte(msg, '\n') >= 0 {
		return fmt.Errorf("stdio: message contains a newline")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, 0, len(msg)+1)
	buf = append(append(buf, msg...), '\n')
	_, err := s.out.Write(buf)
	return err
}

// SupportsStreaming is always true: notifications share the stream.
func (s *Stdio) SupportsStreaming() bool { return true }

// Session implements mcp.Channel.
func (s *Stdio) Session() string { return StdioSession }

// ServeStdio serves router over in and out until end of input or until ctx
// is cancelled, then waits for in-flight requests to be answered.
func ServeStdio(ctx context.Context, router *mcp.Router, in io.Reader, out io.Writer) error {
	err := router.Serve(ctx, NewStdio(in, out))
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

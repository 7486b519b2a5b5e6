package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"echoflow/internal/config"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// TempPrefix marks recordings so leftovers can be cleaned up on startup.
const TempPrefix = "RecordTemp_"

const framesPerBuffer = 1024

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateCanceled
)

// Clip is one finished recording.
type Clip struct {
	Data        []byte
	Filename    string
	ContentType string
	Duration    time.Duration
	// Path is the file the data was read from. The caller owns it.
	Path string
}

// DeviceError means the microphone could not be opened.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ErrNotRecording is returned by Stop and Cancel when nothing is running.
var ErrNotRecording = errors.New("recorder not running")

// Options configure the input stream.
type Options struct {
	Channels   int
	SampleRate int
	TempDir    string
	Logger     *log.Logger
}

type result struct {
	path string
	err  error
}

// Recorder captures the default input device into a WAV file. The device is
// held only between Start and Stop/Cancel.
type Recorder struct {
	mu      sync.Mutex
	state   State
	opts    Options
	stop    chan struct{}
	done    chan result
	started time.Time
}

// New creates a recorder.
func New(opts Options) *Recorder {
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Recorder{opts: opts, state: StateIdle}
}

// Start opens the microphone and begins recording. Device failures are
// reported synchronously as *DeviceError.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return fmt.Errorf("recorder not idle")
	}

	if err := portaudio.Initialize(); err != nil {
		return &DeviceError{Err: fmt.Errorf("portaudio init: %w", err)}
	}
	in := make([]int16, framesPerBuffer*r.opts.Channels)
	stream, err := portaudio.OpenDefaultStream(r.opts.Channels, 0, float64(r.opts.SampleRate), framesPerBuffer, in)
	if err != nil {
		_ = portaudio.Terminate()
		return &DeviceError{Err: fmt.Errorf("open stream: %w", err)}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return &DeviceError{Err: fmt.Errorf("start stream: %w", err)}
	}

	path := r.tempPath()
	file, err := os.Create(path)
	if err != nil {
		_ = stream.Stop()
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("create wav: %w", err)
	}

	r.state = StateRecording
	r.stop = make(chan struct{})
	r.done = make(chan result, 1)
	r.started = time.Now()
	r.opts.Logger.Debug("recording started", "path", path)

	go r.loop(ctx, stream, in, file, path)
	return nil
}

// Stop finalises the recording early and returns the clip.
func (r *Recorder) Stop() (Clip, error) {
	res, err := r.finish(StateStopping)
	if err != nil {
		return Clip{}, err
	}
	if res.err != nil {
		return Clip{}, res.err
	}
	return ReadClip(res.path, time.Since(r.started))
}

// Cancel stops recording and discards the audio.
func (r *Recorder) Cancel() error {
	res, err := r.finish(StateCanceled)
	if err != nil {
		return err
	}
	return res.err
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) finish(next State) (result, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return result{}, ErrNotRecording
	}
	r.state = next
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	res := <-done

	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()
	return res, nil
}

func (r *Recorder) canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateCanceled
}

func (r *Recorder) loop(ctx context.Context, stream *portaudio.Stream, in []int16, file *os.File, path string) {
	logger := r.opts.Logger
	enc := wav.NewEncoder(file, r.opts.SampleRate, 16, r.opts.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: r.opts.Channels, SampleRate: r.opts.SampleRate},
		Data:           make([]int, len(in)),
		SourceBitDepth: 16,
	}

	var writeErr error
read:
	for {
		select {
		case <-r.stop:
			break read
		case <-ctx.Done():
			break read
		default:
		}
		if err := stream.Read(); err != nil {
			logger.Debug("stream read error", "err", err)
			continue
		}
		for i, v := range in {
			buf.Data[i] = int(v)
		}
		if err := enc.Write(buf); err != nil {
			writeErr = fmt.Errorf("wav write: %w", err)
			break
		}
	}

	_ = stream.Stop()
	_ = stream.Close()
	_ = portaudio.Terminate()

	closeErr := enc.Close()
	_ = file.Close()

	switch {
	case r.canceled() || ctx.Err() != nil:
		_ = os.Remove(path)
		r.done <- result{}
	case writeErr != nil:
		_ = os.Remove(path)
		r.done <- result{err: writeErr}
	case closeErr != nil:
		_ = os.Remove(path)
		r.done <- result{err: fmt.Errorf("wav close: %w", closeErr)}
	default:
		logger.Debug("recording finished", "path", path)
		r.done <- result{path: path}
	}
}

func (r *Recorder) tempPath() string {
	return TempPath(r.opts.TempDir, "wav")
}

// TempPath returns a fresh RecordTemp_ file name in dir with the given
// extension.
func TempPath(dir, ext string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s.%s", TempPrefix, id, ext))
}

// ReadClip loads a finished audio file into a Clip.
func ReadClip(path string, d time.Duration) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("read clip: %w", err)
	}
	return Clip{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: config.ContainerMIME(filepath.Ext(path)),
		Duration:    d,
		Path:        path,
	}, nil
}

// CleanupTemp removes RecordTemp_ leftovers from a previous run and returns
// the paths it removed.
func CleanupTemp(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err == nil {
			removed = append(removed, p)
		}
	}
	return removed, nil
}

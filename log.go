package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel mirrors the original's Log_Level enum (error < warning < info
// < debug, lower numeric value = higher severity).
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarning
	LogInfo
	LogDebug
)

// ParseLogLevel converts a logging.level config value ("error",
// "warning", "info", "debug") into a LogLevel, defaulting to LogInfo for
// anything unrecognized.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LogError
	case "WARNING", "WARN":
		return LogWarning
	case "DEBUG":
		return LogDebug
	default:
		return LogInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogError:
		return zapcore.ErrorLevel
	case LogWarning:
		return zapcore.WarnLevel
	case LogDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger wraps zap with the leveled error/warning/info/debug surface the
// original's LOGGER_E/W/I/D macros expose, plus a rollover-capable file
// sink sized from the logging.* config keys.
type Logger struct {
	zap   *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewLogger builds a Logger from cfg's logging.* keys (spec §6). When
// logging.enabled is false, every call is a no-op. A malformed or
// unwritable logging.filename falls back to stderr, matching the
// original's log_fallback behavior rather than failing startup.
func NewLogger(cfg *Config) *Logger {
	atomicLevel := zap.NewAtomicLevelAt(ParseLogLevel(cfg.GetString("logging.level")).zapLevel())
	if !cfg.GetBool("logging.enabled") {
		return &Logger{zap: zap.NewNop().Sugar(), level: atomicLevel}
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:       "T",
		LevelKey:      "L",
		MessageKey:    "M",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format("2006-01-02 15:04:05")) },
		EncodeCaller:  zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}

	sink, err := newRotatingWriter(
		cfg.GetString("logging.filename"),
		cfg.GetString("logging.mode"),
		cfg.GetInt("logging.max-file-size-kb"),
		cfg.GetInt("logging.file-count"),
	)
	var writer zapcore.WriteSyncer
	if err != nil {
		writer = zapcore.AddSync(os.Stderr)
	} else {
		writer = sink
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), writer, atomicLevel)
	return &Logger{zap: zap.New(core).Sugar(), level: atomicLevel}
}

// SetLevel changes the reporting level at runtime (logging.level can be
// changed live from a script or debug menu).
func (l *Logger) SetLevel(level LogLevel) { l.level.SetLevel(level.zapLevel()) }

func (l *Logger) Errorf(format string, args ...any)   { l.zap.Errorf(format, args...) }
func (l *Logger) Warningf(format string, args ...any) { l.zap.Warnf(format, args...) }
func (l *Logger) Infof(format string, args ...any)    { l.zap.Infof(format, args...) }
func (l *Logger) Debugf(format string, args ...any)   { l.zap.Debugf(format, args...) }

// Sync flushes any buffered log entries, intended for a clean shutdown.
func (l *Logger) Sync() error { return l.zap.Sync() }

// --- rotating file writer ---

// rotatingWriter is a zapcore.WriteSyncer that rolls filename to
// filename.1, filename.1 to filename.2, etc. once it exceeds maxBytes,
// keeping at most maxFiles rotated copies. maxBytes<=0 or maxFiles<=0
// disables the corresponding limit (spec's -1 default = unbounded). No
// rotation library appears anywhere in the retrieved pack, so this
// mirrors the original's open_log_file/rollover logic directly.
type rotatingWriter struct {
	file     *os.File
	path     string
	maxBytes int64
	maxFiles int
	written  int64
}

func newRotatingWriter(path, mode string, maxSizeKB, maxFiles int) (*rotatingWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("logging.filename is empty")
	}
	flags := os.O_CREATE | os.O_WRONLY
	if strings.EqualFold(mode, "append") {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetLoading, err)
	}
	written := int64(0)
	if info, err := f.Stat(); err == nil {
		written = info.Size()
	}
	return &rotatingWriter{
		file:     f,
		path:     path,
		maxBytes: int64(maxSizeKB) * 1024,
		maxFiles: maxFiles,
		written:  written,
	}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if w.maxBytes > 0 && w.written+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *rotatingWriter) Sync() error { return w.file.Sync() }

func (w *rotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	keep := w.maxFiles
	if keep > 0 {
		os.Remove(fmt.Sprintf("%s.%d", w.path, keep))
	} else {
		// No count limit: shift every existing copy up by one.
		keep = 1
		for {
			if _, err := os.Stat(fmt.Sprintf("%s.%d", w.path, keep)); err != nil {
				break
			}
			keep++
		}
	}
	for i := keep - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", w.path, i)
		to := fmt.Sprintf("%s.%d", w.path, i+1)
		if _, err := os.Stat(from); err == nil {
			os.Rename(from, to)
		}
	}
	os.Rename(w.path, fmt.Sprintf("%s.1", w.path))
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.written = 0
	return nil
}

// LogDir ensures dir exists (used for a configured logging.filename
// nested under a subdirectory), returning the cleaned absolute-or-
// relative path unchanged on success.
func LogDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return path, nil
}

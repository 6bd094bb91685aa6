package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"dtc/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// Prepare builds the program logger. Messages below Error go to stdout,
// Error and above go to stderr, a file core is added on top when configured.
// A pending debug report forces full logging to the file regardless of the
// configured level.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {

	fc, movedTo, err := conf.fileCore(rpt)
	if err != nil {
		return nil, err
	}

	log := zap.New(zapcore.NewTee(
		consoleCore(os.Stderr, conf.ConsoleLogger.Level, true),
		consoleCore(os.Stdout, conf.ConsoleLogger.Level, false),
		fc,
	), zap.AddCaller()).Named(misc.GetAppName())

	if movedTo != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", movedTo))
	}
	return log, nil
}

// consoleCore builds a core for one of the standard streams. With errBand set
// the core takes Error and above and trims verbose error fields, otherwise it
// takes everything below Error down to the configured level.
func consoleCore(stream *os.File, level string, errBand bool) zapcore.Core {

	var floor zapcore.Level
	switch level {
	case "debug":
		floor = zapcore.DebugLevel
	case "normal":
		floor = zapcore.InfoLevel
	default:
		return zapcore.NewNopCore()
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}

	if errBand {
		return zapcore.NewCore(newTrimmedEncoder(ec), zapcore.Lock(stream),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			}))
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(stream),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return floor <= lvl && lvl < zapcore.ErrorLevel
		}))
}

// fileCore builds the file logging core. When the destination cannot be
// opened the log moves to a temporary file and movedTo carries its path.
func (conf *LoggingConfig) fileCore(rpt *Report) (core zapcore.Core, movedTo string, err error) {

	level := conf.FileLogger.Level
	mode := conf.FileLogger.Mode
	if rpt != nil {
		// the report always collects a full log
		level = "debug"
		mode = "overwrite"
	}

	var atom zap.AtomicLevel
	switch level {
	case "debug":
		atom = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "normal":
		atom = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		return zapcore.NewNopCore(), "", nil
	}

	captureCrashes(filepath.Dir(conf.FileLogger.Destination), mode, rpt)

	f, err := openLogFile(conf.FileLogger.Destination, mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
			return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		movedTo = f.Name()
	}
	rpt.Store("final.log", f.Name())

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zapcore.NewCore(enc, zapcore.Lock(f), atom), movedTo, nil
}

// captureCrashes points the runtime crash output at a panic log next to the
// regular one, panics then survive even when the process dies hard.
func captureCrashes(dir, mode string, rpt *Report) {
	f, err := openLogFile(filepath.Join(dir, misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			// run without crash capture
			return
		}
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
	rpt.Store("panic.log", f.Name())
	f.Close()
}

func openLogFile(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0o644)
}

// Error fields shown on the console drop the verbose representation, the
// full text still lands in the file log.

type trimmedEncoder struct {
	zapcore.Encoder
}

func newTrimmedEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return trimmedEncoder{zapcore.NewConsoleEncoder(cfg)}
}

func (c trimmedEncoder) Clone() zapcore.Encoder {
	return trimmedEncoder{c.Encoder.Clone()}
}

func (c trimmedEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	trimmed := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			f.Interface = errors.New(f.Interface.(error).Error())
		}
		trimmed = append(trimmed, f)
	}
	return c.Encoder.EncodeEntry(ent, trimmed)
}

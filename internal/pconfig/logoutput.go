package pconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ietf-svn-conversion/postconfirm/framework/config"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

// logOut wraps log.Output and preserves the directive arguments it was
// constructed from, so the output can be reinitialized for log file
// rotation.
type logOut struct {
	args []string
	log.Output
}

func logOutput(_ *config.Map, node config.Node) (interface{}, error) {
	if len(node.Args) == 0 {
		return nil, config.NodeErr(node, "expected at least 1 argument")
	}
	if len(node.Children) != 0 {
		return nil, config.NodeErr(node, "can't declare block here")
	}

	return LogOutputOption(node.Args)
}

// LogOutputOption builds a log.Output from a list of target names: "stderr",
// "stderr_ts" (with timestamps), "syslog", "off", or a log file path.
// Multiple targets are combined.
func LogOutputOption(args []string) (log.Output, error) {
	outs := make([]log.Output, 0, len(args))
	for i, arg := range args {
		switch arg {
		case "stderr":
			outs = append(outs, log.WriterOutput(os.Stderr, false))
		case "stderr_ts":
			outs = append(outs, log.WriterOutput(os.Stderr, true))
		case "syslog":
			syslogOut, err := log.SyslogOutput()
			if err != nil {
				return nil, fmt.Errorf("failed to connect to syslog daemon: %v", err)
			}
			outs = append(outs, syslogOut)
		case "off":
			if len(args) != 1 {
				return nil, errors.New("'off' can't be combined with other log targets")
			}
			return log.NopOutput{}, nil
		default:
			// Log file paths are converted to absolute so the file can be
			// reopened at the same location after a rotation even if the
			// working directory changed.
			absPath, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			args[i] = absPath

			w, err := os.OpenFile(absPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
			if err != nil {
				return nil, fmt.Errorf("failed to create log file: %v", err)
			}

			outs = append(outs, log.WriteCloserOutput(w, true))
		}
	}

	if len(outs) == 1 {
		return logOut{args, outs[0]}, nil
	}
	return logOut{args, log.MultiOutput(outs...)}, nil
}

// ReinitLogging reopens the process log output from the arguments it was
// originally configured with. Intended to run on the log-rotation signal so
// a rotated log file is recreated rather than written through a stale
// descriptor.
func ReinitLogging() {
	out, ok := log.DefaultLogger.Out.(logOut)
	if !ok {
		log.Println("can't reinitialize logger because it was replaced before, this is a bug")
		return
	}

	newOut, err := LogOutputOption(out.args)
	if err != nil {
		log.Println("can't reinitialize logger:", err)
		return
	}

	out.Close()

	log.DefaultLogger.Out = newOut
}

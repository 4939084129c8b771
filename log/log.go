package log

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/astaxie/beego/logs"
)

const (
	defaultLogLevel   = logs.LevelDebug
	errModuleNotFound = "module not found"
	logFileName       = "chainstate.log"
)

// mapModule holds the modules allowed through Print; empty means all.
var mapModule = make(map[string]struct{})

var levelMap = map[string]int{
	"emergency":     logs.LevelEmergency,
	"alert":         logs.LevelAlert,
	"critical":      logs.LevelCritical,
	"error":         logs.LevelError,
	"warn":          logs.LevelWarn,
	"warning":       logs.LevelWarning,
	"notice":        logs.LevelNotice,
	"info":          logs.LevelInfo,
	"informational": logs.LevelInformational,
	"debug":         logs.LevelDebug,
}

type LogConfig struct {
	Filename string `json:"filename"`
	Level    int    `json:"level"`
	Rotate   bool   `json:"rotate,omitempty"`
	Daily    bool   `json:"daily,omitempty"`
	MaxDays  int64  `json:"maxdays,omitempty"`
}

func GetLevel(level string) int {
	ele, ok := levelMap[strings.ToLower(level)]
	if !ok {
		return defaultLogLevel
	}
	return ele
}

// Init installs the beego file adapter with a JSON adapter configuration.
func Init(config string) {
	logs.Reset()
	logs.EnableFuncCallDepth(true)
	logs.SetLogFuncCallDepth(4)
	if err := logs.SetLogger(logs.AdapterFile, config); err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
}

// InitLogger writes rotated daily logs under dir at the given level, keeping
// only messages of the listed modules when any are given.
func InitLogger(dir, level string, modules []string) error {
	cfg, err := json.Marshal(LogConfig{
		Filename: filepath.Join(dir, logFileName),
		Level:    GetLevel(level),
		Rotate:   true,
		Daily:    true,
		MaxDays:  7,
	})
	if err != nil {
		return err
	}
	Init(string(cfg))

	mapModule = make(map[string]struct{}, len(modules))
	for _, m := range modules {
		mapModule[m] = struct{}{}
	}
	return nil
}

func IsIncludeModule(module string) bool {
	if len(mapModule) == 0 {
		return true
	}
	_, ok := mapModule[module]
	return ok
}

// Print logs format under module at the named level.
func Print(module string, level string, format string, reason ...interface{}) {
	if !IsIncludeModule(module) {
		logs.Debug("%s: %s", errModuleNotFound, module)
		return
	}
	format = "[" + module + "] " + format
	switch strings.ToLower(level) {
	case "emergency":
		logs.Emergency(format, reason...)
	case "alert":
		logs.Alert(format, reason...)
	case "critical":
		logs.Critical(format, reason...)
	case "error":
		logs.Error(format, reason...)
	case "warn", "warning":
		logs.Warn(format, reason...)
	case "notice":
		logs.Notice(format, reason...)
	case "info", "informational":
		logs.Info(format, reason...)
	case "debug":
		logs.Debug(format, reason...)
	default:
		logs.Debug(format, reason...)
	}
}

func Emergency(f interface{}, v ...interface{}) {
	logs.Emergency(f, v...)
}

func Alert(f interface{}, v ...interface{}) {
	logs.Alert(f, v...)
}

func Critical(f interface{}, v ...interface{}) {
	logs.Critical(f, v...)
}

func Error(f interface{}, v ...interface{}) {
	logs.Error(f, v...)
}

func Warn(f interface{}, v ...interface{}) {
	logs.Warn(f, v...)
}

func Notice(f interface{}, v ...interface{}) {
	logs.Notice(f, v...)
}

func Info(f interface{}, v ...interface{}) {
	logs.Info(f, v...)
}

func Debug(f interface{}, v ...interface{}) {
	logs.Debug(f, v...)
}

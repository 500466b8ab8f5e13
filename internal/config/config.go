// Package config reads the driver's per-task INI configuration: each
// task owns one or more local/remote sync path pairs and the connection
// and limit settings for its WebDAV endpoint.
//
// A task's remote and local halves live in two sections sharing a name
// prefix split on a space ("MyTask Remote" / "MyTask Local"), each
// declaring its own SyncPaths pipe-delimited list paired index-wise
// against its counterpart section.
package config

import (
	"strconv"
	"strings"

	"github.com/Unknwon/goconfig"
	"github.com/pkg/errors"
)

const (
	keySyncPaths           = "SyncPaths"
	keyServer              = "Server"
	keyPort                = "Port"
	keyProto               = "Proto"
	keyUsername            = "Username"
	keyPassword            = "Password"
	keyMaxFileSizeKB       = "MaxFileSizeKB"
	keyReadOnly            = "ReadOnly"
	keyServerSha256        = "ServerSha256"
	keyOnlyIfSyncPathExist = "OnlyIfSyncPathExist"
	keyUseLocks            = "UseLocks"
	keyMaxThreads          = "MaxThreads"

	pathDelimiter    = "|"
	sectionDelimiter = " "

	roleRemote = "Remote"
	roleLocal  = "Local"
)

// Side holds the settings declared by one role section (Remote or
// Local) of a task.
type Side struct {
	SyncPaths           []string
	Server              string
	Port                int
	Proto               string
	Username            string
	Password            string
	MaxFileSizeKB       int64
	ReadOnly            bool
	ServerSha256        string
	OnlyIfSyncPathExist bool
	UseLocks            bool
	MaxThreads          int
}

// IsWebDAVConfigured reports whether this side names a server, the way
// filesyncer.py's isServerSha256FingerprintSet gated fingerprint
// verification.
func (s Side) IsWebDAVConfigured() bool { return s.Server != "" }

// Task pairs a task's remote and local sides. SyncPaths on both sides
// must have equal length: element i of Remote.SyncPaths syncs against
// element i of Local.SyncPaths.
type Task struct {
	Name   string
	Remote Side
	Local  Side
}

// Validate reports an error if the remote and local path lists are not
// the same length, mirroring filesyncer.py's "not equal amount of paths
// to sync" guard.
func (t Task) Validate() error {
	if len(t.Remote.SyncPaths) != len(t.Local.SyncPaths) {
		return errors.Errorf("task %q: %d remote sync paths but %d local sync paths", t.Name, len(t.Remote.SyncPaths), len(t.Local.SyncPaths))
	}
	return nil
}

// Load parses path into one Task per section-name prefix.
func Load(path string) (map[string]*Task, error) {
	cfg, err := goconfig.LoadConfigFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config file")
	}

	tasks := map[string]*Task{}
	for _, section := range cfg.GetSectionList() {
		name, role := splitSectionName(section)
		task, ok := tasks[name]
		if !ok {
			task = &Task{Name: name}
			tasks[name] = task
		}
		side := readSide(cfg, section)
		switch role {
		case roleRemote:
			task.Remote = side
		case roleLocal:
			task.Local = side
		}
	}
	return tasks, nil
}

func splitSectionName(section string) (name, role string) {
	i := strings.LastIndex(section, sectionDelimiter)
	if i < 0 {
		return section, ""
	}
	return section[:i], section[i+len(sectionDelimiter):]
}

func readSide(cfg *goconfig.ConfigFile, section string) Side {
	rawPaths := cfg.MustValue(section, keySyncPaths, "")
	var paths []string
	if rawPaths != "" {
		paths = strings.Split(rawPaths, pathDelimiter)
	}
	return Side{
		SyncPaths:           paths,
		Server:              cfg.MustValue(section, keyServer, ""),
		Port:                cfg.MustInt(section, keyPort, 0),
		Proto:               cfg.MustValue(section, keyProto, "https"),
		Username:            cfg.MustValue(section, keyUsername, ""),
		Password:            cfg.MustValue(section, keyPassword, ""),
		MaxFileSizeKB:       mustInt64(cfg, section, keyMaxFileSizeKB, 0),
		ReadOnly:            cfg.MustBool(section, keyReadOnly, false),
		ServerSha256:        cfg.MustValue(section, keyServerSha256, ""),
		OnlyIfSyncPathExist: cfg.MustBool(section, keyOnlyIfSyncPathExist, true),
		UseLocks:            cfg.MustBool(section, keyUseLocks, false),
		MaxThreads:          cfg.MustInt(section, keyMaxThreads, 1),
	}
}

func mustInt64(cfg *goconfig.ConfigFile, section, key string, def int64) int64 {
	raw := cfg.MustValue(section, key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

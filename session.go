package adbfs

import (
	"path"
	"strings"
)

const (
	RootPath = "/"

	// AppDataRoot holds one private directory per installed package.
	AppDataRoot = "/data/data"

	// EscalationVerb runs the rest of a device command as an application.
	EscalationVerb = "run-as"
)

// Session is the state of one browsing session: the selected device, the
// current remote directory and the package used for run-as escalation.
//
// The path is always absolute and cleaned, so it has no trailing slash
// except for the root itself.
type Session struct {
	// Device is the serial passed as `-s`. Empty means the bridge picks
	// the only attached device.
	Device string

	// Scope is the package whose storage under /data/data/<Scope> is only
	// reachable through run-as.
	Scope string

	path string
}

func NewSession() *Session {
	return &Session{path: RootPath}
}

func (s *Session) Path() string {
	if s.path == "" {
		return RootPath
	}
	return s.path
}

func (s *Session) EnterRoot() {
	s.path = RootPath
}

func (s *Session) EnterUp() {
	if s.Path() == RootPath {
		return
	}
	s.path = path.Dir(s.Path())
}

// EnterChild descends into name. Entering "data" from the root with a scope
// set jumps straight to the scope's private directory, since /data itself
// cannot be listed without root.
func (s *Session) EnterChild(name string) {
	if name == "" {
		return
	}
	if s.Path() == RootPath && name == "data" && s.Scope != "" {
		s.path = s.ScopeRoot()
		return
	}
	s.path = s.Resolve(name)
}

// Chdir moves to p, relative to the current directory unless absolute.
func (s *Session) Chdir(p string) {
	if p == "" {
		return
	}
	s.path = s.Resolve(p)
}

// Open navigates according to the entry the user picked. It returns false
// when the entry is a plain file and nothing changed.
func (s *Session) Open(entry RemoteEntry) bool {
	switch {
	case entry.Name == ".":
		s.EnterRoot()
	case entry.Name == "..":
		s.EnterUp()
	case entry.IsSymlink():
		s.Chdir(entry.LinkTarget)
	case entry.IsDir():
		s.EnterChild(entry.Name)
	default:
		return false
	}
	return true
}

// Resolve joins name onto the current directory. Absolute names are only
// cleaned.
func (s *Session) Resolve(name string) string {
	if strings.HasPrefix(name, "/") {
		return path.Clean(name)
	}
	return path.Join(s.Path(), name)
}

func (s *Session) ScopeRoot() string {
	if s.Scope == "" {
		return ""
	}
	return AppDataRoot + "/" + s.Scope
}

// Escalates reports whether p has to be reached through run-as. This is a
// plain prefix test against the scope's directory; the package is not
// checked against what is installed.
func (s *Session) Escalates(p string) bool {
	return s.Scope != "" && strings.HasPrefix(p, s.ScopeRoot())
}

// Route prefixes a device command with `run-as <scope>` when target needs it.
// It is evaluated on every call, so a scope change applies to the next
// command without navigating.
func (s *Session) Route(target string, command ...string) []string {
	if !s.Escalates(target) {
		return command
	}
	return append([]string{EscalationVerb, s.Scope}, command...)
}

package adbfs

import (
	"regexp"
	"sort"
	"strings"
)

// UnknownTime replaces the lone run of '?' ls prints when it cannot stat an
// entry, so the date and time columns still take two tokens.
const UnknownTime = "????-??-?? ??:??"

const symlinkArrow = " -> "

var unknownTimestamp = regexp.MustCompile(`^(\S+\s+\S+\s+\S+\s+\S+\s+\S+)\s+\?+(\s)`)

// ParseListing parses `ls -lah` output. Lines with fewer than six columns
// are dropped. Directories sort before files, each group by name ignoring case.
func ParseListing(output string) []RemoteEntry {
	var entries []RemoteEntry
	for _, line := range strings.Split(output, "\n") {
		entry, ok := parseListingLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	SortEntries(entries)
	return entries
}

func SortEntries(entries []RemoteEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func parseListingLine(line string) (RemoteEntry, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return RemoteEntry{}, false
	}
	line = unknownTimestamp.ReplaceAllString(line, "${1} "+UnknownTime+"${2}")

	// perms links owner group size date time, then the name which may
	// contain spaces
	fields, name := splitFields(line, 7)
	columns := len(fields)
	if name != "" {
		columns++
	}
	if columns < 6 {
		return RemoteEntry{}, false
	}
	if name == "" {
		name = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}

	entry := RemoteEntry{
		Name:        name,
		Kind:        KindFile,
		Permissions: fields[0],
	}
	if strings.HasPrefix(entry.Permissions, "d") {
		entry.Kind = KindDir
	}
	if strings.HasPrefix(entry.Permissions, "l") {
		if i := strings.Index(name, symlinkArrow); i >= 0 {
			entry.Name = name[:i]
			entry.LinkTarget = name[i+len(symlinkArrow):]
		}
	}

	entry.Owner = field(fields, 2)
	entry.Group = field(fields, 3)
	entry.Size = field(fields, 4)
	entry.ModifiedAt = strings.TrimSpace(field(fields, 5) + " " + field(fields, 6))
	return entry, true
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// splitFields cuts up to n whitespace separated fields off the front of line
// and returns them along with the untouched remainder.
func splitFields(line string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	rest := line
	for len(fields) < n {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	return fields, strings.TrimLeft(rest, " \t")
}

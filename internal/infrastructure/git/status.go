package git

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/rios0rios0/gitu/internal/domain/repositories"
)

// ParsePorcelainStatus parses `git status --porcelain=v2 --branch`
// output into a GitStatus.
func ParsePorcelainStatus(out string) repositories.GitStatus {
	var status repositories.GitStatus

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "# branch.ab "):
			status.Ahead, status.Behind = parseAheadBehind(line)
		case strings.HasPrefix(line, "u "):
			if path := fieldAt(line, 10); path != "" {
				status.Conflicted = append(status.Conflicted, path)
			}
		case strings.HasPrefix(line, "1 "), strings.HasPrefix(line, "2 "):
			classifyChanged(line, &status)
		case strings.HasPrefix(line, "? "):
			status.Untracked = append(status.Untracked, line[2:])
		}
	}

	return status
}

// parseAheadBehind reads the "# branch.ab +N -M" header line.
func parseAheadBehind(line string) (int, int) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return 0, 0
	}
	ahead, _ := strconv.Atoi(strings.TrimPrefix(fields[2], "+"))
	behind, _ := strconv.Atoi(strings.TrimPrefix(fields[3], "-"))
	return ahead, behind
}

// classifyChanged reads a "1 XY ..." or "2 XY ..." changed entry. X is
// the staged state, Y the working-tree state.
func classifyChanged(line string, status *repositories.GitStatus) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return
	}
	xy := fields[1]

	// Renames ("2 ...") carry a similarity score before the path and
	// "path<TAB>origPath" at the end; keep the new path.
	pathIdx := 8
	if line[0] == '2' {
		pathIdx = 9
	}
	path := fieldAt(line, pathIdx)
	if tab := strings.Index(path, "\t"); tab >= 0 {
		path = path[:tab]
	}
	if path == "" {
		return
	}

	if xy[0] != '.' {
		status.Staged = append(status.Staged, path)
	}
	if xy[0] == 'D' || (len(xy) > 1 && xy[1] == 'D') {
		status.Deleted = append(status.Deleted, path)
	}
}

// fieldAt returns the idx-th whitespace-separated field joined with the
// rest of the line from that field on trimmed to the field itself for
// simple paths. Paths with spaces keep everything from the field start.
func fieldAt(line string, idx int) string {
	rest := line
	for i := 0; i < idx; i++ {
		cut := strings.IndexByte(rest, ' ')
		if cut < 0 {
			return ""
		}
		rest = rest[cut+1:]
	}
	return rest
}

package version

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const DefaultFile = ".version"

// Info describes the deployed build.
type Info struct {
	Commit        string `json:"commit"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message"`
	FormattedDate string `json:"formattedDate"`
}

var saoPaulo = loadSaoPaulo()

func loadSaoPaulo() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Read parses the version file: commit, RFC3339 timestamp and message, one
// per line. An unreadable file yields a development placeholder.
func Read(path string, now time.Time) Info {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("[Version] could not read %s: %v", path, err)
		return Info{
			Commit:        "unknown",
			Timestamp:     now.UTC().Format(time.RFC3339),
			Message:       "Development version",
			FormattedDate: now.In(saoPaulo).Format("02/01/2006"),
		}
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	line := func(i string) string { return strings.TrimSpace(i) }

	info := Info{Commit: "unknown", Timestamp: now.UTC().Format(time.RFC3339), Message: "No message"}
	if len(lines) > 0 && line(lines[0]) != "" {
		info.Commit = line(lines[0])
	}
	if len(lines) > 1 && line(lines[1]) != "" {
		info.Timestamp = line(lines[1])
	}
	if len(lines) > 2 && line(lines[2]) != "" {
		info.Message = line(lines[2])
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}

	if ts, err := time.Parse(time.RFC3339, info.Timestamp); err == nil {
		info.FormattedDate = ts.In(saoPaulo).Format("02/01/2006 15:04:05")
	} else {
		info.FormattedDate = info.Timestamp
	}
	return info
}

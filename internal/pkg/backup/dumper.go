package backup

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2/log"
)

// ConnInfo is what mysqldump needs to reach the database.
type ConnInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	TLS      bool
}

// ConnInfoFromDSN parses a go-sql-driver DSN.
func ConnInfoFromDSN(dsn string) (ConnInfo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ConnInfo{}, fmt.Errorf("invalid DSN: %w", err)
	}
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		host, port = cfg.Addr, "3306"
	}
	return ConnInfo{
		Host:     host,
		Port:     port,
		User:     cfg.User,
		Password: cfg.Passwd,
		Database: cfg.DBName,
		TLS:      cfg.TLSConfig != "" && cfg.TLSConfig != "false",
	}, nil
}

type DumpResult struct {
	Filename  string
	Path      string
	Size      int64
	Timestamp time.Time
}

// Dumper shells out to mysqldump and writes the dump to a temp file.
type Dumper struct {
	Binary  string
	Conn    ConnInfo
	TempDir string

	now func() time.Time
	// command builds the process; swapped in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewDumper(binary string, conn ConnInfo) *Dumper {
	if binary == "" {
		binary = "mysqldump"
	}
	return &Dumper{
		Binary:  binary,
		Conn:    conn,
		TempDir: os.TempDir(),
		now:     time.Now,
		command: exec.CommandContext,
	}
}

// Filename is backup-<ISO timestamp>.sql with ':' and '.' replaced by '-'.
func Filename(ts time.Time) string {
	iso := ts.UTC().Format("2006-01-02T15:04:05.000Z")
	return "backup-" + strings.NewReplacer(":", "-", ".", "-").Replace(iso) + ".sql"
}

// Args returns the mysqldump arguments. The password goes through MYSQL_PWD.
func (d *Dumper) Args() []string {
	args := []string{
		"--host=" + d.Conn.Host,
		"--port=" + d.Conn.Port,
		"--user=" + d.Conn.User,
		"--single-transaction",
		"--quick",
		"--lock-tables=false",
		"--set-gtid-purged=OFF",
	}
	if d.Conn.TLS {
		args = append(args, "--ssl-mode=REQUIRED")
	}
	return append(args, d.Conn.Database)
}

// Dump writes a full dump. The temp file is removed when the dump fails.
func (d *Dumper) Dump(ctx context.Context) (*DumpResult, error) {
	ts := d.now()
	name := Filename(ts)
	path := filepath.Join(d.TempDir, name)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	log.Infof("[Backup] dumping database %s", d.Conn.Database)

	var stderr bytes.Buffer
	cmd := d.command(ctx, d.Binary, d.Args()...)
	cmd.Env = append(cmd.Environ(), "MYSQL_PWD="+d.Conn.Password)
	cmd.Stdout = out
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	closeErr := out.Close()
	if runErr == nil && closeErr != nil {
		runErr = closeErr
	}
	if runErr == nil && hasRealError(stderr.String()) {
		runErr = fmt.Errorf("%s", strings.TrimSpace(stderr.String()))
	}
	if runErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("mysqldump failed: %w (%s)", runErr, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dump: %w", err)
	}
	log.Infof("[Backup] dump created: %s (%.2f MB)", name, float64(info.Size())/1024/1024)
	return &DumpResult{Filename: name, Path: path, Size: info.Size(), Timestamp: ts}, nil
}

// hasRealError ignores mysqldump's warning-only stderr output.
func hasRealError(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.Contains(line, "Warning") {
			return true
		}
	}
	return false
}

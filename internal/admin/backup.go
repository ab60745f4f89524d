package admin

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

// BackupDatabase dumps the Postgres database to filename.
func BackupDatabase(filename, dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	cmd := exec.CommandContext(ctx, "pg_dump", dsn, "-Fc", "-f", filename)
	return cmd.Run()
}

// CleanOldBackups removes dump files older than keep from dir.
func CleanOldBackups(dir string, keep time.Duration) error {
	files, err := filepath.Glob(filepath.Join(dir, "autobackup_*.dump"))
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-keep)
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(f)
		}
	}
	return nil
}

// AutoBackupDatabase runs the daily backup plus retention cleanup and
// alerts the admin on failure. Wired to cron in main.
func AutoBackupDatabase(dsn string) {
	backupDir := "backups"
	_ = os.MkdirAll(backupDir, 0o755)
	filename := filepath.Join(backupDir, "autobackup_"+time.Now().Format("20060102_150405")+".dump")
	if err := BackupDatabase(filename, dsn); err != nil {
		logger.NotifyAdmin("Database backup failed: " + err.Error())
		return
	}
	if err := CleanOldBackups(backupDir, 30*24*time.Hour); err != nil {
		logger.NotifyAdmin("Backup cleanup failed: " + err.Error())
	}
}

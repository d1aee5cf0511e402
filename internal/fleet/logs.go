package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogInfo describes one execution log on disk.
type LogInfo struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// ListLogs returns the execution logs under root, newest first. A root
// without a log directory yields an empty list.
func ListLogs(root string) ([]LogInfo, error) {
	dir := filepath.Join(root, "data", "fleet-logs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var logs []LogInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		logs = append(logs, LogInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].ModTime.Equal(logs[j].ModTime) {
			return logs[i].Name > logs[j].Name
		}
		return logs[i].ModTime.After(logs[j].ModTime)
	})
	return logs, nil
}

// LatestLog returns the path of the most recently modified execution log.
func LatestLog(root string) (string, error) {
	logs, err := ListLogs(root)
	if err != nil {
		return "", err
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("no fleet logs under %s", filepath.Join(root, "data", "fleet-logs"))
	}
	return logs[0].Path, nil
}

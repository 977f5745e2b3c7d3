package monitoring

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"packcam/storage"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type ResourceUsage struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryUsedMB  float64 `json:"memoryUsedMb"`
	MemoryTotalMB float64 `json:"memoryTotalMb"`
	MemoryPercent float64 `json:"memoryPercent"`
	NumGoroutines int     `json:"numGoroutines"`
}

// StartMonitoring periodically logs process resource usage and the disk
// usage of the storage path
func StartMonitoring(interval time.Duration, storagePath func() (string, error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			usage, err := GetResourceUsage()
			if err != nil {
				log.Printf("Error getting resource usage: %v", err)
				continue
			}

			log.Printf("Resource Usage - CPU: %.2f%%, Memory: %.2f/%.2f MB (%.2f%%), Goroutines: %d",
				usage.CPUPercent,
				usage.MemoryUsedMB,
				usage.MemoryTotalMB,
				usage.MemoryPercent,
				usage.NumGoroutines)

			if path, err := storagePath(); err == nil {
				if du, err := storage.GetDiskUsage(path); err == nil {
					log.Printf("Storage Disk - %s: %.2f%% used, %.2f GB free",
						du.Path, du.UsedPercent, float64(du.FreeBytes)/(1024*1024*1024))
				}
			}
		}
	}()
}

// GetResourceUsage samples CPU and memory usage of this process
func GetResourceUsage() (ResourceUsage, error) {
	var usage ResourceUsage

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return usage, fmt.Errorf("error getting process: %v", err)
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		return usage, fmt.Errorf("error getting CPU usage: %v", err)
	}
	usage.CPUPercent = cpuPercent

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return usage, fmt.Errorf("error getting process memory: %v", err)
	}
	usage.MemoryUsedMB = float64(memInfo.RSS) / (1024 * 1024)

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return usage, fmt.Errorf("error getting system memory: %v", err)
	}
	usage.MemoryTotalMB = float64(vmStat.Total) / (1024 * 1024)
	if vmStat.Total > 0 {
		usage.MemoryPercent = float64(memInfo.RSS) / float64(vmStat.Total) * 100
	}

	usage.NumGoroutines = runtime.NumGoroutine()

	return usage, nil
}

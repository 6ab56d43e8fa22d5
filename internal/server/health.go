package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var startTime = time.Now()

// handleHealth reports service liveness plus a system resource snapshot
func handleHealth(c *gin.Context) {
	health := gin.H{
		"status":     "ok",
		"uptime":     time.Since(startTime).String(),
		"goroutines": runtime.NumGoroutine(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		health["memory_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		health["cpu_percent"] = percents[0]
	}

	c.JSON(http.StatusOK, health)
}
